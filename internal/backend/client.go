// Package backend talks to the remote translation service. Every failure is returned
// as a *models.RequestError so callers can render it without inspecting transports.
package backend

import (
	"context"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"
)

// TextRequest is the body of a text translation
type TextRequest struct {
	Text       string              `json:"text"`
	SourceLang models.LanguageCode `json:"sourceLang"`
	Target     models.LanguageCode `json:"target"`
}

// ImageRequest is the body of an OCR extraction
type ImageRequest struct {
	Base64Image string `json:"base64Image"`
}

// AudioRequest is the body of a transcribe-and-translate call
type AudioRequest struct {
	Base64Audio string              `json:"base64Audio"`
	SourceLang  models.LanguageCode `json:"sourceLang"`
	Target      models.LanguageCode `json:"target"`
}

// Result is the output of a successful call
type Result struct {
	Output string
	// Cached is true when the output came from the translation cache
	Cached bool
}

// Client is the set of remote operations the hub depends on
type Client interface {
	Translate(ctx context.Context, req TextRequest) (Result, error)
	ExtractText(ctx context.Context, req ImageRequest) (Result, error)
	TranscribeTranslate(ctx context.Context, req AudioRequest) (Result, error)
}

// New builds the client selected by cfg.Transport, wrapped by the cache when store is non-nil
func New(ctx context.Context, cfg config.BackendConfig, store Store, ttl time.Duration, logger *observability.Logger, instruments *observability.Instruments) (Client, error) {
	var (
		client Client
		err    error
	)

	switch cfg.Transport {
	case config.TransportHTTP, "":
		client = NewHTTPClient(cfg, logger)
	case config.TransportLambda:
		client, err = NewLambdaClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, contextutils.NewAppError(contextutils.ErrorCodeConfigInvalid, contextutils.SeverityFatal,
			"unsupported backend transport", cfg.Transport)
	}

	if store != nil {
		client = NewCachingClient(client, store, ttl, logger, instruments)
	}
	return client, nil
}
