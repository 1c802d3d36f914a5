package backend

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store persists text translations keyed by text hash and language pair
type Store interface {
	// Get returns the cached output, or found=false when missing or expired
	Get(ctx context.Context, textHash string, source, target models.LanguageCode) (output string, found bool, err error)
	// Put saves output until ttl elapses, replacing any existing entry
	Put(ctx context.Context, textHash, originalText string, source, target models.LanguageCode, output string, ttl time.Duration) error
}

// HashText generates a SHA-256 hash of the input text
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", hash)
}

// CachingClient serves repeated text translations from a Store. Image and audio
// calls pass straight through. Store failures are logged and never fail a request.
type CachingClient struct {
	next        Client
	store       Store
	ttl         time.Duration
	logger      *observability.Logger
	instruments *observability.Instruments
}

// NewCachingClient wraps next with the translation cache
func NewCachingClient(next Client, store Store, ttl time.Duration, logger *observability.Logger, instruments *observability.Instruments) *CachingClient {
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &CachingClient{next: next, store: store, ttl: ttl, logger: logger, instruments: instruments}
}

// Translate checks the store before calling the backend and saves successful results
func (c *CachingClient) Translate(ctx context.Context, req TextRequest) (Result, error) {
	textHash := HashText(req.Text)

	if output, ok := c.lookup(ctx, textHash, req); ok {
		return Result{Output: output, Cached: true}, nil
	}

	result, err := c.next.Translate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := c.store.Put(ctx, textHash, req.Text, req.SourceLang, req.Target, result.Output, c.ttl); err != nil {
		c.logger.Warn(ctx, "Failed to save translation to cache", map[string]interface{}{
			"source_language": req.SourceLang,
			"target_language": req.Target,
			"error":           err.Error(),
		})
	}
	return result, nil
}

func (c *CachingClient) lookup(ctx context.Context, textHash string, req TextRequest) (output string, found bool) {
	ctx, span := observability.TraceCacheFunction(ctx, "lookup",
		attribute.String("cache.text_hash", textHash),
		observability.AttributeSourceLanguage(req.SourceLang.String()),
		observability.AttributeTargetLanguage(req.Target.String()),
	)
	defer span.End()

	output, found, err := c.store.Get(ctx, textHash, req.SourceLang, req.Target)
	if err != nil {
		span.RecordError(err, trace.WithStackTrace(false))
		c.logger.Warn(ctx, "Translation cache lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}

	span.SetAttributes(attribute.Bool("cache.found", found))
	c.instruments.RecordCacheLookup(ctx, found)
	return output, found
}

// ExtractText is not cached
func (c *CachingClient) ExtractText(ctx context.Context, req ImageRequest) (Result, error) {
	return c.next.ExtractText(ctx, req)
}

// TranscribeTranslate is not cached
func (c *CachingClient) TranscribeTranslate(ctx context.Context, req AudioRequest) (Result, error) {
	return c.next.TranscribeTranslate(ctx, req)
}
