package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errorBodyLogLimit bounds how much of a non-2xx body ends up in logs
const errorBodyLogLimit = 512

// HTTPClient posts JSON to the translation backend over HTTP
type HTTPClient struct {
	cfg        config.BackendConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewHTTPClient creates an HTTP backend client
func NewHTTPClient(cfg config.BackendConfig, logger *observability.Logger) *HTTPClient {
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = config.DefaultMaxResponseBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultHTTPTimeout
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		logger: logger,
	}
}

// Translate posts {text, sourceLang, target} to the translate path
func (c *HTTPClient) Translate(ctx context.Context, req TextRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "translate",
		observability.AttributeTransport(config.TransportHTTP),
		observability.AttributeSourceLanguage(req.SourceLang.String()),
		observability.AttributeTargetLanguage(req.Target.String()),
		observability.AttributeTextLength(len(req.Text)),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.post(ctx, span, c.cfg.TranslatePath, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// ExtractText posts {base64Image} to the extract-text path
func (c *HTTPClient) ExtractText(ctx context.Context, req ImageRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "extract_text",
		observability.AttributeTransport(config.TransportHTTP),
		observability.AttributePayloadBytes(int64(len(req.Base64Image))),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.post(ctx, span, c.cfg.ExtractTextPath, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// TranscribeTranslate posts {base64Audio, sourceLang, target} to the transcribe path
func (c *HTTPClient) TranscribeTranslate(ctx context.Context, req AudioRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "transcribe_translate",
		observability.AttributeTransport(config.TransportHTTP),
		observability.AttributeSourceLanguage(req.SourceLang.String()),
		observability.AttributeTargetLanguage(req.Target.String()),
		observability.AttributePayloadBytes(int64(len(req.Base64Audio))),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.post(ctx, span, c.cfg.TranscribePath, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// endpoint joins the base URL and path, rejecting anything that is not an absolute http(s) URL
func (c *HTTPClient) endpoint(path string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", models.NewRequestSetupError(fmt.Sprintf("invalid backend URL %q", c.cfg.BaseURL), err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return "", models.NewRequestSetupError(fmt.Sprintf("invalid backend URL %q", c.cfg.BaseURL), nil)
	}
	return strings.TrimRight(base.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}

func (c *HTTPClient) post(ctx context.Context, span trace.Span, path string, payload interface{}) (string, error) {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", models.NewRequestSetupError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", models.NewRequestSetupError(err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header := c.cfg.APIKeyHeader
		if header == "" {
			header = config.DefaultAPIKeyHeader
		}
		req.Header.Set(header, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "Backend request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return "", models.NewNoResponseError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLogLimit))
		c.logger.Warn(ctx, "Backend returned an error status", map[string]interface{}{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
			"body":        string(snippet),
		})
		return "", models.NewServerError(resp.StatusCode, fmt.Errorf("backend returned status %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1))
	if err != nil {
		return "", models.NewNoResponseError(err)
	}
	if int64(len(respBody)) > c.cfg.MaxResponseBytes {
		return "", models.NewMalformedResponseError(fmt.Errorf("response exceeds %d bytes", c.cfg.MaxResponseBytes))
	}

	output, err := decodeOutput(respBody)
	if err != nil {
		c.logger.Warn(ctx, "Backend returned an unexpected body", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return "", err
	}
	return output, nil
}
