package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackendConfig(baseURL string) config.BackendConfig {
	cfg := config.Default().Backend
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) *models.RequestError {
	t.Helper()
	require.Error(t, err)
	reqErr, ok := models.AsRequestError(err)
	require.True(t, ok, "expected *models.RequestError, got %T", err)
	assert.Equal(t, kind, reqErr.Kind)
	return reqErr
}

func TestHTTPClient_TranslateSendsWireContract(t *testing.T) {
	var (
		gotPath   string
		gotBody   map[string]interface{}
		gotHeader string
	)
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"හෙලෝ"}`))
	})

	client := NewHTTPClient(testBackendConfig(server.URL), observability.NewNopLogger())
	result, err := client.Translate(context.Background(), TextRequest{Text: "Hello", SourceLang: "en", Target: "si"})

	require.NoError(t, err)
	assert.Equal(t, "හෙලෝ", result.Output)
	assert.False(t, result.Cached)
	assert.Equal(t, "/translate", gotPath)
	assert.Equal(t, "application/json", gotHeader)
	assert.Equal(t, map[string]interface{}{"text": "Hello", "sourceLang": "en", "target": "si"}, gotBody)
}

func TestHTTPClient_ExtractTextAndTranscribeBodies(t *testing.T) {
	bodies := map[string]map[string]interface{}{}
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies[r.URL.Path] = body
		_, _ = w.Write([]byte(`{"output":"ok"}`))
	})
	client := NewHTTPClient(testBackendConfig(server.URL+"/"), nil)

	_, err := client.ExtractText(context.Background(), ImageRequest{Base64Image: "aW1n"})
	require.NoError(t, err)
	_, err = client.TranscribeTranslate(context.Background(), AudioRequest{Base64Audio: "YXVk", SourceLang: "en", Target: "ta"})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"base64Image": "aW1n"}, bodies["/extract-text"])
	assert.Equal(t, map[string]interface{}{"base64Audio": "YXVk", "sourceLang": "en", "target": "ta"}, bodies["/transcribe-translate"])
}

func TestHTTPClient_APIKeyHeader(t *testing.T) {
	var got string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Hub-Key")
		_, _ = w.Write([]byte(`{"output":"x"}`))
	})
	cfg := testBackendConfig(server.URL)
	cfg.APIKey = "secret"
	cfg.APIKeyHeader = "X-Hub-Key"

	_, err := NewHTTPClient(cfg, nil).Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestHTTPClient_ResponseClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   models.ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{name: "non-string output", status: http.StatusOK, body: `{"output":5}`, wantKind: models.ErrorKindMalformedResponse, wantMsg: models.MsgMalformedResponse},
		{name: "missing output", status: http.StatusOK, body: `{"result":"x"}`, wantKind: models.ErrorKindMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`, wantKind: models.ErrorKindMalformedResponse},
		{name: "array body", status: http.StatusOK, body: `["x"]`, wantKind: models.ErrorKindMalformedResponse},
		{name: "service unavailable", status: http.StatusServiceUnavailable, body: `{"output":"ignored"}`, wantKind: models.ErrorKindServer, wantStatus: 503, wantMsg: "Server error: 503"},
		{name: "bad request", status: http.StatusBadRequest, body: `bad`, wantKind: models.ErrorKindServer, wantStatus: 400, wantMsg: "Server error: 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewHTTPClient(testBackendConfig(server.URL), nil).
				Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})

			reqErr := requireKind(t, err, tt.wantKind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, reqErr.StatusCode)
			}
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, reqErr.UserMessage())
			}
		})
	}
}

func TestHTTPClient_EmptyOutputIsValid(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":""}`))
	})

	result, err := NewHTTPClient(testBackendConfig(server.URL), nil).
		Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})
	require.NoError(t, err)
	assert.Equal(t, "", result.Output)
}

func TestHTTPClient_OversizedResponse(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":"this body is longer than the cap"}`))
	})
	cfg := testBackendConfig(server.URL)
	cfg.MaxResponseBytes = 8

	_, err := NewHTTPClient(cfg, nil).Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})
	requireKind(t, err, models.ErrorKindMalformedResponse)
}

func TestHTTPClient_ClosedListenerIsNoResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPClient(testBackendConfig(url), nil).
		Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})

	reqErr := requireKind(t, err, models.ErrorKindNoResponse)
	assert.Equal(t, "No response from server. Check backend.", reqErr.UserMessage())
}

func TestHTTPClient_BadBaseURLIsRequestSetup(t *testing.T) {
	for _, base := range []string{"localhost:8080", "ftp://example.com", "http://", "://nope"} {
		t.Run(base, func(t *testing.T) {
			_, err := NewHTTPClient(testBackendConfig(base), nil).
				Translate(context.Background(), TextRequest{Text: "a", SourceLang: "en", Target: "si"})

			reqErr := requireKind(t, err, models.ErrorKindRequestSetup)
			assert.Contains(t, reqErr.UserMessage(), "Request error: ")
		})
	}
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPClient(testBackendConfig(server.URL), nil).
		Translate(ctx, TextRequest{Text: "a", SourceLang: "en", Target: "si"})
	requireKind(t, err, models.ErrorKindNoResponse)
}
