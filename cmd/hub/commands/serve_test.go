package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/di"
	"translatorhub/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	gin.SetMode(gin.TestMode)

	container := di.NewServiceContainer(config.Default(), observability.NewNopLogger(), nil)
	require.NoError(t, container.Initialize(context.Background()))

	app, err := NewApplication(container, "0")
	require.NoError(t, err)
	return app
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApplication(t)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	assert.Nil(t, app.janitor)

	for _, path := range []string{"/health", "/version", "/v1/languages"} {
		w := httptest.NewRecorder()
		app.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestApplication_RunStopsWithContext(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	assert.NoError(t, app.Shutdown(shutdownCtx))
}

func TestApplication_NeedsInitializedContainer(t *testing.T) {
	container := di.NewServiceContainer(config.Default(), nil, nil)

	_, err := NewApplication(container, "0")
	assert.Error(t, err)
}
