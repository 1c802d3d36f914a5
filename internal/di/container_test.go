package di

import (
	"context"
	"testing"
	"time"

	"translatorhub/internal/backend"
	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceContainer_InitializeDefaults(t *testing.T) {
	cfg := config.Default()
	container := NewServiceContainer(cfg, observability.NewNopLogger(), nil)
	require.NoError(t, container.Initialize(context.Background()))
	defer container.Shutdown(context.Background())

	client, err := container.GetBackend()
	require.NoError(t, err)
	assert.IsType(t, &backend.HTTPClient{}, client, "cache disabled leaves the client unwrapped")

	table, err := container.GetLanguages()
	require.NoError(t, err)
	assert.True(t, table.Contains("si"))

	_, err = container.GetCache()
	assert.Error(t, err)

	assert.Same(t, cfg, container.GetConfig())
	assert.NotNil(t, container.GetLogger())
	assert.Nil(t, container.GetInstruments())
}

func TestServiceContainer_NewControllerUsesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.SourceLanguage = "ta"
	cfg.Defaults.TargetLanguage = "en"
	cfg.Reveal.Interval = time.Millisecond

	container := NewServiceContainer(cfg, nil, nil)
	require.NoError(t, container.Initialize(context.Background()))
	defer container.Shutdown(context.Background())

	ctrl, err := container.NewController()
	require.NoError(t, err)
	defer ctrl.Close()

	snap := ctrl.Snapshot()
	assert.Equal(t, models.LanguageCode("ta"), snap.SourceLanguage)
	assert.Equal(t, models.LanguageCode("en"), snap.TargetLanguage)
	assert.Equal(t, models.StatusIdle, snap.Status)
}

func TestServiceContainer_NewControllerBeforeInitialize(t *testing.T) {
	container := NewServiceContainer(config.Default(), nil, nil)
	_, err := container.NewController()
	assert.Error(t, err)
}

func TestServiceContainer_UnknownTransportFails(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Transport = "carrier-pigeon"

	container := NewServiceContainer(cfg, nil, nil)
	err := container.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create backend client")
}

func TestServiceContainer_CacheEnabledWithoutURLFails(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = true

	container := NewServiceContainer(cfg, nil, nil)
	err := container.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open translation cache")
}

func TestGetServiceAs_WrongType(t *testing.T) {
	container := NewServiceContainer(config.Default(), nil, nil)
	require.NoError(t, container.Initialize(context.Background()))

	_, err := GetServiceAs[*config.Config](container, "languages")
	assert.Error(t, err)
	_, err = container.GetService("missing")
	assert.Error(t, err)
}

func TestServiceContainer_ShutdownIsRepeatable(t *testing.T) {
	container := NewServiceContainer(config.Default(), nil, nil)
	require.NoError(t, container.Initialize(context.Background()))
	assert.NoError(t, container.Shutdown(context.Background()))
	assert.NoError(t, container.Shutdown(context.Background()))
}
