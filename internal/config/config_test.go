package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	contextutils "translatorhub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig_LoadsFromYAML(t *testing.T) {
	path := createTempConfigFile(t, `
server:
  port: "9090"
  log_level: "debug"
  cors_origins:
    - "http://localhost:5173"

backend:
  base_url: "http://translate.internal:8080"
  translate_path: "/api/translate"
  timeout: "15s"
  api_key: "secret-key"

reveal:
  interval: "10ms"

uploads:
  max_image_bytes: 2048

defaults:
  source_language: "si"
  target_language: "ta"

open_telemetry:
  endpoint: "collector:4317"
  protocol: "http"
  enable_tracing: true
  sampling_rate: 0.5
`)
	t.Setenv(ConfigFileEnv, path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)

	assert.Equal(t, "http://translate.internal:8080", cfg.Backend.BaseURL)
	assert.Equal(t, "/api/translate", cfg.Backend.TranslatePath)
	assert.Equal(t, DefaultExtractTextPath, cfg.Backend.ExtractTextPath, "unset keys keep defaults")
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "secret-key", cfg.Backend.APIKey)

	assert.Equal(t, 10*time.Millisecond, cfg.Reveal.Interval)
	assert.Equal(t, int64(2048), cfg.Uploads.MaxImageBytes)
	assert.Equal(t, DefaultMaxAudioBytes, cfg.Uploads.MaxAudioBytes)

	assert.Equal(t, "si", cfg.Defaults.SourceLanguage)
	assert.Equal(t, "ta", cfg.Defaults.TargetLanguage)

	assert.Equal(t, "collector:4317", cfg.OpenTelemetry.Endpoint)
	assert.Equal(t, "http", cfg.OpenTelemetry.Protocol)
	assert.True(t, cfg.OpenTelemetry.EnableTracing)
	assert.Equal(t, 0.5, cfg.OpenTelemetry.SamplingRate)
}

func TestNewConfig_EnvironmentVariableOverrides(t *testing.T) {
	path := createTempConfigFile(t, `
backend:
  base_url: "http://from-file:8080"
reveal:
  interval: "50ms"
`)
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("BACKEND_BASE_URL", "http://from-env:9000")
	t.Setenv("REVEAL_INTERVAL", "5ms")
	t.Setenv("UPLOADS_MAX_IMAGE_BYTES", "4096")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("OPEN_TELEMETRY_ENABLE_METRICS", "true")
	t.Setenv("OPEN_TELEMETRY_SAMPLING_RATE", "0.25")
	t.Setenv("BACKEND_LAMBDA_REGION", "eu-west-1")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Millisecond, cfg.Reveal.Interval)
	assert.Equal(t, int64(4096), cfg.Uploads.MaxImageBytes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.OpenTelemetry.EnableMetrics)
	assert.Equal(t, 0.25, cfg.OpenTelemetry.SamplingRate)
	assert.Equal(t, "eu-west-1", cfg.Backend.Lambda.Region)
}

func TestNewConfig_InvalidEnvironmentValuesAreIgnored(t *testing.T) {
	path := createTempConfigFile(t, `
uploads:
  max_image_bytes: 1024
`)
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("UPLOADS_MAX_IMAGE_BYTES", "lots")
	t.Setenv("SERVER_DEBUG", "maybe")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), cfg.Uploads.MaxImageBytes)
	assert.False(t, cfg.Server.Debug)
}

func TestNewConfig_ConfigFileNotFound(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := NewConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, contextutils.ErrorCodeConfigInvalid, contextutils.GetErrorCode(err))
}

func TestNewConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Chdir(t.TempDir())

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(_ *Config) {}},
		{name: "zero reveal interval", mutate: func(c *Config) { c.Reveal.Interval = 0 }, wantErr: true},
		{name: "negative reveal interval", mutate: func(c *Config) { c.Reveal.Interval = -time.Millisecond }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Backend.Transport = "carrier-pigeon" }, wantErr: true},
		{name: "relative base url", mutate: func(c *Config) { c.Backend.BaseURL = "localhost:8080" }, wantErr: true},
		{name: "lambda without functions", mutate: func(c *Config) { c.Backend.Transport = TransportLambda }, wantErr: true},
		{
			name: "lambda with functions",
			mutate: func(c *Config) {
				c.Backend.Transport = TransportLambda
				c.Backend.BaseURL = ""
				c.Backend.Lambda = LambdaConfig{
					TranslateFunction:   "hub-translate",
					ExtractTextFunction: "hub-ocr",
					TranscribeFunction:  "hub-transcribe",
				}
			},
		},
		{name: "cache without database", mutate: func(c *Config) { c.Cache.Enabled = true }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Server.LogLevel = "loud" }, wantErr: true},
		{name: "non numeric port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: true},
		{name: "missing default language", mutate: func(c *Config) { c.Defaults.TargetLanguage = "" }, wantErr: true},
		{name: "sampling rate above one", mutate: func(c *Config) { c.OpenTelemetry.SamplingRate = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOverrideStructFromEnv_NestedStruct(t *testing.T) {
	type inner struct {
		Name    string        `yaml:"name"`
		Timeout time.Duration `yaml:"timeout"`
	}
	type outer struct {
		Inner   inner `yaml:"inner"`
		Skipped string
		Ignored string `yaml:"-"`
	}

	t.Setenv("INNER_NAME", "nested")
	t.Setenv("INNER_TIMEOUT", "1500")
	t.Setenv("SKIPPED", "nope")

	v := &outer{}
	overrideStructFromEnv(v)

	assert.Equal(t, "nested", v.Inner.Name)
	assert.Equal(t, time.Duration(1500), v.Inner.Timeout, "bare integers are nanoseconds")
	assert.Empty(t, v.Skipped)
	assert.Empty(t, v.Ignored)
}
