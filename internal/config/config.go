// Package config handles application configuration loading from YAML files and environment variables.
package config

import (
	"errors"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "translatorhub/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at the YAML config file
const ConfigFileEnv = "HUB_CONFIG_FILE"

// Config holds all configuration for the translator hub
type Config struct {
	// Hub server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Remote translation backend
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// Typing animation for translated output
	Reveal RevealConfig `json:"reveal" yaml:"reveal"`

	// Upload ceilings for image and audio payloads
	Uploads UploadConfig `json:"uploads" yaml:"uploads"`

	// Language pickers
	Defaults DefaultsConfig `json:"defaults" yaml:"defaults"`

	// Optional translation cache
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
}

// ServerConfig represents hub server configuration
type ServerConfig struct {
	Port        string   `json:"port" yaml:"port" validate:"required,numeric"`
	Debug       bool     `json:"debug" yaml:"debug"`
	LogLevel    string   `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// MaxMessageBytes bounds a single websocket message from the browser
	MaxMessageBytes int64 `json:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`
}

// BackendConfig describes how the remote translation service is reached
type BackendConfig struct {
	Transport        string        `json:"transport" yaml:"transport" validate:"oneof=http lambda"`
	BaseURL          string        `json:"base_url" yaml:"base_url"`
	TranslatePath    string        `json:"translate_path" yaml:"translate_path"`
	ExtractTextPath  string        `json:"extract_text_path" yaml:"extract_text_path"`
	TranscribePath   string        `json:"transcribe_path" yaml:"transcribe_path"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`
	APIKey           string        `json:"api_key" yaml:"api_key"`
	APIKeyHeader     string        `json:"api_key_header" yaml:"api_key_header"`
	MaxResponseBytes int64         `json:"max_response_bytes" yaml:"max_response_bytes" validate:"gt=0"`
	Lambda           LambdaConfig  `json:"lambda" yaml:"lambda"`
}

// LambdaConfig names the functions invoked when the backend transport is "lambda"
type LambdaConfig struct {
	Region              string `json:"region" yaml:"region"`
	TranslateFunction   string `json:"translate_function" yaml:"translate_function"`
	ExtractTextFunction string `json:"extract_text_function" yaml:"extract_text_function"`
	TranscribeFunction  string `json:"transcribe_function" yaml:"transcribe_function"`
}

// RevealConfig configures the typed reveal of translated output
type RevealConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
}

// UploadConfig holds size ceilings checked before any upload reaches the network
type UploadConfig struct {
	MaxImageBytes int64 `json:"max_image_bytes" yaml:"max_image_bytes" validate:"gt=0"`
	MaxAudioBytes int64 `json:"max_audio_bytes" yaml:"max_audio_bytes" validate:"gt=0"`
}

// DefaultsConfig holds the initial language picker selection
type DefaultsConfig struct {
	SourceLanguage string `json:"source_language" yaml:"source_language" validate:"required"`
	TargetLanguage string `json:"target_language" yaml:"target_language" validate:"required"`
}

// CacheConfig configures the Postgres translation cache
type CacheConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	DatabaseURL     string        `json:"database_url" yaml:"database_url"`
	TTL             time.Duration `json:"ttl" yaml:"ttl" validate:"gt=0"`

	// CleanupInterval is how often `hub serve` deletes expired rows; zero disables it
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" validate:"gte=0"`

	// MigrationsPath replaces the embedded migrations with a directory on disk
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`

	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "translator-hub"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	ExportLogs     bool              `json:"export_logs" yaml:"export_logs"` // Ship logs over OTLP as well as stdout
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// Default returns a configuration populated with every default value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultServerPort,
			LogLevel:        "info",
			MaxMessageBytes: DefaultMaxMessageBytes,
		},
		Backend: BackendConfig{
			Transport:        TransportHTTP,
			BaseURL:          DefaultBackendURL,
			TranslatePath:    DefaultTranslatePath,
			ExtractTextPath:  DefaultExtractTextPath,
			TranscribePath:   DefaultTranscribePath,
			Timeout:          DefaultHTTPTimeout,
			APIKeyHeader:     DefaultAPIKeyHeader,
			MaxResponseBytes: DefaultMaxResponseBytes,
		},
		Reveal: RevealConfig{
			Interval: DefaultRevealInterval,
		},
		Uploads: UploadConfig{
			MaxImageBytes: DefaultMaxImageBytes,
			MaxAudioBytes: DefaultMaxAudioBytes,
		},
		Defaults: DefaultsConfig{
			SourceLanguage: DefaultSourceLanguage,
			TargetLanguage: DefaultTargetLanguage,
		},
		Cache: CacheConfig{
			TTL:             DefaultCacheTTL,
			CleanupInterval: DefaultCacheCleanupInterval,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: DatabaseConnMaxLifetime,
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  ServiceName,
			SamplingRate: 1.0,
		},
	}
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfigInvalid, "failed to load config: %w", err)
	}

	config.overrideFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express
func (c *Config) Validate() error {
	if err := contextutils.ValidateStruct(c); err != nil {
		return contextutils.WrapError(err, "invalid configuration")
	}

	switch c.Backend.Transport {
	case TransportHTTP:
		if !contextutils.IsValidURL(c.Backend.BaseURL) {
			return contextutils.NewAppError(contextutils.ErrorCodeConfigInvalid, contextutils.SeverityFatal,
				"invalid configuration", "backend.base_url must be an absolute http(s) URL")
		}
	case TransportLambda:
		l := c.Backend.Lambda
		if l.TranslateFunction == "" || l.ExtractTextFunction == "" || l.TranscribeFunction == "" {
			return contextutils.NewAppError(contextutils.ErrorCodeConfigInvalid, contextutils.SeverityFatal,
				"invalid configuration", "backend.lambda requires translate, extract_text and transcribe function names")
		}
	}

	if c.Cache.Enabled && c.Cache.DatabaseURL == "" {
		return contextutils.NewAppError(contextutils.ErrorCodeConfigInvalid, contextutils.SeverityFatal,
			"invalid configuration", "cache.database_url is required when the cache is enabled")
	}

	return nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// Durations are int64 underneath; accept "30ms" style values first
		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				} else if n, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(n)
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like SERVER_CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by HUB_CONFIG_FILE, or config.yaml when present
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrConfigInvalid, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, os.ErrNotExist) {
		// The CLI is usable without any config file
		return Default(), nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file on top of the defaults
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
