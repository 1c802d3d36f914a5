package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	TelemetryFlushTimeout = 5 * time.Second

	// Websocket session timings
	WebsocketWriteWait  = 10 * time.Second
	WebsocketPongWait   = 60 * time.Second
	WebsocketPingPeriod = (WebsocketPongWait * 9) / 10

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Reveal animation constants
const (
	// DefaultRevealInterval is the delay between two revealed characters
	DefaultRevealInterval = 30 * time.Millisecond
)

// Size constants
const (
	// DefaultMaxImageBytes is the upload ceiling for OCR images (10 MB)
	DefaultMaxImageBytes int64 = 10 << 20
	// DefaultMaxAudioBytes is the upload ceiling for recorded audio (25 MB)
	DefaultMaxAudioBytes int64 = 25 << 20
	// DefaultMaxResponseBytes caps how much of a backend response body is read
	DefaultMaxResponseBytes int64 = 5 << 20
	// DefaultMaxMessageBytes caps a single websocket message; base64 inflates uploads by a third
	DefaultMaxMessageBytes int64 = 48 << 20
)

// Backend defaults
const (
	DefaultBackendURL      = "http://localhost:8080"
	DefaultTranslatePath   = "/translate"
	DefaultExtractTextPath = "/extract-text"
	DefaultTranscribePath  = "/transcribe-translate"
	DefaultAPIKeyHeader    = "X-API-Key"

	TransportHTTP   = "http"
	TransportLambda = "lambda"
)

// Language defaults
const (
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "si"
)

// Cache defaults
const (
	DefaultCacheTTL             = 30 * 24 * time.Hour
	DefaultCacheCleanupInterval = time.Hour
	// WorkerMaxHistory is how many runs a background worker remembers
	WorkerMaxHistory = 20
)

// Server defaults
const (
	DefaultServerPort = "8090"
	ServiceName       = "translator-hub"
)
