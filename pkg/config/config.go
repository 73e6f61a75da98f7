package config

import "time"

// Config is the root configuration structure for Ganymede.
// It contains all configuration sections for the HTTP server, the upstream
// model client, model selection policy, memory and transcript persistence,
// background summarization, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the upstream model API.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Models contains the model selection policy.
	Models ModelsConfig `yaml:"models"`

	// Memory contains configuration for the persistent memory record.
	Memory MemoryConfig `yaml:"memory"`

	// History contains configuration for the transcript store and its
	// retention schedule.
	History HistoryConfig `yaml:"history"`

	// Summarizer contains configuration for background summarization.
	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:3001", "0.0.0.0:3001").
	// Default: "127.0.0.1:3001"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streaming responses disable this per connection.
	// Default: 0 (no timeout; SSE connections are long-lived)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown,
	// including the background summarizer's drain.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for the browser client.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age in seconds for preflight request caching.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// UpstreamConfig contains configuration for the upstream model API.
type UpstreamConfig struct {
	// BaseURL is the base URL of the model API.
	// Default: "https://generativelanguage.googleapis.com/v1beta"
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests to the model API. Usually supplied via
	// the GANYMEDE_UPSTREAM_API_KEY or GEMINI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// GenerateTimeout bounds each non-streaming generation call.
	// Default: 15s
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
}

// ModelsConfig contains the model selection policy.
type ModelsConfig struct {
	// Primary is the default model for substantial messages.
	// Default: "gemini-2.5-pro"
	Primary string `yaml:"primary"`

	// Fallback is the cheaper model used for short messages and as the
	// quota-exhaustion fallback.
	// Default: "gemini-2.5-flash"
	Fallback string `yaml:"fallback"`

	// Known lists the models a client may request explicitly. Unknown
	// requests fall back to policy selection.
	Known []string `yaml:"known"`

	// ShortMessageThreshold is the message length at or below which the
	// fallback model is selected.
	// Default: 20
	ShortMessageThreshold int `yaml:"short_message_threshold"`
}

// MemoryConfig contains configuration for the persistent memory record.
type MemoryConfig struct {
	// Path is the JSON file holding the memory record.
	// Default: "data/memory.json"
	Path string `yaml:"path"`
}

// HistoryConfig contains configuration for the transcript store.
type HistoryConfig struct {
	// Enabled controls whether completed turns are persisted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for the transcript.
	// Default: "data/transcript.db"
	Path string `yaml:"path"`

	// Retention is how long transcript rows are kept.
	// Default: 720h (30 days)
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// SummarizerConfig contains configuration for background summarization.
type SummarizerConfig struct {
	// Model overrides the model used for extraction calls.
	// Default: the fallback model.
	Model string `yaml:"model"`

	// RunTimeout bounds one summarization run across all extraction calls.
	// Default: 60s
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled turns span export on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of traces to sample, in (0, 1].
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS on the exporter connection.
	// Default: true
	Insecure bool `yaml:"insecure"`
}
