package config

import "time"

// Default values applied to unset configuration fields.
const (
	DefaultListenAddress   = "127.0.0.1:3001"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultUpstreamBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGenerateTimeout = 15 * time.Second

	DefaultPrimaryModel          = "gemini-2.5-pro"
	DefaultFallbackModel         = "gemini-2.5-flash"
	DefaultShortMessageThreshold = 20

	DefaultMemoryPath = "data/memory.json"

	DefaultHistoryPath      = "data/transcript.db"
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultPruneSchedule    = "0 3 * * *"

	DefaultSummarizerRunTimeout = 60 * time.Second

	DefaultMetricsPath     = "/metrics"
	DefaultTracingEndpoint = "localhost:4317"
)

// DefaultConfig returns a configuration populated with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	applyCORSDefaults(&cfg.Server.CORS)

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.GenerateTimeout == 0 {
		cfg.Upstream.GenerateTimeout = DefaultGenerateTimeout
	}

	if cfg.Models.Primary == "" {
		cfg.Models.Primary = DefaultPrimaryModel
	}
	if cfg.Models.Fallback == "" {
		cfg.Models.Fallback = DefaultFallbackModel
	}
	if len(cfg.Models.Known) == 0 {
		cfg.Models.Known = []string{cfg.Models.Primary, cfg.Models.Fallback}
	}
	if cfg.Models.ShortMessageThreshold == 0 {
		cfg.Models.ShortMessageThreshold = DefaultShortMessageThreshold
	}

	if cfg.Memory.Path == "" {
		cfg.Memory.Path = DefaultMemoryPath
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
		cfg.History.Enabled = true
	}
	if cfg.History.Retention == 0 {
		cfg.History.Retention = DefaultHistoryRetention
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultPruneSchedule
	}

	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = cfg.Models.Fallback
	}
	if cfg.Summarizer.RunTimeout == 0 {
		cfg.Summarizer.RunTimeout = DefaultSummarizerRunTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
		cfg.Telemetry.Metrics.Enabled = true
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
		cfg.Telemetry.Tracing.Insecure = true
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = 1.0
	}
}

func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
		cors.Enabled = true
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = 3600
	}
}
