package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Namespace is the metric namespace prefix. Default: "ganymede".
	Namespace string

	// EnableGoMetrics includes the Go runtime and process collectors.
	EnableGoMetrics bool
}

// Collector owns the Prometheus registry and the service's metric families.
type Collector struct {
	registry *prometheus.Registry

	// Relay tracks chat-turn and streaming metrics.
	Relay *RelayMetrics

	// Summarizer tracks background summarization metrics.
	Summarizer *SummarizerMetrics
}

// NewCollector creates a collector with all metric families registered.
func NewCollector(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "ganymede"
	}

	registry := prometheus.NewRegistry()

	if cfg.EnableGoMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		registry:   registry,
		Relay:      newRelayMetrics(cfg.Namespace, registry),
		Summarizer: newSummarizerMetrics(cfg.Namespace, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
