package metrics

import "github.com/prometheus/client_golang/prometheus"

// SummarizerMetrics tracks background summarization runs.
//
// Metrics:
//   - ganymede_summarizer_runs_total: Runs by outcome
//   - ganymede_summarizer_extraction_failures_total: Failed extraction calls by kind
//   - ganymede_memory_saves_total: Persisted memory merges
type SummarizerMetrics struct {
	runsTotal          *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	memorySaves        prometheus.Counter
}

// newSummarizerMetrics creates and registers summarizer metrics.
func newSummarizerMetrics(namespace string, registry *prometheus.Registry) *SummarizerMetrics {
	sm := &SummarizerMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summarizer_runs_total",
				Help:      "Total number of background summarization runs",
			},
			[]string{"outcome"},
		),

		extractionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summarizer_extraction_failures_total",
				Help:      "Total number of failed extraction calls",
			},
			[]string{"kind"},
		),

		memorySaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_saves_total",
				Help:      "Total number of persisted memory merges",
			},
		),
	}

	registry.MustRegister(sm.runsTotal, sm.extractionFailures, sm.memorySaves)

	return sm
}

// RecordRun records a summarization run outcome ("merged", "empty", "failed").
func (sm *SummarizerMetrics) RecordRun(outcome string) {
	if sm == nil {
		return
	}
	sm.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordExtractionFailure records a failed extraction call by kind
// ("profile", "project", "technical", "summary").
func (sm *SummarizerMetrics) RecordExtractionFailure(kind string) {
	if sm == nil {
		return
	}
	sm.extractionFailures.WithLabelValues(kind).Inc()
}

// RecordMemorySave records one persisted memory merge.
func (sm *SummarizerMetrics) RecordMemorySave() {
	if sm == nil {
		return
	}
	sm.memorySaves.Inc()
}
