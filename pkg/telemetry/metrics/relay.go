package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics tracks chat-turn processing.
//
// Metrics:
//   - ganymede_turns_total: Turn count by model, mode, status
//   - ganymede_stream_duration_seconds: Streaming turn duration histogram
//   - ganymede_stream_chunks_total: Emitted client-facing chunks
//   - ganymede_fallbacks_total: Fallback attempts by outcome
type RelayMetrics struct {
	turnsTotal     *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec
	streamChunks   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
}

// newRelayMetrics creates and registers relay metrics.
func newRelayMetrics(namespace string, registry *prometheus.Registry) *RelayMetrics {
	rm := &RelayMetrics{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of chat turns processed",
			},
			[]string{"model", "mode", "status"},
		),

		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stream_duration_seconds",
				Help:      "Duration of streaming turns in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
			[]string{"model"},
		),

		streamChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_chunks_total",
				Help:      "Total number of client-facing stream chunks emitted",
			},
			[]string{"model"},
		),

		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total number of fallback-model attempts",
			},
			[]string{"model", "outcome"},
		),
	}

	registry.MustRegister(
		rm.turnsTotal,
		rm.streamDuration,
		rm.streamChunks,
		rm.fallbacksTotal,
	)

	return rm
}

// RecordTurn records a completed turn.
//
// Parameters:
//   - model: model that served the turn
//   - mode: "stream" or "generate"
//   - status: "complete", "failed", or "aborted"
func (rm *RelayMetrics) RecordTurn(model, mode, status string) {
	if rm == nil {
		return
	}
	rm.turnsTotal.WithLabelValues(model, mode, status).Inc()
}

// ObserveStreamDuration records the duration of a streaming turn.
func (rm *RelayMetrics) ObserveStreamDuration(model string, d time.Duration) {
	if rm == nil {
		return
	}
	rm.streamDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordChunk records one emitted client-facing chunk.
func (rm *RelayMetrics) RecordChunk(model string) {
	if rm == nil {
		return
	}
	rm.streamChunks.WithLabelValues(model).Inc()
}

// RecordFallback records a fallback attempt and its outcome
// ("success" or "failed").
func (rm *RelayMetrics) RecordFallback(model, outcome string) {
	if rm == nil {
		return
	}
	rm.fallbacksTotal.WithLabelValues(model, outcome).Inc()
}
