package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/ganymede/pkg/prompt"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/upstream"
)

// SummarizeThreshold is the minimum number of safe-history turns required
// before a completed turn schedules background summarization.
const SummarizeThreshold = 8

// tracerName identifies spans emitted by this package.
const tracerName = "mercator-hq/ganymede/pkg/relay"

// State is the relay's per-request state.
type State int

// Relay states. Every request starts at StateStart and ends at exactly one of
// StateComplete, StateFailed, or StateAborted.
const (
	StateStart State = iota
	StateStreaming
	StateFallback
	StateComplete
	StateFailed
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateStreaming:
		return "streaming"
	case StateFallback:
		return "fallback"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ModelPolicy selects the upstream model for a turn.
//
// The length-based default is provisional: short messages go to the cheaper
// fallback model, everything else to the primary. It is kept configurable
// rather than inferred further; no additional heuristics are applied.
type ModelPolicy struct {
	// Primary is the default model. Only quota failures on the primary are
	// eligible for a fallback attempt.
	Primary string

	// Fallback is the designated cheaper fallback model.
	Fallback string

	// Known is the set of models a client may explicitly request.
	Known []string

	// ShortMessageThreshold routes messages shorter than this many bytes to
	// the fallback model. Zero disables length-based routing.
	ShortMessageThreshold int
}

// Select returns the model for a turn: the client override if it names a
// known model, otherwise the length-based default.
func (p ModelPolicy) Select(override, message string) string {
	if override != "" {
		for _, m := range p.Known {
			if m == override {
				return override
			}
		}
	}

	if p.ShortMessageThreshold > 0 && len(message) < p.ShortMessageThreshold && p.Fallback != "" {
		return p.Fallback
	}

	return p.Primary
}

// Scheduler schedules background summarization of a completed turn's history.
// Implementations must return immediately; the relay never waits on them.
type Scheduler interface {
	Schedule(history []prompt.Turn)
}

// Result reports how a relayed turn ended.
type Result struct {
	// State is the terminal state: StateComplete, StateFailed, or StateAborted.
	State State

	// Model is the model that served (or last attempted) the turn.
	Model string

	// Text is the full accumulated response text (complete turns only).
	Text string

	// Err is the upstream failure for failed turns.
	Err error
}

// Relay owns the live response channel for one request at a time: it drives
// the upstream streaming call, re-frames incremental text into client-facing
// events, and applies the fallback-once policy on quota failures.
type Relay struct {
	client    upstream.Client
	policy    ModelPolicy
	scheduler Scheduler
	metrics   *metrics.RelayMetrics
}

// New creates a relay. scheduler may be nil to disable summarization
// scheduling; metrics may be nil.
func New(client upstream.Client, policy ModelPolicy, scheduler Scheduler, m *metrics.RelayMetrics) *Relay {
	return &Relay{
		client:    client,
		policy:    policy,
		scheduler: scheduler,
		metrics:   m,
	}
}

// SelectModel applies the model-selection policy for a turn.
func (r *Relay) SelectModel(override, message string) string {
	return r.policy.Select(override, message)
}

// Run relays one streaming turn. history is the client-supplied history plus
// the live user message; the relay appends the model's reply before
// scheduling summarization.
//
// Run always drives the session to a terminal state and emits exactly one
// terminal frame, even on panic. Client aborts (context cancellation or a
// failed event write) end the session silently with StateAborted and never
// schedule summarization.
func (r *Relay) Run(ctx context.Context, w EventWriter, payload *upstream.Payload, history []prompt.Turn, model string) (res Result) {
	start := time.Now()
	terminal := false

	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.Run")
	span.SetAttributes(attribute.String("gen_ai.request.model", model))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic in stream relay",
				"model", model,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			if !terminal {
				_ = w.WriteError(CodeStreamingUnavailable)
			}
			res = Result{State: StateFailed, Model: model, Err: fmt.Errorf("relay panic: %v", p)}
			r.metrics.RecordTurn(model, "stream", "failed")
		}
	}()

	fail := func(err error) Result {
		code := CodeStreamingUnavailable
		if upstream.IsQuotaExceeded(err) {
			code = CodeQuotaExceeded
		}
		if upstream.IsTimeout(err) {
			slog.Warn("upstream deadline exceeded during stream", "model", model)
		}
		_ = w.WriteError(code)
		terminal = true
		r.metrics.RecordTurn(model, "stream", "failed")
		return Result{State: StateFailed, Model: model, Err: err}
	}

	abort := func() Result {
		// The client went away: cease writing without error and never
		// trigger summarization for a turn the user abandoned.
		terminal = true
		r.metrics.RecordTurn(model, "stream", "aborted")
		return Result{State: StateAborted, Model: model}
	}

	stream, err := r.client.GenerateStream(ctx, payload, model)
	if err != nil {
		if ctx.Err() != nil {
			return abort()
		}

		// Quota failure on open, primary model only: one fallback attempt
		// with the identical payload. A fallback identical to the failed
		// model, or a second failure, fails the turn directly.
		if upstream.IsQuotaExceeded(err) && model == r.policy.Primary && r.policy.Fallback != model && r.policy.Fallback != "" {
			slog.Info("primary model quota exceeded, attempting fallback",
				"primary", model,
				"fallback", r.policy.Fallback,
			)

			stream, err = r.client.GenerateStream(ctx, payload, r.policy.Fallback)
			if err != nil {
				r.metrics.RecordFallback(r.policy.Fallback, "failed")
				return fail(err)
			}

			r.metrics.RecordFallback(r.policy.Fallback, "success")
			model = r.policy.Fallback
		} else {
			return fail(err)
		}
	}
	defer stream.Close()

	var accumulated strings.Builder

	for {
		text, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			if ctx.Err() != nil {
				return abort()
			}
			// Failure while streaming is terminal; fallback applies only to
			// open failures.
			return fail(recvErr)
		}

		accumulated.WriteString(text)
		if werr := w.WriteChunk(text); werr != nil {
			return abort()
		}
		r.metrics.RecordChunk(model)
	}

	full := accumulated.String()
	_ = w.WriteEnd(full)
	terminal = true

	r.metrics.RecordTurn(model, "stream", "complete")
	r.metrics.ObserveStreamDuration(model, time.Since(start))

	r.maybeSchedule(history, full)

	return Result{State: StateComplete, Model: model, Text: full}
}

// maybeSchedule schedules background summarization when the turn's
// safe-history length meets the threshold. It never blocks.
func (r *Relay) maybeSchedule(history []prompt.Turn, responseText string) {
	if r.scheduler == nil {
		return
	}
	if len(prompt.SafeHistory(history)) < SummarizeThreshold {
		return
	}

	updated := append(append([]prompt.Turn{}, history...), prompt.Turn{
		Role:    prompt.RoleModel,
		Content: responseText,
	})
	r.scheduler.Schedule(prompt.SafeHistory(updated))
}

// ShouldSummarize reports whether a turn with the given history meets the
// summarization threshold. Exposed for the non-streaming handler, which
// applies the same policy.
func ShouldSummarize(history []prompt.Turn) bool {
	return len(prompt.SafeHistory(history)) >= SummarizeThreshold
}
