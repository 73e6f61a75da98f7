package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/ganymede/pkg/memory"
	"mercator-hq/ganymede/pkg/prompt"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/upstream"
)

// Extraction confidences reflect how reliably each facet distills in
// practice; project extraction is the most mechanical, profile the least.
const (
	profileConfidence   = 0.8
	projectConfidence   = 0.9
	technicalConfidence = 0.85
)

// DefaultRunTimeout bounds one summarization run across all four calls.
const DefaultRunTimeout = 60 * time.Second

// tracerName identifies spans emitted by this package.
const tracerName = "mercator-hq/ganymede/pkg/summarizer"

// Config contains configuration for the Summarizer.
type Config struct {
	// Model is the model used for extraction calls (typically the cheaper
	// fallback model).
	Model string

	// RunTimeout bounds one run across all extraction calls.
	// Defaults to DefaultRunTimeout.
	RunTimeout time.Duration
}

// Summarizer distills recent conversation history into the memory record,
// asynchronously, after a turn completes.
//
// Schedule spawns one run per completed turn and returns immediately; runs
// never rejoin the request path, and every failure is logged and swallowed.
// Close waits for in-flight runs up to a bounded grace period.
type Summarizer struct {
	client  upstream.Client
	store   *memory.Store
	model   string
	timeout time.Duration
	metrics *metrics.SummarizerMetrics

	wg sync.WaitGroup
}

// New creates a summarizer. metrics may be nil.
func New(client upstream.Client, store *memory.Store, cfg Config, m *metrics.SummarizerMetrics) *Summarizer {
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	return &Summarizer{
		client:  client,
		store:   store,
		model:   cfg.Model,
		timeout: timeout,
		metrics: m,
	}
}

// Schedule starts a background summarization run over history and returns
// immediately.
func (s *Summarizer) Schedule(history []prompt.Turn) {
	if len(history) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.Error("panic in background summarizer", "panic", p)
				s.metrics.RecordRun("failed")
			}
		}()

		s.run(history)
	}()
}

// Close waits for in-flight runs until ctx expires. In-flight work is
// abandoned after the grace period; the process is exiting anyway.
func (s *Summarizer) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("summarizer shutdown grace period expired with runs in flight")
		return ctx.Err()
	}
}

// extraction is the outcome of one facet call.
type extraction struct {
	text string
	err  error
}

// run issues the four extraction calls concurrently, waits for all outcomes
// regardless of individual failure, and merges the successes in one save.
func (s *Summarizer) run(history []prompt.Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "summarizer.run")
	span.SetAttributes(attribute.Int("history.turns", len(history)))
	defer span.End()

	transcript := renderTranscript(history)

	instructions := map[string]string{
		"profile":   profileInstruction,
		"project":   projectInstruction,
		"technical": technicalInstruction,
		"summary":   summaryInstruction,
	}

	results := make(map[string]extraction, len(instructions))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for kind, instruction := range instructions {
		wg.Add(1)
		go func(kind, instruction string) {
			defer wg.Done()

			text, err := s.extract(ctx, instruction, transcript)

			mu.Lock()
			results[kind] = extraction{text: text, err: err}
			mu.Unlock()
		}(kind, instruction)
	}

	// Every outcome is awaited; one failed facet never aborts the others.
	wg.Wait()

	update, touched := s.buildUpdate(results, time.Now())
	if !touched {
		slog.Info("summarization produced no usable facts", "turns", len(history))
		s.metrics.RecordRun("empty")
		return
	}

	if _, err := s.store.Save(update); err != nil {
		// Memory failures never surface to the user.
		slog.Error("failed to persist memory update", "error", err)
		s.metrics.RecordRun("failed")
		return
	}

	s.metrics.RecordMemorySave()
	s.metrics.RecordRun("merged")
	slog.Debug("memory record updated from conversation history", "turns", len(history))
}

// extract issues one non-streaming generation call.
func (s *Summarizer) extract(ctx context.Context, instruction, transcript string) (string, error) {
	payload := &upstream.Payload{
		Contents: []upstream.Content{
			{Role: prompt.RoleUser, Text: instruction + "\n\nConversation:\n\n" + transcript},
		},
	}
	return s.client.Generate(ctx, payload, s.model)
}

// buildUpdate converts extraction outcomes into a partial memory update.
// Failed or unparseable facets are omitted so their stored sub-records stay
// untouched, and empty extracted fields are omitted the same way: a
// successful call that found nothing must not blank a previously learned
// fact or refresh its confidence stamp. Returns touched=false when nothing
// merged.
func (s *Summarizer) buildUpdate(results map[string]extraction, now time.Time) (memory.Update, bool) {
	var update memory.Update
	touched := false

	if res := results["profile"]; s.facetOK("profile", res) {
		var facts profileFacts
		if err := extractJSON(res.text, &facts); err != nil {
			s.facetFailed("profile", err)
		} else if facts.Goal != "" || facts.Preferences != "" {
			conf := profileConfidence
			pu := &memory.ProfileUpdate{Confidence: &conf, UpdatedAt: &now}
			if facts.Goal != "" {
				pu.Goal = &facts.Goal
			}
			if facts.Preferences != "" {
				pu.Preferences = &facts.Preferences
			}
			update.Profile = pu
			touched = true
		}
	}

	if res := results["project"]; s.facetOK("project", res) {
		var facts projectFacts
		if err := extractJSON(res.text, &facts); err != nil {
			s.facetFailed("project", err)
		} else if facts.Name != "" || facts.TechStack != "" || facts.Status != "" {
			conf := projectConfidence
			pu := &memory.ProjectUpdate{Confidence: &conf, UpdatedAt: &now}
			if facts.Name != "" {
				pu.Name = &facts.Name
			}
			if facts.TechStack != "" {
				pu.TechStack = &facts.TechStack
			}
			if facts.Status != "" {
				pu.Status = &facts.Status
			}
			update.Project = pu
			touched = true
		}
	}

	if res := results["technical"]; s.facetOK("technical", res) {
		var facts technicalFacts
		if err := extractJSON(res.text, &facts); err != nil {
			s.facetFailed("technical", err)
		} else if facts.Context != "" {
			conf := technicalConfidence
			update.Technical = &memory.TechnicalUpdate{
				Context:    &facts.Context,
				Confidence: &conf,
				UpdatedAt:  &now,
			}
			touched = true
		}
	}

	if res := results["summary"]; s.facetOK("summary", res) {
		if summary := trimSummary(res.text); summary != "" {
			update.Summary = &summary
			touched = true
		}
	}

	return update, touched
}

// facetOK reports whether a facet call succeeded, recording the failure
// otherwise.
func (s *Summarizer) facetOK(kind string, res extraction) bool {
	if res.err != nil {
		s.facetFailed(kind, res.err)
		return false
	}
	return res.text != ""
}

// facetFailed logs and counts one failed facet.
func (s *Summarizer) facetFailed(kind string, err error) {
	slog.Warn("extraction call failed, facet skipped", "kind", kind, "error", err)
	s.metrics.RecordExtractionFailure(kind)
}
