package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/history"
	"mercator-hq/ganymede/pkg/memory"
	"mercator-hq/ganymede/pkg/prompt"
	"mercator-hq/ganymede/pkg/relay"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/upstream"
)

// maxRequestBody bounds request bodies; inline images ride in the history.
const maxRequestBody = 16 << 20 // 16MB

// generateRequest is the body of POST /api/generate and
// POST /api/generate-stream.
type generateRequest struct {
	// Message is the live user message.
	Message string `json:"message"`

	// History is the prior conversation, oldest first. The client is the
	// source of truth for it.
	History []prompt.Turn `json:"history"`

	// Model optionally overrides model selection. Unknown names fall back
	// to policy selection.
	Model string `json:"model,omitempty"`

	// SessionID groups turns in the transcript store. Generated when empty.
	SessionID string `json:"sessionId,omitempty"`
}

// generateResponse is the body of a successful POST /api/generate.
type generateResponse struct {
	Response       string        `json:"response"`
	UpdatedHistory []prompt.Turn `json:"updatedHistory"`
}

// errorResponse is the JSON error body for non-streaming endpoints.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`

	// RetryAfter is the suggested wait in seconds, on quota errors.
	RetryAfter int `json:"retryAfter,omitempty"`
}

// API serves the chat endpoints. The relay is swappable so the model policy
// can be hot-reloaded from the config watcher.
type API struct {
	client     upstream.Client
	memory     *memory.Store
	transcript *history.Store
	scheduler  relay.Scheduler
	metrics    *metrics.Collector

	mu    sync.RWMutex
	relay *relay.Relay
}

// NewAPI creates the chat API. transcript and scheduler may be nil;
// the corresponding behavior (transcript persistence, summarization) is then
// disabled.
func NewAPI(client upstream.Client, store *memory.Store, transcript *history.Store, scheduler relay.Scheduler, policy relay.ModelPolicy, m *metrics.Collector) *API {
	a := &API{
		client:     client,
		memory:     store,
		transcript: transcript,
		scheduler:  scheduler,
		metrics:    m,
	}
	a.relay = relay.New(client, policy, scheduler, a.relayMetrics())
	return a
}

// SetPolicy swaps the model selection policy, for config hot reload.
func (a *API) SetPolicy(policy relay.ModelPolicy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.relay = relay.New(a.client, policy, a.scheduler, a.relayMetrics())
}

func (a *API) currentRelay() *relay.Relay {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.relay
}

func (a *API) relayMetrics() *metrics.RelayMetrics {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Relay
}

// parseRequest decodes and validates a generate request. It returns a nil
// request and writes the 400 response itself when validation fails.
func (a *API) parseRequest(w http.ResponseWriter, r *http.Request) *generateRequest {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req generateRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, errorResponse{
			Error:   "INVALID_REQUEST",
			Message: "request body must be valid JSON",
		})
		return nil
	}

	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, errorResponse{
			Error:   "INVALID_REQUEST",
			Message: "message is required",
		})
		return nil
	}

	for i, turn := range req.History {
		if !prompt.ValidRole(turn.Role) {
			writeJSONError(w, http.StatusBadRequest, errorResponse{
				Error:   "INVALID_REQUEST",
				Message: fmt.Sprintf("history[%d] has invalid role %q", i, turn.Role),
			})
			return nil
		}
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	return &req
}

// handleGenerate serves POST /api/generate: one buffered, non-streaming turn.
// The fallback-once policy applies only to streaming; a quota failure here
// surfaces as 429 directly.
func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := a.parseRequest(w, r)
	if req == nil {
		return
	}

	rec := a.memory.Load()
	payload := prompt.Assemble(rec, req.History, req.Message, time.Now())

	rly := a.currentRelay()
	model := rly.SelectModel(req.Model, req.Message)
	ctx := logging.WithModel(logging.WithSession(r.Context(), req.SessionID), model)

	text, err := a.client.Generate(ctx, payload, model)
	if err != nil {
		a.writeUpstreamError(w, model, err)
		return
	}

	historyWithUser := append(append([]prompt.Turn{}, req.History...), prompt.Turn{
		Role:    prompt.RoleUser,
		Content: req.Message,
	})
	updated := append(historyWithUser, prompt.Turn{
		Role:    prompt.RoleModel,
		Content: text,
	})

	if a.metrics != nil {
		a.metrics.Relay.RecordTurn(model, "generate", "complete")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(generateResponse{
		Response:       text,
		UpdatedHistory: updated,
	})

	a.afterTurn(req.SessionID, historyWithUser, text)
}

// handleGenerateStream serves POST /api/generate-stream: the SSE relay.
func (a *API) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := a.parseRequest(w, r)
	if req == nil {
		return
	}

	rec := a.memory.Load()
	payload := prompt.Assemble(rec, req.History, req.Message, time.Now())

	rly := a.currentRelay()
	model := rly.SelectModel(req.Model, req.Message)
	ctx := logging.WithModel(logging.WithSession(r.Context(), req.SessionID), model)

	historyWithUser := append(append([]prompt.Turn{}, req.History...), prompt.Turn{
		Role:    prompt.RoleUser,
		Content: req.Message,
	})

	sse := relay.NewSSEWriter(w)
	res := rly.Run(ctx, sse, payload, historyWithUser, model)

	if res.State == relay.StateComplete {
		a.recordTranscript(req.SessionID, historyWithUser[len(historyWithUser)-1], prompt.Turn{
			Role:    prompt.RoleModel,
			Content: res.Text,
		})
	}
}

// afterTurn applies the post-turn side effects of a buffered turn: transcript
// persistence and, at the history threshold, background summarization. The
// relay handles both for streaming turns.
func (a *API) afterTurn(sessionID string, historyWithUser []prompt.Turn, responseText string) {
	a.recordTranscript(sessionID, historyWithUser[len(historyWithUser)-1], prompt.Turn{
		Role:    prompt.RoleModel,
		Content: responseText,
	})

	if a.scheduler != nil && relay.ShouldSummarize(historyWithUser) {
		updated := append(append([]prompt.Turn{}, historyWithUser...), prompt.Turn{
			Role:    prompt.RoleModel,
			Content: responseText,
		})
		a.scheduler.Schedule(prompt.SafeHistory(updated))
	}
}

// recordTranscript persists the turn pair off the request path. Transcript
// failures degrade to a log line.
func (a *API) recordTranscript(sessionID string, turns ...prompt.Turn) {
	if a.transcript == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.transcript.AppendTurns(ctx, sessionID, turns); err != nil {
			slog.Error("failed to persist transcript turns", "session", sessionID, "error", err)
		}
	}()
}

// writeUpstreamError maps an upstream failure to the JSON error contract.
func (a *API) writeUpstreamError(w http.ResponseWriter, model string, err error) {
	if a.metrics != nil {
		a.metrics.Relay.RecordTurn(model, "generate", "failed")
	}

	var rle *upstream.RateLimitError
	if errors.As(err, &rle) {
		resp := errorResponse{
			Error:   relay.CodeQuotaExceeded,
			Message: "Model quota exceeded. Try again shortly.",
		}
		if rle.RetryAfter > 0 {
			resp.RetryAfter = int(rle.RetryAfter.Seconds())
		}
		writeJSONError(w, http.StatusTooManyRequests, resp)
		return
	}

	if upstream.IsTimeout(err) {
		writeJSONError(w, http.StatusGatewayTimeout, errorResponse{
			Error:   "UPSTREAM_TIMEOUT",
			Message: "The model did not respond in time.",
		})
		return
	}

	slog.Error("upstream generation failed", "model", model, "error", err)
	writeJSONError(w, http.StatusBadGateway, errorResponse{
		Error:   "UPSTREAM_ERROR",
		Message: "The model request failed. Please try again.",
	})
}

func writeJSONError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
