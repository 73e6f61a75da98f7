// Package mockgemini provides a mock Gemini API server for testing.
//
// The server speaks the generateContent and streamGenerateContent wire
// formats, including SSE framing, and can be scripted per model to return
// text, streamed chunks, quota errors, or slow responses.
package mockgemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Response defines a scripted response for one model.
type Response struct {
	StatusCode   int
	Body         any
	Delay        time.Duration
	Headers      map[string]string
	StreamChunks []string
}

// Server is a mock Gemini API server.
type Server struct {
	server       *httptest.Server
	responses    map[string]Response
	requestCount int
	mu           sync.Mutex
}

// NewServer creates a started mock server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		responses: make(map[string]Response),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the base URL to use as the client's BaseURL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// SetResponse scripts the response for a model. Both generateContent and
// streamGenerateContent for that model use the same script.
func (s *Server) SetResponse(model string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[model] = response
}

// RequestCount returns the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

// ResetRequestCount resets the request counter.
func (s *Server) ResetRequestCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestCount = 0
}

// handler routes /models/{model}:generateContent and
// /models/{model}:streamGenerateContent to the scripted response.
func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requestCount++
	s.mu.Unlock()

	model, streaming, ok := parsePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	response, found := s.responses[model]
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if streaming && response.StatusCode < 300 && len(response.StreamChunks) > 0 {
		s.handleStream(w, response)
		return
	}

	w.WriteHeader(response.StatusCode)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// handleStream writes the scripted chunks as SSE frames, the way the
// upstream's alt=sse framing does.
func (s *Server) handleStream(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
		time.Sleep(time.Millisecond)
	}
}

// parsePath extracts the model name from a generateContent or
// streamGenerateContent path.
func parsePath(path string) (model string, streaming bool, ok bool) {
	rest, found := strings.CutPrefix(path, "/models/")
	if !found {
		return "", false, false
	}

	if m, found := strings.CutSuffix(rest, ":streamGenerateContent"); found {
		return m, true, true
	}
	if m, found := strings.CutSuffix(rest, ":generateContent"); found {
		return m, false, true
	}
	return "", false, false
}

// TextResponse creates a successful generateContent response carrying text.
func TextResponse(content string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       candidateBody(content, "STOP"),
	}
}

// StreamResponse creates a successful streaming response delivering the given
// text fragments as separate chunks.
func StreamResponse(fragments ...string) Response {
	chunks := make([]string, 0, len(fragments))
	for i, fragment := range fragments {
		finish := ""
		if i == len(fragments)-1 {
			finish = "STOP"
		}
		encoded, _ := json.Marshal(candidateBody(fragment, finish))
		chunks = append(chunks, string(encoded))
	}
	return Response{
		StatusCode:   http.StatusOK,
		StreamChunks: chunks,
	}
}

// QuotaError creates a 429 response with a Retry-After header.
func QuotaError(retryAfter int) Response {
	return Response{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)},
		Body: map[string]any{
			"error": map[string]any{
				"code":    http.StatusTooManyRequests,
				"status":  "RESOURCE_EXHAUSTED",
				"message": "Quota exceeded",
			},
		},
	}
}

// ServerError creates a 500 response.
func ServerError() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body: map[string]any{
			"error": map[string]any{
				"code":    http.StatusInternalServerError,
				"status":  "INTERNAL",
				"message": "Internal error",
			},
		},
	}
}

// SlowResponse creates a successful response delayed past the given duration,
// for timeout testing.
func SlowResponse(delay time.Duration) Response {
	r := TextResponse("too late")
	r.Delay = delay
	return r
}

// candidateBody builds the wire shape of a generateContent response.
func candidateBody(text, finishReason string) map[string]any {
	candidate := map[string]any{
		"content": map[string]any{
			"role": "model",
			"parts": []map[string]any{
				{"text": text},
			},
		},
	}
	if finishReason != "" {
		candidate["finishReason"] = finishReason
	}
	return map[string]any{
		"candidates": []map[string]any{candidate},
	}
}
