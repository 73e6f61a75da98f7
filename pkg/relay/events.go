package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Terminal error codes surfaced to the client. QUOTA_EXCEEDED tells the
// client a retry affordance is worthwhile; STREAMING_NOT_AVAILABLE covers
// everything else.
const (
	CodeQuotaExceeded        = "QUOTA_EXCEEDED"
	CodeStreamingUnavailable = "STREAMING_NOT_AVAILABLE"
)

// EventWriter is the client-facing event channel for one streaming turn.
//
// WriteChunk emits one incremental text fragment; WriteEnd emits the terminal
// frame carrying the full accumulated text; WriteError emits the terminal
// error frame. Exactly one terminal frame is written per turn.
type EventWriter interface {
	WriteChunk(text string) error
	WriteEnd(fullText string) error
	WriteError(code string) error
}

// SSEWriter writes the client event protocol as Server-Sent Events:
//
//	data: "<JSON-encoded text chunk>"
//
//	event: end
//	data: "<JSON-encoded full text>"
//
//	event: error
//	data: QUOTA_EXCEEDED
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter sets SSE headers on w, flushes them, and returns the writer.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	return &SSEWriter{w: w, flusher: flusher}
}

// WriteChunk writes one incremental text fragment.
func (s *SSEWriter) WriteChunk(text string) error {
	data, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	s.flush()
	return nil
}

// WriteEnd writes the terminal end frame carrying the full accumulated text.
func (s *SSEWriter) WriteEnd(fullText string) error {
	data, err := json.Marshal(fullText)
	if err != nil {
		return fmt.Errorf("failed to marshal end frame: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: end\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write end frame: %w", err)
	}

	s.flush()
	return nil
}

// WriteError writes the terminal error frame carrying a string error code.
func (s *SSEWriter) WriteError(code string) error {
	if _, err := fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", code); err != nil {
		return fmt.Errorf("failed to write error frame: %w", err)
	}

	s.flush()
	return nil
}

// flush pushes buffered frames to the client immediately.
func (s *SSEWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
