package gemini

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/upstream"
)

// streamReader reads Server-Sent Events from Gemini's streaming API and
// yields one text fragment per upstream chunk.
//
// The scanner retains any unconsumed partial line across network reads, so a
// data frame split between two reads is reassembled and emitted once, whole,
// rather than dropped or emitted in pieces.
type streamReader struct {
	model   string
	body    io.ReadCloser
	scanner *bufio.Scanner

	// ctx carries the stream-lifetime deadline when set; cancel releases it
	// on Close. A stalled upstream surfaces as TimeoutError, not a hung Recv.
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	closeOnce sync.Once
	done      bool
}

// maxEventSize bounds a single SSE line; upstream chunks are small, but a
// model can emit long uninterrupted text runs.
const maxEventSize = 1024 * 1024

// newStreamReader creates a stream reader over an open response body.
func newStreamReader(model string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	return &streamReader{
		model:   model,
		body:    body,
		scanner: scanner,
	}
}

// bindDeadline attaches the stream-lifetime context. When the deadline fires
// the in-flight body read aborts and Recv returns a TimeoutError.
func (s *streamReader) bindDeadline(ctx context.Context, cancel context.CancelFunc, timeout time.Duration) {
	s.ctx = ctx
	s.cancel = cancel
	s.timeout = timeout
}

// Recv returns the next non-empty text fragment from the stream.
// It returns io.EOF when the stream ends normally.
func (s *streamReader) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		data, err := s.readEvent()
		if err != nil {
			s.done = true
			return "", err
		}

		chunk, err := parseResponse(data)
		if err != nil {
			// A malformed chunk is skipped rather than aborting the stream;
			// the next chunk usually parses fine.
			continue
		}

		if chunk.Error != nil {
			s.done = true
			return "", &upstream.UpstreamError{
				Model:      s.model,
				StatusCode: chunk.Error.Code,
				Message:    chunk.Error.Message,
			}
		}

		text := extractText(chunk)

		finished := len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != ""
		if finished {
			s.done = true
			if text != "" {
				return text, nil
			}
			return "", io.EOF
		}

		if text != "" {
			return text, nil
		}
	}
}

// readEvent reads lines until a complete SSE event has been assembled and
// returns its concatenated data payload. Returns io.EOF at end of stream.
func (s *streamReader) readEvent() ([]byte, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line marks end of event.
		if line == "" {
			if len(dataLines) > 0 {
				return []byte(strings.Join(dataLines, "\n")), nil
			}
			continue
		}

		if data, ok := strings.CutPrefix(line, "data: "); ok {
			dataLines = append(dataLines, data)
			continue
		}

		// Comment lines and other SSE fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		if s.ctx != nil && errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
			return nil, &upstream.TimeoutError{Model: s.model, Timeout: s.timeout}
		}
		return nil, &upstream.UpstreamError{
			Model:   s.model,
			Message: "stream read failure",
			Cause:   err,
		}
	}

	// Stream ended without a trailing blank line: flush the final event.
	if len(dataLines) > 0 {
		return []byte(strings.Join(dataLines, "\n")), nil
	}

	return nil, io.EOF
}

// Close releases the underlying connection and the stream-lifetime deadline.
// Safe to call multiple times.
func (s *streamReader) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.done = true
		err = s.body.Close()
		if s.cancel != nil {
			s.cancel()
		}
	})
	return err
}
