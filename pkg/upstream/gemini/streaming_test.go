package gemini

import (
	"errors"
	"io"
	"strings"
	"testing"

	"mercator-hq/ganymede/pkg/upstream"
)

// chunkedReader returns one predefined chunk per Read call, simulating
// network reads that split SSE frames at arbitrary byte boundaries.
type chunkedReader struct {
	chunks []string
	pos    int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	r.pos++
	return n, nil
}

func (r *chunkedReader) Close() error { return nil }

func chunkJSON(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]}}]}`
}

func TestStreamReaderSingleEvent(t *testing.T) {
	body := "data: " + chunkJSON("hello world") + "\n\n"
	reader := newStreamReader("gemini-2.5-flash", io.NopCloser(strings.NewReader(body)))
	defer reader.Close()

	text, err := reader.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", text)
	}

	if _, err := reader.Recv(); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestStreamReaderSplitAcrossReads(t *testing.T) {
	// A single data frame split mid-text across two network reads must be
	// reassembled into one fragment, not two partials.
	frame := "data: " + chunkJSON("hello") + "\n\n"
	split := strings.Index(frame, "hel") + 3

	reader := newStreamReader("gemini-2.5-flash", &chunkedReader{
		chunks: []string{frame[:split], frame[split:]},
	})
	defer reader.Close()

	text, err := reader.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Errorf("expected reassembled fragment %q, got %q", "hello", text)
	}

	if _, err := reader.Recv(); err != io.EOF {
		t.Errorf("expected io.EOF after single fragment, got %v", err)
	}
}

func TestStreamReaderMultipleEvents(t *testing.T) {
	body := "data: " + chunkJSON("one") + "\n\n" +
		"data: " + chunkJSON("two") + "\n\n" +
		"data: " + chunkJSON("three") + "\n\n"

	reader := newStreamReader("gemini-2.5-flash", io.NopCloser(strings.NewReader(body)))
	defer reader.Close()

	var got []string
	for {
		text, err := reader.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, text)
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStreamReaderFinishReason(t *testing.T) {
	body := "data: " + chunkJSON("partial") + "\n\n" +
		`data: {"candidates":[{"content":{"parts":[{"text":" done"}]},"finishReason":"STOP"}]}` + "\n\n"

	reader := newStreamReader("gemini-2.5-flash", io.NopCloser(strings.NewReader(body)))
	defer reader.Close()

	first, err := reader.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "partial" {
		t.Errorf("expected %q, got %q", "partial", first)
	}

	second, err := reader.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != " done" {
		t.Errorf("expected final fragment %q, got %q", " done", second)
	}

	if _, err := reader.Recv(); err != io.EOF {
		t.Errorf("expected io.EOF after finish reason, got %v", err)
	}
}

func TestStreamReaderErrorChunk(t *testing.T) {
	body := `data: {"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota exhausted"}}` + "\n\n"

	reader := newStreamReader("gemini-2.5-pro", io.NopCloser(strings.NewReader(body)))
	defer reader.Close()

	_, err := reader.Recv()
	if err == nil {
		t.Fatal("expected error from error chunk")
	}

	var ue *upstream.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *upstream.UpstreamError, got %T", err)
	}
	if ue.StatusCode != 429 {
		t.Errorf("expected status 429, got %d", ue.StatusCode)
	}
}

func TestStreamReaderSkipsMalformedChunks(t *testing.T) {
	body := "data: {not json}\n\n" +
		"data: " + chunkJSON("recovered") + "\n\n"

	reader := newStreamReader("gemini-2.5-flash", io.NopCloser(strings.NewReader(body)))
	defer reader.Close()

	text, err := reader.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("expected %q, got %q", "recovered", text)
	}
}

func TestStreamReaderRecvAfterClose(t *testing.T) {
	reader := newStreamReader("gemini-2.5-flash", io.NopCloser(strings.NewReader("")))

	if err := reader.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	if _, err := reader.Recv(); err != io.EOF {
		t.Errorf("expected io.EOF after close, got %v", err)
	}
}
