package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/upstream"
)

func testPayload() *upstream.Payload {
	return &upstream.Payload{
		SystemInstruction: "You are a helpful assistant.",
		Contents: []upstream.Content{
			{Role: "user", Text: "hello"},
		},
	}
}

func newTestClient(serverURL string, timeout time.Duration) *Client {
	return New(Config{
		BaseURL:         serverURL,
		APIKey:          "test-key",
		GenerateTimeout: timeout,
	})
}

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil {
			t.Error("expected system instruction in request")
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hi "},{"text":"there"}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	text, err := client.Generate(context.Background(), testPayload(), "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hi there" {
		t.Errorf("expected joined candidate text %q, got %q", "hi there", text)
	}
}

func TestGenerateQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"quota exhausted"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	_, err := client.Generate(context.Background(), testPayload(), "gemini-2.5-pro")
	if !upstream.IsQuotaExceeded(err) {
		t.Fatalf("expected quota exceeded error, got %v", err)
	}

	var rle *upstream.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *upstream.RateLimitError, got %T", err)
	}
	if rle.RetryAfter != 30*time.Second {
		t.Errorf("expected retry after 30s, got %s", rle.RetryAfter)
	}
}

func TestGenerateTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := newTestClient(server.URL, 50*time.Millisecond)

	_, err := client.Generate(context.Background(), testPayload(), "gemini-2.5-flash")
	if !upstream.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "internal error")
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	_, err := client.Generate(context.Background(), testPayload(), "gemini-2.5-flash")

	var ue *upstream.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *upstream.UpstreamError, got %T (%v)", err, err)
	}
	if ue.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", ue.StatusCode)
	}
}

func TestGenerateErrorBodyWithOKStatus(t *testing.T) {
	// Gemini sometimes reports errors in a 200 body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":{"code":400,"message":"invalid argument"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	_, err := client.Generate(context.Background(), testPayload(), "gemini-2.5-flash")

	var ue *upstream.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *upstream.UpstreamError, got %T (%v)", err, err)
	}
	if ue.StatusCode != 400 {
		t.Errorf("expected embedded status 400, got %d", ue.StatusCode)
	}
}

func TestGenerateStreamSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse, got %q", r.URL.Query().Get("alt"))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: "+chunkJSON("streamed")+"\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	stream, err := client.GenerateStream(context.Background(), testPayload(), "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	text, err := stream.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "streamed" {
		t.Errorf("expected %q, got %q", "streamed", text)
	}
}

func TestGenerateStreamStalledUpstreamTimesOut(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		// Headers are out, then the upstream goes silent.
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := New(Config{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		StreamTimeout: 50 * time.Millisecond,
	})

	stream, err := client.GenerateStream(context.Background(), testPayload(), "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer stream.Close()

	done := make(chan error, 1)
	go func() {
		_, recvErr := stream.Recv()
		done <- recvErr
	}()

	select {
	case recvErr := <-done:
		if !upstream.IsTimeout(recvErr) {
			t.Fatalf("expected timeout error from stalled stream, got %v", recvErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv blocked past the stream timeout")
	}
}

func TestGenerateStreamOpenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"quota exhausted"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)

	_, err := client.GenerateStream(context.Background(), testPayload(), "gemini-2.5-pro")
	if !upstream.IsQuotaExceeded(err) {
		t.Fatalf("expected quota exceeded on stream open, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"0", 0},
		{"-5", 0},
		{"not-a-number", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
