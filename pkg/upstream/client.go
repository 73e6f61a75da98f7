package upstream

import "context"

// Content is a single conversational turn in an outbound request payload.
type Content struct {
	// Role is "user" or "model".
	Role string

	// Text is the turn's text content.
	Text string

	// InlineImage is an optional image attachment.
	InlineImage *InlineImage
}

// InlineImage is a base64-encoded image attached to a turn.
type InlineImage struct {
	// MimeType is the image MIME type (e.g., "image/png").
	MimeType string

	// Data is the base64-encoded image bytes.
	Data string
}

// Payload is the assembled request payload sent to the upstream model.
// The prompt assembler builds it; the client translates it to the wire format.
type Payload struct {
	// SystemInstruction is the combined instruction/context block, treated as
	// binding by the model. May be empty.
	SystemInstruction string

	// Contents is the ordered conversation: bounded recent history followed by
	// the live user message as the final turn.
	Contents []Content
}

// Stream yields incremental text fragments from a streaming generation call.
// Recv returns io.EOF when the stream ends normally. Close releases the
// underlying connection and is safe to call multiple times.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client issues generation requests to the upstream model API.
//
// Implementations perform no retries; fallback policy belongs to the caller.
// Both methods honor ctx cancellation and surface the typed error taxonomy
// defined in this package (RateLimitError, TimeoutError, UpstreamError,
// ParseError).
type Client interface {
	// Generate issues a blocking, non-streaming generation request and
	// returns the full response text.
	Generate(ctx context.Context, payload *Payload, model string) (string, error)

	// GenerateStream opens a streaming generation request. The returned
	// Stream must be closed by the caller.
	GenerateStream(ctx context.Context, payload *Payload, model string) (Stream, error)
}
