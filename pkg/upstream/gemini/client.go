package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/ganymede/pkg/upstream"
)

const (
	// DefaultBaseURL is the Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGenerateTimeout bounds non-streaming generation requests.
	DefaultGenerateTimeout = 15 * time.Second

	// DefaultStreamTimeout bounds the total lifetime of a streaming call.
	DefaultStreamTimeout = 5 * time.Minute
)

// tracerName identifies spans emitted by this package.
const tracerName = "mercator-hq/ganymede/pkg/upstream/gemini"

// GenerationConfig controls optional generation parameters.
type GenerationConfig struct {
	// Temperature controls sampling randomness (0 leaves the upstream default).
	Temperature float64

	// MaxOutputTokens caps the response length (0 leaves the upstream default).
	MaxOutputTokens int
}

// Config contains configuration for the Gemini client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the Gemini API key. Required.
	APIKey string

	// GenerateTimeout bounds non-streaming requests.
	// Defaults to DefaultGenerateTimeout.
	GenerateTimeout time.Duration

	// StreamTimeout bounds the total lifetime of a streaming call, so a
	// stalled upstream cannot hold a relay open indefinitely.
	// Defaults to DefaultStreamTimeout.
	StreamTimeout time.Duration

	// Generation holds optional generation parameters applied to every request.
	Generation GenerationConfig
}

// Client implements upstream.Client against the Gemini API.
//
// The client performs no retries and no fallback; it maps upstream failures
// onto the typed errors in package upstream and leaves policy to the caller.
type Client struct {
	baseURL         string
	apiKey          string
	generateTimeout time.Duration
	streamTimeout   time.Duration
	generation      GenerationConfig
	httpClient      *http.Client
}

// New creates a new Gemini client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	generateTimeout := cfg.GenerateTimeout
	if generateTimeout <= 0 {
		generateTimeout = DefaultGenerateTimeout
	}

	streamTimeout := cfg.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = DefaultStreamTimeout
	}

	return &Client{
		baseURL:         baseURL,
		apiKey:          cfg.APIKey,
		generateTimeout: generateTimeout,
		streamTimeout:   streamTimeout,
		generation:      cfg.Generation,
		httpClient: &http.Client{
			// No client-wide timeout: streaming responses live longer than any
			// sane request timeout. Deadlines come from the request context.
			Timeout: 0,
		},
	}
}

// Generate issues a blocking generation request and returns the full text.
// The call is bounded by the configured generate timeout.
func (c *Client) Generate(ctx context.Context, payload *upstream.Payload, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "gemini.Generate")
	span.SetAttributes(attribute.String("gen_ai.request.model", model))
	defer span.End()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	resp, err := c.doRequest(ctx, url, payload, model, c.generateTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransportError(ctx, model, err, c.generateTimeout)
	}

	parsed, err := parseResponse(body)
	if err != nil {
		return "", &upstream.ParseError{Model: model, RawResponse: string(body), Cause: err}
	}

	if parsed.Error != nil {
		return "", &upstream.UpstreamError{
			Model:      model,
			StatusCode: parsed.Error.Code,
			Message:    parsed.Error.Message,
		}
	}

	text := extractText(parsed)
	if text == "" {
		return "", &upstream.ParseError{
			Model:       model,
			RawResponse: string(body),
			Cause:       errors.New("response contained no text candidates"),
		}
	}

	return text, nil
}

// GenerateStream opens a streaming generation request using the upstream's
// SSE framing (alt=sse). The call's total lifetime is bounded by the stream
// timeout, so a stalled upstream surfaces a TimeoutError instead of holding
// the relay open. The returned stream must be closed by the caller.
func (c *Client) GenerateStream(ctx context.Context, payload *upstream.Payload, model string) (upstream.Stream, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, model, c.apiKey)

	streamCtx, cancel := context.WithTimeout(ctx, c.streamTimeout)

	resp, err := c.doRequest(streamCtx, url, payload, model, c.streamTimeout)
	if err != nil {
		cancel()
		return nil, err
	}

	reader := newStreamReader(model, resp.Body)
	reader.bindDeadline(streamCtx, cancel, c.streamTimeout)
	return reader, nil
}

// doRequest marshals the payload, performs the HTTP call, and maps non-2xx
// statuses onto the typed error taxonomy. timeout is the deadline governing
// ctx, reported on TimeoutError. On success the caller owns the body.
func (c *Client) doRequest(ctx context.Context, url string, payload *upstream.Payload, model string, timeout time.Duration) (*http.Response, error) {
	wireReq := buildRequest(payload, c.generation)

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(ctx, model, err, timeout)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, &upstream.RateLimitError{
			Model:      model,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(errorBody),
		}

	default:
		slog.Debug("upstream returned error status",
			"model", model,
			"status", resp.StatusCode,
		)
		return nil, &upstream.UpstreamError{
			Model:      model,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}
}

// wrapTransportError distinguishes deadline expiry from other transport
// failures.
func wrapTransportError(ctx context.Context, model string, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &upstream.TimeoutError{Model: model, Timeout: timeout}
	}
	return &upstream.UpstreamError{Model: model, Message: "transport failure", Cause: err}
}

// parseRetryAfter parses a Retry-After header value in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
