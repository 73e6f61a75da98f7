// Package gemini implements the upstream.Client interface against the Google
// Gemini generative language API.
//
// Non-streaming calls go to the models/<model>:generateContent endpoint and
// are bounded by a 15 second default deadline. Streaming calls use
// models/<model>:streamGenerateContent with alt=sse, relying on the API's
// documented SSE chunk boundaries: each event carries a JSON chunk whose
// candidates hold incremental text parts. The stream reader reassembles
// events that arrive split across network reads before parsing them.
//
// HTTP failures are mapped onto the typed errors in package upstream: 429
// becomes RateLimitError, deadline expiry becomes TimeoutError, and anything
// else becomes UpstreamError. The client never retries.
package gemini
