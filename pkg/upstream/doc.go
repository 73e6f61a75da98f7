// Package upstream defines the client interface and error taxonomy for the
// hosted model API.
//
// The Client interface covers the two request shapes the relay needs: a
// blocking Generate call used by the non-streaming endpoint and the background
// summarizer, and a GenerateStream call that yields incremental text
// fragments. Concrete implementations live in subpackages (see
// upstream/gemini).
//
// Errors are typed structs rather than sentinel values so callers can branch
// on failure class while preserving the full error chain:
//
//	text, err := client.Generate(ctx, payload, model)
//	if upstream.IsQuotaExceeded(err) {
//		// surface a retry affordance to the caller
//	}
//
// Clients never retry; the relay owns the fallback-once policy.
package upstream
