// Package relay owns the live response channel between the upstream model
// stream and the browser client.
//
// Each request runs a small state machine: START opens the upstream streaming
// call with the selected model; STREAMING re-frames incremental upstream text
// into client-facing SSE events while accumulating the full output; a
// quota-exceeded open failure on the primary model earns exactly one FALLBACK
// attempt against the cheaper model with the identical payload; everything
// ends in COMPLETE or FAILED with exactly one terminal frame, guaranteed by a
// deferred cleanup path that survives panics.
//
// A completed turn whose safe history meets the length threshold schedules
// the background summarizer without waiting for it. Client aborts end the
// session silently and never trigger summarization.
package relay
