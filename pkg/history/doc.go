// Package history persists completed conversation turns in a SQLite
// transcript store.
//
// The browser client remains the source of truth for the history sent with
// each request; the transcript is a server-side audit trail with a
// retention-bounded lifetime. Writes happen after the response is delivered
// and never block the request path.
package history
