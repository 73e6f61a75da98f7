// Package prompt assembles outbound request payloads from system
// instructions, fresh memory context, and a bounded recent-history window.
//
// Assembly is a pure function, which keeps the freshness gate and ordering
// rules trivially testable. History is truncated to the last eight turns
// before use; older turns are assumed already folded into the persisted
// summary, which is always injected when present.
package prompt
