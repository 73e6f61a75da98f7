// Package memory implements the durable distilled-conversation record and its
// file-backed store.
//
// The record has three independently merged sub-records (profile, project,
// technical) plus a free-text summary that is replaced wholesale on every
// update. Each sub-record carries an extraction confidence and update
// timestamp; the two-part freshness gate (updated within 7 days AND
// confidence >= 0.6) decides whether it is injected into future prompts.
//
// The store is a single JSON file written with atomic replacement. Load never
// fails: missing or corrupt state degrades to the empty record so a memory
// problem can never fail a chat turn.
package memory
