// Package summarizer distills completed conversation turns into the durable
// memory record.
//
// One run issues four independent extraction calls against the upstream model
// (profile, project, technical context, narrative summary) over the same
// transcript, waits for all of them, and merges whatever succeeded into a
// single memory save. A failed or unparseable facet is skipped so its stored
// sub-record is left untouched rather than overwritten with blanks.
//
// Runs are scheduled after a turn's response has already been delivered and
// never block or fail the request path. Shutdown waits for in-flight runs up
// to a bounded grace period.
package summarizer
