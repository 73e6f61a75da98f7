// Package logging configures the process-wide structured logger and carries
// common request fields (request id, model, session) through context.
package logging
