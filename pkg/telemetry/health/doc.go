// Package health provides liveness and readiness checking for the proxy.
//
// Liveness is a fast process-alive probe; readiness runs registered component
// checks (memory store writability, transcript database, upstream
// reachability) concurrently and degrades when any fails.
package health
