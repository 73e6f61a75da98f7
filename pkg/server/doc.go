// Package server provides the HTTP surface of the chat proxy: the buffered
// and streaming generation endpoints, health probes, and the Prometheus
// metrics endpoint, wrapped in the request-id, logging, recovery, and CORS
// middleware chain. Shutdown drains background workers within the configured
// grace period.
package server
