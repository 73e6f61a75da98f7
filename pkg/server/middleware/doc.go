// Package middleware provides the HTTP middleware chain for the proxy:
// request IDs, structured request logging, panic recovery, and CORS.
package middleware
