// Package metrics provides Prometheus instrumentation for the relay and the
// background summarizer.
//
// A single Collector owns the registry and every metric family; it is created
// once at startup and injected into the components that record into it. All
// recording methods are nil-receiver safe so tests can run without a
// collector.
package metrics
