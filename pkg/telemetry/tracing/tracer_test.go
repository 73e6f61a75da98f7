package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer.Enabled() {
		t.Error("tracer should report disabled")
	}

	// Span creation must be safe against the noop provider.
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown must not fail: %v", err)
	}
}
