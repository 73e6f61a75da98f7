package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRegistersFamilies(t *testing.T) {
	c := NewCollector(Config{})

	c.Relay.RecordTurn("gemini-2.5-pro", "stream", "complete")
	c.Relay.RecordChunk("gemini-2.5-pro")
	c.Relay.RecordFallback("gemini-2.5-flash", "success")
	c.Relay.ObserveStreamDuration("gemini-2.5-pro", 2*time.Second)
	c.Summarizer.RecordRun("merged")
	c.Summarizer.RecordExtractionFailure("project")
	c.Summarizer.RecordMemorySave()

	if got := testutil.CollectAndCount(c.Relay.turnsTotal); got != 1 {
		t.Errorf("expected 1 turns_total series, got %d", got)
	}
	if got := testutil.ToFloat64(c.Summarizer.memorySaves); got != 1 {
		t.Errorf("expected 1 memory save, got %v", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector(Config{Namespace: "testns"})
	c.Relay.RecordTurn("m", "unary", "complete")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "testns_turns_total") {
		t.Error("expected namespaced turn counter in exposition output")
	}
}

func TestNilReceiversAreSafe(t *testing.T) {
	var rm *RelayMetrics
	var sm *SummarizerMetrics

	// Must not panic.
	rm.RecordTurn("m", "stream", "failed")
	rm.RecordChunk("m")
	rm.RecordFallback("m", "failed")
	rm.ObserveStreamDuration("m", time.Second)
	sm.RecordRun("failed")
	sm.RecordExtractionFailure("summary")
	sm.RecordMemorySave()
}
