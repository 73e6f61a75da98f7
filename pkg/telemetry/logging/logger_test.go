package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["key"] != "value" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Debug("verbose detail")
	if !strings.Contains(buf.String(), "verbose detail") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn must pass at warn level")
	}
}

func TestInvalidLevelRejected(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithModel(ctx, "gemini-2.5-pro")
	ctx = WithSession(ctx, "sess-9")

	fields := extractContextFields(ctx)
	if len(fields) != 6 {
		t.Fatalf("expected 3 key-value pairs, got %v", fields)
	}

	got := map[string]string{}
	for i := 0; i < len(fields); i += 2 {
		got[fields[i].(string)] = fields[i+1].(string)
	}
	if got["request_id"] != "req-1" || got["model"] != "gemini-2.5-pro" || got["session"] != "sess-9" {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestExtractContextFieldsEmpty(t *testing.T) {
	if fields := extractContextFields(context.Background()); len(fields) != 0 {
		t.Errorf("expected no fields for bare context, got %v", fields)
	}
}
