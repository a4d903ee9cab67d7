package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_ComponentAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, JSON: true, Output: &buf})

	ctx := WithRequestID(context.Background(), "req-1")
	l.InfoContext(ctx, "hello", "n", 1)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v", rec[FieldRequestID])
	}
	if l.Component() != ComponentWorker {
		t.Errorf("Component() = %q", l.Component())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})

	l.Info("dropped")
	l.Warn("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestContextHandler_NoRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).With("k", "v")
	l.InfoContext(context.Background(), "plain")

	if strings.Contains(buf.String(), FieldRequestID) {
		t.Errorf("unexpected request_id: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("With attrs lost: %q", buf.String())
	}
	if RequestID(context.Background()) != "" {
		t.Error("RequestID on empty context should be empty")
	}
}
