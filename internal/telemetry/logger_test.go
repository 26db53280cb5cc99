package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	l.Info("command", map[string]any{"verb": "fill", "accepted": true})
	l.Error("store failed", map[string]any{"error": "boom"})

	sc := bufio.NewScanner(&buf)
	var lines []map[string]any
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("line is not json: %q: %v", sc.Text(), err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["msg"] != "command" || lines[0]["verb"] != "fill" || lines[0]["accepted"] != true {
		t.Fatalf("unexpected first entry: %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["error"] != "boom" {
		t.Fatalf("unexpected second entry: %v", lines[1])
	}
}

func TestJSONLoggerFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.jsonl")
	for i := 0; i < 2; i++ {
		l, err := NewJSONLogger(path)
		if err != nil {
			t.Fatalf("new logger: %v", err)
		}
		l.Info("start", nil)
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if n := bytes.Count(b, []byte("\n")); n != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", n, b)
	}
}

func TestNilAndDiscardLoggers(t *testing.T) {
	var nilLogger *JSONLogger
	nilLogger.Info("ignored", nil)
	if err := nilLogger.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	l, err := NewJSONLogger("")
	if err != nil {
		t.Fatalf("discard logger: %v", err)
	}
	l.Info("ignored", map[string]any{"k": 1})
}

func TestSetupTracingWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	tracer, shutdown, err := SetupTracing(context.Background(), "test")
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}
	_, span := tracer.Start(context.Background(), "probe")
	if span.SpanContext().IsValid() {
		t.Fatalf("expected a no-op span")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
