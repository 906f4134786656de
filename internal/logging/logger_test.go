package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup("warn", "json", &buf)

	slog.Info("dropped")
	slog.Warn("kept", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["rows"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestSetup_Text(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup("info", "text", &buf)
	slog.Info("hello", "type", "risk_report")

	if got := buf.String(); !strings.Contains(got, "msg=hello") || !strings.Contains(got, "type=risk_report") {
		t.Errorf("unexpected text output %q", got)
	}
}

func TestFromContext(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup("info", "text", &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = WithRunID(ctx, "run-9")
	if got := RunID(ctx); got != "run-9" {
		t.Fatalf("RunID = %q", got)
	}

	WithFields(ctx, "file", "risk.csv").Info("ingestion started")

	got := buf.String()
	for _, want := range []string{"request_id=req-1", "run_id=run-9", "file=risk.csv"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestFromContext_Empty(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup("info", "text", &buf)
	FromContext(context.Background()).Info("plain")

	if got := buf.String(); strings.Contains(got, "run_id") || strings.Contains(got, "request_id") {
		t.Errorf("unexpected ids in %q", got)
	}
	if RunID(context.Background()) != "" {
		t.Error("RunID of empty context should be empty")
	}
}
