package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "INFO", Format: "json"}, &buf)

	logger.Info("hello", slog.String("k", "v"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["k"] != "v" {
		t.Errorf("k = %v, want v", entry["k"])
	}
}

func TestNewTextDefaultAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "WARN"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at WARN level, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing from output %q", out)
	}
}

func TestWithComponentNilBase(t *testing.T) {
	logger := WithComponent(nil, "capture")
	// Must not panic and must swallow output.
	logger.Error("ignored")
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	if got := attr.Value.String(); got != "<nil>" {
		t.Errorf("Err(nil) value = %q, want %q", got, "<nil>")
	}
}
