package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.Info("hello", "run_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["run_id"] != "abc" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info message should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn message missing:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"WARN", "WARN"}, // case-insensitive
	}
	for _, tt := range tests {
		if got := parseLevel(tt.raw).String(); got != tt.expected {
			t.Errorf("parseLevel(%q) = %s, expected %s", tt.raw, got, tt.expected)
		}
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := NewText("debug", &buf)

	log.Debug("text entry", "key", "value")
	if !strings.Contains(buf.String(), "msg=\"text entry\"") {
		t.Fatalf("unexpected text output: %q", buf.String())
	}
}
