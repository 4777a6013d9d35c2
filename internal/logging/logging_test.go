package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = '%s', expected '%s'", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"invalid", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestNew(t *testing.T) {
	logger := New(DefaultConfig())
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.level != LevelInfo {
		t.Errorf("default level = %v, expected %v", logger.level, LevelInfo)
	}
	if logger.prefix != "joyrig" {
		t.Errorf("default prefix = '%s', expected 'joyrig'", logger.prefix)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected no output below Warn level, got %q", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Errorf("expected [WARN] tag in output, got %q", buf.String())
	}
}

func TestLogger_Formatting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf, Prefix: "test"})

	logger.Info("count=%d", 42)

	out := buf.String()
	if !strings.Contains(out, "test: count=42") {
		t.Errorf("expected formatted message in output, got %q", out)
	}
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	child := logger.WithField("device", "stick-1")
	child.Info("attached")

	out := buf.String()
	if !strings.Contains(out, "device=stick-1") {
		t.Errorf("expected field in output, got %q", out)
	}

	// Parent must not inherit the child's field.
	buf.Reset()
	logger.Info("plain")
	if strings.Contains(buf.String(), "device=") {
		t.Errorf("parent logger leaked child field: %q", buf.String())
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.WithComponent("engine").Info("started")

	if !strings.Contains(buf.String(), "component=engine") {
		t.Errorf("expected component field in output, got %q", buf.String())
	}
}

func TestNullLogger(t *testing.T) {
	// Must not panic even with no output writer.
	Null.Debug("a")
	Null.Info("b")
	Null.Warn("c")
	Null.Error("d")
}
