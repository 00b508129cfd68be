package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("settled", "child_id", 1)
	logger.Warn("snapshot slow", "key", "settlements.v1")

	out := buf.String()
	if strings.Contains(out, "settled") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "key=settlements.v1") {
		t.Errorf("warn line missing: %q", out)
	}
}
