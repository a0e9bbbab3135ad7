package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
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

func TestInitWriter_FiltersByLevel(t *testing.T) {
	t.Setenv("GO_ENV", "")
	t.Setenv("GAZE_LOG_FORMAT", "")

	var buf bytes.Buffer
	InitWriter(&buf, "warn")

	Info("hidden")
	With("component", "dwell").Warn("shown", "target", "next")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "component=dwell") || !strings.Contains(out, "target=next") {
		t.Errorf("expected attributes in output: %q", out)
	}
}

func TestInitWriter_JSON(t *testing.T) {
	t.Setenv("GAZE_LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWriter(&buf, "info")
	Info("hello", "n", 1)

	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
