package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestForComponentFollowsInit(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	log := ForComponent("ingest")

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	log.Info("Imported CSV as table", "table", "orders")

	out := buf.String()
	if !strings.Contains(out, `"component":"ingest"`) {
		t.Fatalf("missing component attr: %s", out)
	}
	if !strings.Contains(out, `"table":"orders"`) {
		t.Fatalf("missing table attr: %s", out)
	}
}

func TestInitRespectsLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}
