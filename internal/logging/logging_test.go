package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/decred/slog"
)

func TestLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"off":   slog.LevelOff,
	}
	for in, want := range cases {
		got, err := Level(in)
		if err != nil {
			t.Fatalf("Level(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Level(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := Level("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestBackend_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewBackend(&buf, "warn")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	log := b.Logger(TagWorkflow)
	log.Infof("hidden")
	log.Warnf("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "[WRN] PXMK: shown 1") {
		t.Fatalf("unexpected output %q", out)
	}
}
