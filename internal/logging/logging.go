// Package logging builds the subsystem loggers used by the pxmark binaries.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/decred/slog"
)

// Subsystem tags.
const (
	TagWorkflow = "PXMK"
	TagLedger   = "LDGR"
	TagDaemon   = "CASD"
)

// Level parses a level name (trace, debug, info, warn, error, critical, off).
func Level(s string) (slog.Level, error) {
	lvl, ok := slog.LevelFromString(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// Backend hands out loggers that share one writer and level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
}

func NewBackend(w io.Writer, level string) (*Backend, error) {
	lvl, err := Level(level)
	if err != nil {
		return nil, err
	}
	return &Backend{backend: slog.NewBackend(w), level: lvl}, nil
}

// Logger returns a logger for a subsystem tag at the backend's level.
func (b *Backend) Logger(tag string) slog.Logger {
	l := b.backend.Logger(tag)
	l.SetLevel(b.level)
	return l
}
