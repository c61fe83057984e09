package ymap

import (
	"log"
	"os"

	"ymap/internal/engine"
)

// Logger is the tracing collaborator an Engine calls into, gated by
// Options.Verbosity. It is an alias of internal/engine.Logger, re-exported
// here so callers of the public package never need to import
// internal/engine directly.
type Logger = engine.Logger

// stdLogger adapts the standard library's log.Logger, matching the
// teacher's own log.Printf-based tracing in internal/sasl/server.go.
type stdLogger struct {
	l         *log.Logger
	verbosity int
}

// NewStdLogger builds a Logger backed by log.Logger, active only when
// verbosity > 0.
func NewStdLogger(verbosity int) Logger {
	return &stdLogger{l: log.New(os.Stderr, "ymap: ", log.LstdFlags), verbosity: verbosity}
}

func (s *stdLogger) Debugf(format string, args ...any) {
	if s.verbosity <= 0 {
		return
	}
	s.l.Printf(format, args...)
}
