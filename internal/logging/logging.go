// Package logging provides the overlay's subsystem-scoped logger, built
// on log/slog and cached per subsystem, adapted from the teacher's
// internal/util/logger package.
//
// Usage:
//
//	var log = logging.Logger("overlay")
//	log.Info("certificate announced", "node", id)
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	loggers sync.Map // map[string]*slog.Logger

	levelMu      sync.Mutex
	defaultLevel = slog.LevelInfo
)

// envVar is checked once at first Logger() call, mirroring the teacher's
// DEP2P_LOG_LEVEL convention: a bare level ("debug") sets the default for
// every subsystem.
const envVar = "SECUREOVERLAY_LOG_LEVEL"

var envOnce sync.Once

func initFromEnv() {
	envOnce.Do(func() {
		v := os.Getenv(envVar)
		if v == "" {
			return
		}
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			levelMu.Lock()
			defaultLevel = lvl
			levelMu.Unlock()
		}
	})
}

// Logger returns the cached *slog.Logger for subsystem, creating it on
// first use. Repeated calls with the same subsystem name return the same
// instance.
func Logger(subsystem string) *slog.Logger {
	initFromEnv()
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}
	levelMu.Lock()
	lvl := defaultLevel
	levelMu.Unlock()

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	l := slog.New(h).With("subsystem", subsystem)
	actual, _ := loggers.LoadOrStore(subsystem, l)
	return actual.(*slog.Logger)
}

// SetLevel changes the level new Loggers are created at. Loggers already
// handed out keep their original level, matching the teacher's
// best-effort runtime adjustment.
func SetLevel(level slog.Level) {
	levelMu.Lock()
	defaultLevel = level
	levelMu.Unlock()
}

// Discard returns a Logger that drops everything, for use in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
