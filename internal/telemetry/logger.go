// Package telemetry provides the ambient logging and tracing surface
// shared by every component. Logging is built on hashicorp/go-hclog,
// grounded on mantonx/viewra's per-module named logger convention
// (h.logger.Error("...", "key", val) call shape).
package telemetry

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the subset of hclog.Logger the core depends on, kept narrow
// so callers can substitute a test double without pulling in hclog.
type Logger interface {
	Trace(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Named(name string) Logger
}

type hclogAdapter struct {
	hclog.Logger
}

func (h hclogAdapter) Named(name string) Logger {
	return hclogAdapter{h.Logger.Named(name)}
}

// NewLogger builds the process-wide root logger. level is an hclog level
// name ("trace", "debug", "info", "warn", "error"); an empty or unknown
// value falls back to "info".
func NewLogger(name, level string) Logger {
	return hclogAdapter{hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})}
}

// NewNopLogger discards everything; useful in tests.
func NewNopLogger() Logger {
	return hclogAdapter{hclog.NewNullLogger()}
}
