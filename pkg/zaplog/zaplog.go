// Package zaplog adapts a *zap.Logger to recapi.Logger.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// Logger forwards recapi logs to zap.
type Logger struct{ L *zap.Logger }

var _ recapi.Logger = Logger{}

// New wraps l.
func New(l *zap.Logger) Logger {
	return Logger{L: l}
}

// NewDevelopment builds a console logger at debug level when verbose is set
// and info level otherwise.
func NewDevelopment(verbose bool) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return Logger{}, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return Logger{L: l}, nil
}

func (z Logger) Debug(msg string, f map[string]interface{}) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f map[string]interface{})  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f map[string]interface{})  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f map[string]interface{}) { z.L.Error(msg, fields(f)...) }

// Sync flushes buffered entries.
func (z Logger) Sync() error {
	return z.L.Sync()
}

func fields(f map[string]interface{}) []zap.Field {
	if len(f) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}

	return out
}
