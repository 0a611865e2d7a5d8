// Package logging provides the structured log sinks used across the
// runtime. Sinks are keyed by a (context, name) pair, e.g.
// ("network", "freenode") or ("channel", "#chan@freenode"), so that log
// output from independent networks stays distinguishable.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the root logger behavior.
type Config struct {
	// Level is one of "debug", "info", "warning", "error". Empty means info.
	Level string `yaml:"level"`
	// Terminal switches to the human-readable console encoder.
	Terminal bool `yaml:"terminal"`
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug", "ddebug":
		return zapcore.DebugLevel
	case "", "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewRoot builds the process-wide root logger. The core never configures
// outputs beyond this; callers own the sink configuration.
func NewRoot(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Terminal {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	return zc.Build()
}

// Get derives the (context, name)-keyed sink from a root logger.
func Get(root *zap.Logger, context, name string) *zap.SugaredLogger {
	return root.With(
		zap.String("context", context),
		zap.String("name", name),
	).Sugar()
}

// Nop returns a discard-everything sink, for tests and optional components.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
