// Package logging builds the process logger and hands out component loggers.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared across components.
const (
	KeyHostname = "hostname"
	KeyOSType   = "osType"
	KeyVersion  = "version"
	KeyRunID    = "runId"
)

// New builds a logger writing to stderr.
// format: "json" or "console" (default "console")
// level: "debug", "info", "warn", "error" (default "info")
func New(format, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Init builds a logger and installs it as the global logger. The returned
// function flushes buffered entries and restores the previous globals.
func Init(format, level string) (func(), error) {
	logger, err := New(format, level)
	if err != nil {
		return nil, err
	}
	restore := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		restore()
	}, nil
}

// L returns the global logger named for a component. Before Init runs this
// is a no-op logger.
func L(component string) *zap.Logger {
	return zap.L().Named(component)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
