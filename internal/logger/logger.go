// Package logger provides a process-wide structured logger backed by zap.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(zap.NewNop().Sugar())
}

// Initialize replaces the process logger. Level is one of debug, info, warn
// or error; format is console or json.
func Initialize(level, format string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "text", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// stdout is reserved for command output
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Set(l)
	return nil
}

// Set installs l as the process logger.
func Set(l *zap.Logger) {
	current.Store(l.Sugar())
}

func Get() *zap.SugaredLogger {
	return current.Load()
}

func Sync() {
	_ = Get().Sync()
}

func Debugf(msg string, args ...any) { Get().Debugf(msg, args...) }

func Infof(msg string, args ...any) { Get().Infof(msg, args...) }

func Warnf(msg string, args ...any) { Get().Warnf(msg, args...) }

func Errorf(msg string, args ...any) { Get().Errorf(msg, args...) }

func Debugw(msg string, kv ...any) { Get().Debugw(msg, kv...) }

func Infow(msg string, kv ...any) { Get().Infow(msg, kv...) }

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
