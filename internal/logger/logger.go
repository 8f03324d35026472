// Package logger builds the zap logger used across the service and a few
// nil-tolerant helpers so components can run with logging switched off.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/D191001/libra/internal/config"
)

// New builds a JSON logger writing to stdout, or appending to cfg.File when
// it is set.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.Development {
		zc.Development = true
		zc.Encoding = "console"
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		zc.OutputPaths = []string{cfg.File}
	}

	return zc.Build()
}

// NewFileLogger builds a logger that appends JSON lines to path.  The
// lending event consumer uses it for its audit log.
func NewFileLogger(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{path}
	zc.DisableStacktrace = true
	zc.Sampling = nil
	return zc.Build()
}

// CheckError logs msg at error level when err is not nil and reports
// whether it was.
func CheckError(err error, logger *zap.Logger, msg string, fields ...zap.Field) bool {
	if err != nil {
		if logger != nil {
			logger.Error(msg, fields...)
		}
		return true
	}
	return false
}

func MakeInfo(logger *zap.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Info(msg, fields...)
	}
}

func MakeWarn(logger *zap.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
