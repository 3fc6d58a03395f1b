// Package logging builds the zap logger pv writes to. The TUI owns the
// terminal, so logs go to a file unless told otherwise.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
)

// Format values for LogConfig.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Stderr as LogConfig.File logs to standard error instead of a file.
const Stderr = "-"

// Level converts a config level to a zap level. Unknown values mean info.
func Level(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// Encoder returns the encoder for a config format.
func Encoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if strings.EqualFold(format, FormatJSON) {
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeTime = timeEncoder
	encoderConfig.ConsoleSeparator = " | "
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// NewWriter builds a logger writing to w.
func NewWriter(cfg config.LogConfig, w io.Writer) *zap.Logger {
	core := zapcore.NewCore(
		Encoder(cfg.Format),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(Level(cfg.Level)),
	)
	return zap.New(core, zap.AddCaller())
}

// New opens cfg.File for appending and returns a logger writing to it. The
// returned close func syncs the logger and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	if cfg.File == "" || cfg.File == Stderr {
		logger := NewWriter(cfg, os.Stderr)
		return logger, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := NewWriter(cfg, f)
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}
