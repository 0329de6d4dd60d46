// Package logger builds the zap loggers shared by the viewer and the tools.
//
// Tools run quietly by default: without Verbose the returned logger discards
// everything. Components name their child loggers after themselves
// (logger.Named("Overlay")) so each line carries its origin.
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger
type Config struct {
	// Verbose enables output; a quiet logger is a no-op.
	Verbose bool
	// Development switches to human-readable console output.
	Development bool
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Name is attached as the root logger name.
	Name string
}

// New creates a new logger with the given configuration
func New(cfg Config) *zap.Logger {
	if !cfg.Verbose {
		return zap.NewNop()
	}

	encoderConfig := newEncoderConfig()

	encoding := "json"
	if cfg.Development {
		encoding = "console"
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config := zap.Config{
		Level:            getLogLevel(cfg.Level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		// stderr sinks only fail on a broken process environment
		return zap.NewNop()
	}
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger
}

// NewWithWriter builds a logger that writes to w instead of stderr, for tools
// that own the terminal. Development selects console encoding as in New.
func NewWithWriter(cfg Config, w io.Writer) *zap.Logger {
	if !cfg.Verbose || w == nil {
		return zap.NewNop()
	}

	encoderConfig := newEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), getLogLevel(cfg.Level))
	logger := zap.New(core, zap.AddCaller())
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// getLogLevel converts string log level to zap.AtomicLevel
func getLogLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
