package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	output       string
	defaultLevel zapcore.Level
	console      bool
	color        bool
}

// NewLogger builds the server logger. Production emits JSON, every other
// environment a colored console log. The component name is attached to every entry.
func NewLogger(component string) (*zap.Logger, error) {
	dev := os.Getenv("APP_ENV") != "production"

	return build(component, options{
		output:       getEnv("LOG_OUTPUT", "stdout"),
		defaultLevel: zap.InfoLevel,
		console:      dev,
		color:        dev,
	})
}

// NewClientLogger is used by the command-line client. It writes warnings and
// errors to stderr so command output on stdout stays clean.
func NewClientLogger() (*zap.Logger, error) {
	return build("medbook-cli", options{
		output:       getEnv("LOG_OUTPUT", "stderr"),
		defaultLevel: zap.WarnLevel,
		console:      true,
	})
}

func build(component string, opts options) (*zap.Logger, error) {
	encoder := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(getLogLevel(opts.defaultLevel)),
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{opts.output},
		ErrorOutputPaths: []string{"stderr"},
	}

	if opts.console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if opts.color {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = true
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}

	return logger.Named(component), nil
}

func getLogLevel(fallback zapcore.Level) zapcore.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return fallback
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
