package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "requestID"
	EndpointKey  ContextKey = "endpoint"
)

type LogManager interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	DebugF(format string, args ...any)
	InfoF(format string, args ...any)
	WarnF(format string, args ...any)
	ErrorF(format string, args ...any)

	DebugFCtx(ctx context.Context, format string, args ...any)
	InfoFCtx(ctx context.Context, format string, args ...any)
	WarnFCtx(ctx context.Context, format string, args ...any)
	ErrorFCtx(ctx context.Context, format string, args ...any)

	With(keyValues ...any) LogManager

	Sync() error
	SetLogLevel(level string) error
	Level() string
}

// LoggerOptions for custom configuration
type LoggerOptions struct {
	Level        string
	Encoding     string // "json" or "console"
	OutputPaths  []string
	ErrorPaths   []string
	EnableCaller bool
	EnableStack  bool
	TimeFormat   string
	// Name is attached to every entry as the "logger" field.
	Name string
}

// NewLogger creates a zap-backed logger whose level can be changed at runtime.
func NewLogger(opts LoggerOptions) (LogManager, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		atomicLevel.SetLevel(zap.InfoLevel)
	}

	if opts.Encoding == "" {
		opts.Encoding = "console"
	}
	if len(opts.OutputPaths) == 0 {
		opts.OutputPaths = []string{"stderr"}
	}
	if len(opts.ErrorPaths) == 0 {
		opts.ErrorPaths = []string{"stderr"}
	}

	cfg := zap.Config{
		Level:            atomicLevel,
		Development:      opts.Level == "debug",
		Encoding:         opts.Encoding,
		EncoderConfig:    encoderConfig(opts),
		OutputPaths:      opts.OutputPaths,
		ErrorOutputPaths: opts.ErrorPaths,
	}

	zapLogger, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if opts.EnableStack {
		zapLogger = zapLogger.WithOptions(zap.AddStacktrace(zap.WarnLevel))
	}
	if opts.Name != "" {
		zapLogger = zapLogger.Named(opts.Name)
	}

	return &logger{
		Log:         zapLogger.Sugar(),
		atomicLevel: atomicLevel,
	}, nil
}

func encoderConfig(opts LoggerOptions) zapcore.EncoderConfig {
	levelEncoder := zapcore.CapitalColorLevelEncoder
	if opts.Encoding == "json" {
		levelEncoder = zapcore.LowercaseLevelEncoder
	}
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	cfg := zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   levelEncoder,
		EncodeTime:    zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	if opts.EnableCaller {
		cfg.CallerKey = "caller"
	}
	return cfg
}

// NewNop returns a logger that discards everything. Library code falls back to it
// when the caller provides no logger.
func NewNop() LogManager {
	return &logger{
		Log:         zap.NewNop().Sugar(),
		atomicLevel: zap.NewAtomicLevelAt(zap.FatalLevel),
	}
}

// MustNewDefaultLogger creates a console logger at info level or exits.
func MustNewDefaultLogger() LogManager {
	l, err := NewLogger(LoggerOptions{
		Level:        "info",
		Encoding:     "console",
		EnableCaller: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	return l
}
