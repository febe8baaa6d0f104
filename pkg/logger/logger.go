// Package logger provides structured logging for huntparse.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface used throughout huntparse.
// Arguments after the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Options configures a zap-backed logger.
type Options struct {
	// Output receives console output. Defaults to stderr.
	Output io.Writer
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "console" or "json".
	Format string
	// File, if set, receives JSON logs with size-based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ZapLogger implements Logger on top of a zap SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	files []io.Closer
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar()}
}

// New builds a logger from options.
func New(opts Options) (*ZapLogger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encoder, err := encoderFor(opts.Format)
	if err != nil {
		return nil, err
	}
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)}

	var files []io.Closer
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		files = append(files, rotating)
		fileEncoder, _ := encoderFor("json")
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotating), level))
	}

	l := NewZapLogger(zap.New(zapcore.NewTee(cores...)))
	l.files = files
	return l, nil
}

func encoderFor(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "", "console", "text":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

// Info logs an info message.
func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

// Error logs an error message.
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// With returns a logger that adds args to every entry.
func (l *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(args...)}
}

// WithGroup nests all subsequent fields under name.
func (l *ZapLogger) WithGroup(name string) Logger {
	return &ZapLogger{sugar: l.sugar.Desugar().With(zap.Namespace(name)).Sugar()}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// Close flushes buffered entries and closes any log files opened by New.
// Sync failures on console outputs such as pipes are ignored.
func (l *ZapLogger) Close() error {
	_ = l.sugar.Sync()
	var errs []error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.files = nil
	return errors.Join(errs...)
}

var global atomic.Pointer[ZapLogger]

func init() {
	l, err := New(Options{})
	if err != nil {
		l = NewZapLogger(zap.NewNop())
	}
	global.Store(l)
}

// SetGlobalLogger replaces the global logger with l.
func SetGlobalLogger(l *ZapLogger) {
	if l != nil {
		global.Store(l)
	}
}

// GetGlobalLogger returns the global logger.
func GetGlobalLogger() Logger {
	return global.Load()
}

// WithScanner returns l with scanner context. A nil l uses the global logger.
func WithScanner(l Logger, scanner string) Logger {
	if l == nil {
		l = GetGlobalLogger()
	}
	return l.With("scanner", scanner)
}

// Debug logs a debug message on the global logger.
func Debug(msg string, args ...any) { global.Load().Debug(msg, args...) }

// Info logs an info message on the global logger.
func Info(msg string, args ...any) { global.Load().Info(msg, args...) }

// Warn logs a warning message on the global logger.
func Warn(msg string, args ...any) { global.Load().Warn(msg, args...) }

// Error logs an error message on the global logger.
func Error(msg string, args ...any) { global.Load().Error(msg, args...) }
