// Package log provides structured logging for a slave process.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the dispatch loop (structured fields)
//   - SugaredLogger: Printf-style logging for bootstrap and backends
//
// Every entry carries the slave's identity: log name, user, pid and a
// per-process instance id.
package log

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Numeric log levels accepted on the slave command line.
const (
	LevelCrit  = 1
	LevelErr   = 2
	LevelWarn  = 3
	LevelInfo  = 4
	LevelDebug = 5

	DefaultLevel = LevelInfo
)

// Options identifies the slave and configures output.
type Options struct {
	// Name is the log name, e.g. "ossp-null[alice:4242]".
	Name string
	// User is the resolved name of the invoking user.
	User string
	// Level is a numeric level (LevelCrit..LevelDebug). Zero selects DefaultLevel.
	Level int
	// Timestamps adds a timestamp to each entry.
	Timestamps bool
	// InstanceID distinguishes slave processes; generated when empty.
	InstanceID string
}

// Logger provides structured logging with slave context.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger writing JSON entries to os.Stderr.
func NewLogger(opts Options) *Logger {
	return NewLoggerWithWriter(opts, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(opts Options, w io.Writer) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "message",
		NameKey:     "logger",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	if opts.Timestamps {
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		ZapLevel(opts.Level),
	)

	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	contextFields := []zap.Field{
		zap.Int("pid", os.Getpid()),
		zap.String("instance_id", instanceID),
	}
	if opts.User != "" {
		contextFields = append(contextFields, zap.String("user", opts.User))
	}

	zapLogger := zap.New(core).With(contextFields...)
	if opts.Name != "" {
		zapLogger = zapLogger.Named(opts.Name)
	}
	return &Logger{zap: zapLogger}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// ZapLevel maps a numeric slave log level to a zap level. Out of range
// values are clamped; zero selects DefaultLevel.
func ZapLevel(level int) zapcore.Level {
	if level == 0 {
		level = DefaultLevel
	}
	switch {
	case level <= LevelErr:
		// The logger has no level above error; crit shares it.
		return zapcore.ErrorLevel
	case level == LevelWarn:
		return zapcore.WarnLevel
	case level == LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger sharing this logger's core and context.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
