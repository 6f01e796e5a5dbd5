package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Field keys shared by the feed, session and stream loggers.
const (
	KeyMatchID  = "match_id"
	KeyViewerID = "viewer_id"
	KeyTraceID  = "trace_id"
	KeySpanID   = "span_id"
	keyMissing  = "!missing"
)

// Logger is a thin key/value front over zap. A nil *Logger logs through the
// process default.
type Logger struct {
	zap *zap.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewNop())
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewJSON builds the service logger: JSON lines on stdout.
func NewJSON(level Level) *Logger {
	return build(zapcore.NewJSONEncoder(encoderConfig()), os.Stdout, level)
}

// NewConsole builds a human-readable logger for the CLI.
func NewConsole(w io.Writer, level Level) *Logger {
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.CallerKey = zapcore.OmitKey
	if w == nil {
		w = os.Stderr
	}
	return build(zapcore.NewConsoleEncoder(cfg), w, level)
}

// build skips two frames: the level method and emit.
func build(enc zapcore.Encoder, w io.Writer, level Level) *Logger {
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel)))
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(v string) Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z}
}

func Default() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return NewNop()
}

func SetDefault(logger *Logger) {
	if logger == nil {
		logger = NewNop()
	}
	defaultLogger.Store(logger)
}

func (l *Logger) core() *zap.Logger {
	if l == nil || l.zap == nil {
		return Default().zap
	}
	return l.zap
}

func (l *Logger) Zap() *zap.Logger {
	return l.core()
}

// Sync flushes buffered entries. Terminals and pipes reject fsync, so those
// errors are dropped.
func (l *Logger) Sync() error {
	err := l.core().Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return errors.Wrap(err, "sync logger")
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{zap: l.core().With(fields(args)...)}
}

// ForMatch scopes a logger to one match.
func (l *Logger) ForMatch(matchID string) *Logger {
	return &Logger{zap: l.core().With(zap.String(KeyMatchID, matchID))}
}

// ForViewer scopes a logger to one stream subscriber of a match.
func (l *Logger) ForViewer(matchID, viewerID string) *Logger {
	return &Logger{zap: l.core().With(zap.String(KeyMatchID, matchID), zap.String(KeyViewerID, viewerID))}
}

// Named adds a sub-logger name, e.g. "feed" or "scheduler".
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.core().Named(name)}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(context.Background(), LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(context.Background(), LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(context.Background(), LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(context.Background(), LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelError, msg, args)
}

func (l *Logger) emit(ctx context.Context, level Level, msg string, args []any) {
	ce := l.core().Check(level, msg)
	if ce == nil {
		return
	}
	out := fields(args)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				zap.String(KeyTraceID, sc.TraceID().String()),
				zap.String(KeySpanID, sc.SpanID().String()),
			)
		}
	}
	ce.Write(out...)
}

// fields pairs alternating key/value args. A non-string key is kept as the
// value of a "!missing" field so nothing is silently dropped.
func fields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(args)/2+1)
	for len(args) > 0 {
		key, ok := args[0].(string)
		if !ok || key == "" {
			out = append(out, field(keyMissing, args[0]))
			args = args[1:]
			continue
		}
		if len(args) == 1 {
			out = append(out, zap.String(key, keyMissing))
			break
		}
		out = append(out, field(key, args[1]))
		args = args[2:]
	}
	return out
}

func field(key string, value any) zap.Field {
	switch v := value.(type) {
	case nil:
		return zap.Skip()
	case error:
		return zap.NamedError(key, v)
	case string:
		return zap.String(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case bool:
		return zap.Bool(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
