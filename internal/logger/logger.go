// Package logger provides the small structured logger shared by the
// snapshot engine, commit loop, and vacuum planner.
// It wraps zerolog instead of a bespoke formatter, scoping each
// instance to one engine component so every line it emits carries a
// "component" field without call sites repeating it, and exposes a
// context.Context carrier so a request-scoped logger (e.g. one tagged
// with a caller-supplied request ID) can ride alongside ctx through a
// call chain without threading an extra parameter everywhere.
package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level is a zerolog level; re-exported so callers never need to
// import zerolog directly just to pick a verbosity.
type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

// Field is a single structured key/value attached to one log line.
type Field struct {
	key string
	val interface{}
}

func Str(key, val string) Field             { return Field{key, val} }
func Int(key string, val int) Field         { return Field{key, val} }
func Int64(key string, val int64) Field     { return Field{key, val} }
func Err(err error) Field                   { return Field{"error", err} }
func Any(key string, val interface{}) Field { return Field{key, val} }

// Logger wraps a zerolog.Logger pinned to one component name. Fields
// passed with With are carried on every subsequent line.
type Logger struct {
	mu sync.Mutex
	zl zerolog.Logger
}

// New builds a console-formatted logger writing level-and-above lines
// to out, tagged with component.
func New(out io.Writer, level Level, component string) *Logger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// Default logs to stderr at info level under the "deltalog" component.
func Default() *Logger {
	return New(os.Stderr, LevelInfo, "deltalog")
}

// With returns a child logger that additionally tags every line with
// the given fields, e.g. a table path or transaction version.
func (l *Logger) With(fields ...Field) *Logger {
	l.mu.Lock()
	ctx := l.zl.With()
	l.mu.Unlock()
	for _, f := range fields {
		ctx = ctx.Interface(f.key, f.val)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(level)
}

func (l *Logger) SetOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"})
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()

	ev := zl.WithLevel(level)
	for _, f := range fields {
		ev = ev.Interface(f.key, f.val)
	}
	ev.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l, retrievable with
// FromContext. Used at call boundaries (e.g. a future RPC surface)
// where a per-request logger needs to ride along without becoming an
// explicit parameter on every function in the call chain.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stashed by WithContext, or Default()
// if ctx carries none.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Default()
}
