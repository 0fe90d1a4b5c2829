// Package trace provides the context-carried structured logging used
// throughout mixrand. A Tracer is attached to a context.Context once at
// process start and threaded through every call; components derive a
// prefixed sub-tracer with WithPrefix so each log line identifies the
// component that emitted it.
package trace

import (
	"context"
	"fmt"
	"log"
	"log/syslog"
	"os"
	"sync"
	"time"
)

// Level represents tracing verbosity, ordered from quietest to loudest.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel maps the command-line spelling of a level to a Level.
// Unknown spellings fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Backend receives formatted, already-leveled log lines. Tracer owns
// level gating; a Backend just writes whatever it is given.
type Backend interface {
	Write(rec Record)
	Close() error
}

// Record is one structured log entry: {timestamp, level, source?, event, detail}.
type Record struct {
	Timestamp time.Time
	Level     Level
	Source    string // the Tracer's prefix, e.g. "DISPATCH" or "" for none
	Event     string
	Detail    string
}

type traceKeyType struct{}

var traceKey traceKeyType

// Tracer is a context-scoped, level-gated, prefixed logger.
type Tracer struct {
	prefix  string
	level   Level
	backend Backend
}

// NewTracer creates a root Tracer writing to backend at the given level.
func NewTracer(level Level, backend Backend) *Tracer {
	return &Tracer{level: level, backend: backend}
}

// WithContext attaches t to ctx.
func WithContext(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, traceKey, t)
}

// FromContext extracts the Tracer from ctx, or, if none was attached, a
// default that writes only LevelError records to stderr.
func FromContext(ctx context.Context) *Tracer {
	if t, ok := ctx.Value(traceKey).(*Tracer); ok {
		return t
	}
	return NewTracer(LevelError, NewStderrBackend())
}

// WithPrefix returns a derived Tracer that tags every record with prefix.
func (t *Tracer) WithPrefix(prefix string) *Tracer {
	return &Tracer{prefix: prefix, level: t.level, backend: t.backend}
}

func (t *Tracer) emit(lvl Level, event, detail string) {
	if lvl > t.level {
		return
	}
	t.backend.Write(Record{
		Timestamp: time.Now(),
		Level:     lvl,
		Source:    t.prefix,
		Event:     event,
		Detail:    detail,
	})
}

// Tracef logs at LevelTrace.
func (t *Tracer) Tracef(format string, args ...interface{}) {
	t.emit(LevelTrace, "trace", fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug.
func (t *Tracer) Debugf(format string, args ...interface{}) {
	t.emit(LevelDebug, "debug", fmt.Sprintf(format, args...))
}

// Infof logs at LevelInfo.
func (t *Tracer) Infof(format string, args ...interface{}) {
	t.emit(LevelInfo, "info", fmt.Sprintf(format, args...))
}

// Warnf logs at LevelWarn.
func (t *Tracer) Warnf(format string, args ...interface{}) {
	t.emit(LevelWarn, "warn", fmt.Sprintf(format, args...))
}

// Error logs err at LevelError.
func (t *Tracer) Error(err error) {
	t.emit(LevelError, "error", err.Error())
}

// Fatal logs err at LevelError, closes the backend, and exits the process.
func (t *Tracer) Fatal(err error) {
	t.emit(LevelError, "fatal", err.Error())
	t.backend.Close()
	os.Exit(1)
}

// stderrBackend is the default one-shot backend: plain lines to os.Stderr.
type stderrBackend struct {
	mu  sync.Mutex
	out *log.Logger
}

// NewStderrBackend returns a Backend that writes to os.Stderr.
func NewStderrBackend() Backend {
	return &stderrBackend{out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (b *stderrBackend) Write(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out.Print(formatLine(r))
}

func (b *stderrBackend) Close() error { return nil }

// fileBackend appends formatted lines to a log file, used with --log-file.
type fileBackend struct {
	mu  sync.Mutex
	f   *os.File
	out *log.Logger
}

// NewFileBackend opens path for appending and returns a Backend writing to it.
func NewFileBackend(path string) (Backend, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("trace: open log file %s: %w", path, err)
	}
	return &fileBackend{f: f, out: log.New(f, "", log.LstdFlags)}, nil
}

func (b *fileBackend) Write(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out.Print(formatLine(r))
}

func (b *fileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Close()
}

// syslogBackend ships records to the system syslog daemon, used by `mixrand daemon --syslog`.
type syslogBackend struct {
	w *syslog.Writer
}

// NewSyslogBackend dials the local syslog daemon under the given tag.
func NewSyslogBackend(tag string) (Backend, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("trace: connect syslog: %w", err)
	}
	return &syslogBackend{w: w}, nil
}

func (b *syslogBackend) Write(r Record) {
	line := formatLine(r)
	switch r.Level {
	case LevelError:
		b.w.Err(line)
	case LevelWarn:
		b.w.Warning(line)
	case LevelDebug, LevelTrace:
		b.w.Debug(line)
	default:
		b.w.Info(line)
	}
}

func (b *syslogBackend) Close() error { return b.w.Close() }

func formatLine(r Record) string {
	if r.Source != "" {
		return fmt.Sprintf("%s %s: %s", r.Level, r.Source, r.Detail)
	}
	return fmt.Sprintf("%s: %s", r.Level, r.Detail)
}

// MultiBackend fans a record out to every contained backend. The
// mixrand command itself always uses a single backend.
type MultiBackend struct {
	backends []Backend
}

// NewMultiBackend combines multiple backends into one.
func NewMultiBackend(backends ...Backend) Backend {
	return &MultiBackend{backends: backends}
}

func (m *MultiBackend) Write(r Record) {
	for _, b := range m.backends {
		b.Write(r)
	}
}

func (m *MultiBackend) Close() error {
	var first error
	for _, b := range m.backends {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
