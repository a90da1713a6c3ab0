// Package obslog is a small leveled logger for pipeline tracing
// (statement-by-statement processing, library-provider calls, lookahead
// entry/exit) kept independent of the editor-facing diagnostics in
// internal/diagnostics. It follows the teacher's hand-rolled
// structured-text idiom rather than pulling in a full structured-logging
// framework, but uses the teacher's own go-strftime dependency for
// timestamps instead of a stdlib time.Format layout string.
package obslog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key string
	Val interface{}
}

func F(key string, val interface{}) Field { return Field{Key: key, Val: val} }

// Logger writes leveled, field-annotated lines to an io.Writer. It is safe
// for concurrent use by the workspace-layer batch command (§5), each of
// whose per-file analyses logs independently.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	min    Level
	prefix []Field
}

func New(out io.Writer, min Level) *Logger {
	return &Logger{out: out, min: min}
}

// Default is a package-level logger writing to stderr at Info level, for
// callers (like internal/lookahead) that don't thread a *Logger through
// every call.
var Default = New(os.Stderr, LevelInfo)

// With returns a child logger that always includes the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{out: l.out, min: l.min, prefix: append(append([]Field{}, l.prefix...), fields...)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *Logger) log(lv Level, msg string, fields []Field) {
	if lv < l.min {
		return
	}
	ts := strftime.Format("%Y-%m-%d %H:%M:%S", time.Now())
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s", ts, lv, msg)
	for _, f := range l.prefix {
		fmt.Fprintf(l.out, " %s=%v", f.Key, f.Val)
	}
	for _, f := range fields {
		fmt.Fprintf(l.out, " %s=%v", f.Key, f.Val)
	}
	fmt.Fprintln(l.out)
}
