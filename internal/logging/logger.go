package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Level is the severity of a log line
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
		return "WARNING"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

func (l Level) color() string {
	switch l {
	case LevelDebug:
		return "\033[34m"
	case LevelInfo:
		return "\033[1m"
	case LevelWarn:
		return "\033[33m"
	case LevelError:
		return "\033[31m"
	}
	return ""
}

// Options configures a Logger
type Options struct {
	// Writer is the sink, stderr when nil
	Writer io.Writer
	// Name overrides the logger name; the calling package name is used when empty
	Name    string
	Debug   bool
	NoColor bool
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// Logger writes leveled lines in the form
//
//	2006-01-02 15:04:05 | INFO     | credentials:FromLocalFile:42 - message
//
// A Logger is built once at startup with New and handed to the components
// that log; nothing in this package holds process-wide state.
type Logger struct {
	mu      *sync.Mutex
	out     io.Writer
	name    string
	debug   bool
	noColor bool
	now     func() time.Time
}

// New creates a new logger instance
func New(opts Options) *Logger {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Logger{
		mu:      &sync.Mutex{},
		out:     out,
		name:    opts.Name,
		debug:   opts.Debug,
		noColor: opts.NoColor,
		now:     now,
	}
}

// Named returns a logger sharing the same sink with a different name
func (l *Logger) Named(name string) *Logger {
	c := *l
	c.name = name
	return &c
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	pkg, fn, line := "?", "?", 0
	if pc, _, ln, ok := runtime.Caller(2); ok {
		line = ln
		if f := runtime.FuncForPC(pc); f != nil {
			pkg, fn = splitFuncName(f.Name())
		}
	}
	name := l.name
	if name == "" {
		name = pkg
	}

	ts := l.now().Format(timeLayout)
	lvl := fmt.Sprintf("%-8s", level.String())
	loc := fmt.Sprintf("%s:%s:%d", name, fn, line)

	var b strings.Builder
	if l.noColor {
		fmt.Fprintf(&b, "%s | %s | %s - %s\n", ts, lvl, loc, msg)
	} else {
		c := level.color()
		fmt.Fprintf(&b, "\033[32m%s\033[0m | %s%s\033[0m | \033[36m%s\033[0m - %s%s\033[0m\n",
			ts, c, lvl, loc, c, msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// splitFuncName turns "github.com/a/b/pkg.(*T).Method" into ("pkg", "Method")
func splitFuncName(full string) (pkg, fn string) {
	rest := full
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		rest = rest[i+1:]
	}
	pkg = rest
	if i := strings.Index(rest, "."); i >= 0 {
		pkg = rest[:i]
	}
	fn = rest
	if i := strings.LastIndex(rest, "."); i >= 0 {
		fn = rest[i+1:]
	}
	return pkg, fn
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}
