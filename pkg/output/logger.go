// Package output provides the line logger shared by every updatehauler
// component and the logfile maintenance helpers.
//
// Every line carries an explicit severity chosen by the call site. In console
// mode error severity goes to stderr and everything else to stdout; in
// logfile-only mode all lines are appended to the log file in the same format.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// TimestampLayout is ISO-8601 with microseconds and a numeric UTC offset.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Level is the severity of a log line.
type Level int

const (
	// LevelDebug lines are only emitted when debug output is enabled.
	LevelDebug Level = iota
	// LevelInfo is the normal severity.
	LevelInfo
	// LevelError lines are highlighted and routed to stderr on the console.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Options configures a Logger.
type Options struct {
	// Datetime prefixes every line with a timestamp.
	Datetime bool

	// Color highlights error lines on the console.
	Color bool

	// Debug enables LevelDebug lines.
	Debug bool

	// UseLog sends all output to LogFile instead of the console.
	UseLog bool

	// LogFile is the append target when UseLog is set.
	LogFile string
}

// Logger writes timestamped lines to the console or a log file.
type Logger struct {
	opts   Options
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	mu     sync.Mutex
}

// NewLogger creates a logger writing to the process stdout and stderr.
func NewLogger(opts Options) *Logger {
	return &Logger{
		opts:   opts,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

// WithWriters replaces the console writers and returns the logger.
func (l *Logger) WithWriters(stdout, stderr io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = stdout
	l.stderr = stderr
	return l
}

// WithClock replaces the timestamp source and returns the logger.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Options returns the options the logger was created with.
func (l *Logger) Options() Options {
	return l.opts
}

// Info logs a line at normal severity.
func (l *Logger) Info(msg string) {
	l.Log(LevelInfo, msg)
}

// Infof logs a formatted line at normal severity.
func (l *Logger) Infof(format string, args ...any) {
	l.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Error logs a line at error severity.
func (l *Logger) Error(msg string) {
	l.Log(LevelError, msg)
}

// Errorf logs a formatted line at error severity.
func (l *Logger) Errorf(format string, args ...any) {
	l.Log(LevelError, fmt.Sprintf(format, args...))
}

// Debug logs a line when debug output is enabled.
func (l *Logger) Debug(msg string) {
	l.Log(LevelDebug, msg)
}

// Debugf logs a formatted line when debug output is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	l.Log(LevelDebug, fmt.Sprintf(format, args...))
}

// Log writes msg with the given severity.
func (l *Logger) Log(level Level, msg string) {
	if level == LevelDebug && !l.opts.Debug {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := l.format(level, msg)

	if l.opts.UseLog {
		if err := l.appendToFile(line); err != nil {
			fmt.Fprintf(l.stderr, "Failed to write to log: %v\n", err)
		}
		return
	}

	w := l.stdout
	if level == LevelError {
		w = l.stderr
	}
	fmt.Fprintln(w, line)
}

func (l *Logger) format(level Level, msg string) string {
	switch level {
	case LevelError:
		// ANSI codes never go to the log file.
		if l.opts.Color && !l.opts.UseLog {
			msg = pterm.Red(msg)
		}
		msg = "ERROR " + msg
	case LevelDebug:
		msg = "DEBUG " + msg
	}

	if l.opts.Datetime {
		return l.now().Format(TimestampLayout) + " " + msg
	}
	return msg
}

func (l *Logger) appendToFile(line string) error {
	if l.opts.LogFile == "" {
		return fmt.Errorf("no log file configured")
	}

	if err := os.MkdirAll(filepath.Dir(l.opts.LogFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	_, err = io.WriteString(f, strings.TrimRight(line, "\n")+"\n")
	return err
}
