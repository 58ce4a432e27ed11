// Package logging provides the run logger used by the engine and adapters.
//
// A run's log lines are captured in order so callers can surface them after
// the fact: the HTTP handler returns them in the response body and the
// WebSocket handler streams them as they are produced.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	warnColor    = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed, color.Bold)
)

// Logger records the lines of one evaluation run.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	sink  func(line string)
	lines []string
}

// New returns a logger writing to out. A nil out captures lines without
// printing them.
func New(out io.Writer) *Logger {
	return &Logger{out: out}
}

// OnLine registers a callback invoked for every line as it is logged.
func (l *Logger) OnLine(fn func(line string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = fn
}

// Lines returns a copy of every line logged so far.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := make([]string, len(l.lines))
	copy(lines, l.lines)
	return lines
}

func (l *Logger) emit(c *color.Color, format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.lines = append(l.lines, line)
	sink := l.sink
	out := l.out
	l.mu.Unlock()

	if sink != nil {
		sink(line)
	}
	if out == nil {
		return
	}
	if c != nil {
		c.Fprintln(out, line)
	} else {
		fmt.Fprintln(out, line)
	}
}

// Log records an informational line.
func (l *Logger) Log(format string, args ...any) {
	l.emit(nil, format, args...)
}

// Warn records a warning line.
func (l *Logger) Warn(format string, args ...any) {
	l.emit(warnColor, format, args...)
}

// Failure records a line describing why the run is failing.
func (l *Logger) Failure(format string, args ...any) {
	l.emit(failureColor, format, args...)
}
