// Package ilog is the single-writer diagnostic logger for the entire
// incremental-rebuild analysis (spec.md §4, "Logger"; §5, "The logger
// is a process-wide singleton with two sinks: optional stdout mirror
// and a single output stream. All writes pass through a serialising
// log-line entry; no interleaved partial lines are permitted.").
//
// Grounded on the teacher's cmd/ailang/main.go colorized status output
// (green/red/yellow/cyan/bold SprintFuncs built from fatih/color) for
// the banner palette, generalized into a package any phase of the
// pipeline can log through rather than one CLI's inline helpers.
// Unicode-width-aware banner padding uses golang.org/x/text the way
// the teacher's own module declares it as a dependency for text
// processing, even though the teacher itself never needed banner
// padding specifically.
package ilog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/text/width"
)

// Level is a diagnostic's severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

var levelColor = map[Level]*color.Color{
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

var levelTag = map[Level]string{
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger is the process-wide diagnostic sink. A single mutex
// serialises every write so two goroutines sharding a hashing or
// usage-collection pass never interleave partial lines (spec.md §5).
type Logger struct {
	mu          sync.Mutex
	out         io.Writer
	mirrorStdout bool
	colorize    bool
}

var singleton *Logger
var once sync.Once

// Global returns the process-wide Logger, creating it on first use
// with output going to stderr and no stdout mirror.
func Global() *Logger {
	once.Do(func() {
		singleton = &Logger{out: os.Stderr, colorize: true}
	})
	return singleton
}

// SetOutput redirects the logger's single output stream.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetMirrorStdout enables or disables the optional stdout mirror.
func (l *Logger) SetMirrorStdout(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirrorStdout = on
}

// SetColorize enables or disables ANSI color in banner/line output
// (disable for log files and non-tty redirection).
func (l *Logger) SetColorize(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = on
}

// Log writes a single serialised log line at the given level, phase,
// and message. One call is guaranteed to produce one atomic write.
func (l *Logger) Log(level Level, phase, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tag := levelTag[level]
	line := fmt.Sprintf("[%s] %s: %s\n", tag, phase, msg)
	if l.colorize {
		line = levelColor[level].Sprintf("[%s]", tag) + fmt.Sprintf(" %s: %s\n", phase, msg)
	}
	_, _ = io.WriteString(l.out, line)
	if l.mirrorStdout && l.out != os.Stdout {
		_, _ = io.WriteString(os.Stdout, line)
	}
}

func (l *Logger) Info(phase, msg string)  { l.Log(LevelInfo, phase, msg) }
func (l *Logger) Warn(phase, msg string)  { l.Log(LevelWarn, phase, msg) }
func (l *Logger) Error(phase, msg string) { l.Log(LevelError, phase, msg) }

// Banner writes an `=`-delimited section banner, title centred and
// padded to width columns using Unicode display width so wide (e.g.
// CJK) titles still centre correctly.
func (l *Logger) Banner(title string, cols int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := displayWidth(title)
	if w >= cols-2 {
		l.writeLocked(title + "\n")
		return
	}
	pad := (cols - w - 2) / 2
	line := strings.Repeat("=", pad) + " " + title + " " + strings.Repeat("=", cols-w-2-pad)
	l.writeLocked(line + "\n")
}

func (l *Logger) writeLocked(s string) {
	_, _ = io.WriteString(l.out, s)
	if l.mirrorStdout && l.out != os.Stdout {
		_, _ = io.WriteString(os.Stdout, s)
	}
}

// displayWidth returns the terminal column width of s, treating
// East-Asian-wide runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		p := width.LookupRune(r)
		switch p.Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
