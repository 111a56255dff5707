// Package errlog writes the run's durable error log. The file is
// truncated when the run starts, so it always describes exactly one run;
// every entry carries a timestamp and a severity.
package errlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger appends timestamped entries to the run's log file.
type Logger struct {
	path string
	file *os.File
	lg   *log.Logger
}

// Open creates (or truncates) the log file at path.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening error log: %w", err)
	}
	return &Logger{
		path: path,
		file: f,
		lg:   log.New(f, "", log.LstdFlags),
	}, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	return &Logger{lg: log.New(io.Discard, "", 0)}
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Errorf records an ERROR entry.
func (l *Logger) Errorf(format string, args ...any) {
	l.write("ERROR", format, args...)
}

// Warnf records a WARNING entry.
func (l *Logger) Warnf(format string, args ...any) {
	l.write("WARNING", format, args...)
}

func (l *Logger) write(severity, format string, args ...any) {
	if l == nil || l.lg == nil {
		return
	}
	l.lg.Printf("%s - %s", severity, fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
