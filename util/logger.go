package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
)

// PanicSafeLogger tees log output to a file and stderr so a crash leaves a readable log behind.
type PanicSafeLogger struct {
	f  *os.File
	mw io.Writer
}

var std *PanicSafeLogger

func NewPanicSafeLogger(f *os.File) *PanicSafeLogger {
	std = &PanicSafeLogger{
		f:  f,
		mw: io.MultiWriter(f, os.Stderr),
	}
	return std
}

// NewTempFileLogger creates a log file named after pattern in the temp directory, points the
// standard logger at it and returns it.
func NewTempFileLogger(pattern string) (*PanicSafeLogger, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("util: create log file: %w", err)
	}

	l := NewPanicSafeLogger(f)
	log.SetOutput(l)
	log.Printf("logging to '%s'\n", f.Name())
	return l, nil
}

func (l *PanicSafeLogger) Write(p []byte) (n int, err error) {
	return l.mw.Write(p)
}

func (l *PanicSafeLogger) Flush() error {
	return l.f.Sync()
}

func (l *PanicSafeLogger) Path() string {
	return l.f.Name()
}

func (l *PanicSafeLogger) Close() error {
	if std == l {
		log.SetOutput(os.Stderr)
		std = nil
	}
	_ = l.f.Sync()
	return l.f.Close()
}

func FlushLogger() error {
	if std == nil {
		return nil
	}
	return std.Flush()
}

func LogPanic(err any) {
	log.Printf("panicked with %v\n%s\n", err, string(debug.Stack()))
	_ = FlushLogger()
}
