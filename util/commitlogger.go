package util

import (
	"fmt"
	"io"
)

// Committer is implemented by line-buffered loggers that flush a complete line on Commit.
type Committer interface {
	Commit()
}

// CommitLogger collects the writes of one log line and hands the line to Committer on Commit.
type CommitLogger struct {
	Committer func(p []byte)
	buf       []byte
}

func (l *CommitLogger) Reserve(n int) {
	if cap(l.buf) >= n {
		return
	}

	newbuf := make([]byte, len(l.buf), n)
	copy(newbuf, l.buf)
	l.buf = newbuf
}

func (l *CommitLogger) Write(p []byte) (n int, err error) {
	l.buf = append(l.buf, p...)
	return len(p), nil
}

func (l *CommitLogger) Commit() {
	if l.Committer != nil {
		l.Committer(l.buf)
	}
	l.Reset()
}

func (l *CommitLogger) Reset() {
	l.buf = l.buf[:0]
}

// Logf writes one formatted line to w and commits it when w is a Committer. A nil w discards
// the line.
func Logf(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
	if c, ok := w.(Committer); ok {
		c.Commit()
	}
}
