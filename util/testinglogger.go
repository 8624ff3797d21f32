package util

import (
	"strings"
	"testing"
)

// NewTestingLogger routes committed lines to tb.Log.
func NewTestingLogger(tb testing.TB) *CommitLogger {
	l := &CommitLogger{
		Committer: func(p []byte) {
			tb.Log(strings.TrimSuffix(string(p), "\n"))
		},
	}
	l.Reserve(128)
	return l
}
