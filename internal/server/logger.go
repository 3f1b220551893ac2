package server

import (
	"io"
	"os"

	"github.com/cyclopcam/logs"
)

// NewStderrLog returns a logs.Logger writing to stderr. Stdout carries the
// JSON-RPC stream, so nothing else may be written there. Debug messages are
// dropped unless debug is set.
func NewStderrLog(debug bool) logs.Log {
	return NewWriterLog(os.Stderr, debug)
}

// NewWriterLog is NewStderrLog for an arbitrary writer.
func NewWriterLog(w io.Writer, debug bool) logs.Log {
	l := &logs.Logger{Output: w}
	if debug {
		return l
	}
	return quietLog{l}
}

// quietLog drops debug messages.
type quietLog struct {
	logs.Log
}

func (quietLog) Debugf(format string, a ...interface{}) {}
