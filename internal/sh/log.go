package sh

import (
	"fmt"
	"io"
	"log"
)

// LogFn logs a debug message of one component of a runtime.
type LogFn func(format string, args ...interface{})

// NewLog returns a LogFn writing to out with messages tagged by ns. A
// disabled LogFn discards its messages without formatting them.
func NewLog(out *log.Logger, ns string, enable bool) LogFn {
	if !enable {
		return func(string, ...interface{}) {}
	}

	prefix := "[" + ns + "] "
	return func(format string, args ...interface{}) {
		// 2 reports the caller of the LogFn
		out.Output(2, prefix+fmt.Sprintf(format, args...))
	}
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.Lmicroseconds|log.Lshortfile)
}

// SetLogOutput sends the debug log of rt and of all its jobs to w.
func (rt *Runtime) SetLogOutput(w io.Writer) {
	rt.logger.SetOutput(w)
}
