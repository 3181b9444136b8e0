// Command jobfd runs programs and builtins as jobs, capturing their output
// or running them with redirections resolved through a job tree.
package main

import (
	"os"

	"github.com/madlambda/jobfd"
	"github.com/madlambda/jobfd/errors"
)

func main() {
	// a re-executed builtin child never returns from here
	jobfd.Init()

	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	colorError.Fprint(os.Stderr, "error: ")
	os.Stderr.WriteString(err.Error() + "\n")

	var st *statusError
	if errors.As(err, &st) {
		os.Exit(st.ExitCode())
	}
	os.Exit(1)
}
