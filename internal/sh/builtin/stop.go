package builtin

import (
	"io"

	"github.com/madlambda/jobfd/errors"
	"golang.org/x/sys/unix"
)

type (
	// stopFn suspends the process running it with SIGSTOP and returns
	// once continued.
	stopFn struct{}
)

func newStop() *stopFn {
	return &stopFn{}
}

func (s *stopFn) ArgNames() []string {
	return nil
}

func (s *stopFn) Detached() bool { return true }

func (s *stopFn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	if e := unix.Kill(unix.Getpid(), unix.SIGSTOP); e != nil {
		return 1, errors.NewError("stop: %s", e)
	}
	return 0, nil
}

func (s *stopFn) SetArgs(args []string) error {
	if len(args) != 0 {
		return errors.NewError("stop expects no arguments")
	}
	return nil
}
