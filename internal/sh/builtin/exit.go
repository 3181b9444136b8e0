package builtin

import (
	"io"
	"strconv"

	"github.com/madlambda/jobfd/errors"
)

type (
	exitFn struct {
		status int
	}

	// failFn raises its arguments as an exception instead of exiting.
	failFn struct {
		reason string
	}
)

func newExit() Fn {
	return &exitFn{}
}

func (e *exitFn) ArgNames() []string {
	return []string{"status"}
}

func (e *exitFn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	return e.status, nil
}

func (e *exitFn) SetArgs(args []string) error {
	if len(args) != 1 {
		return errors.NewError("exit expects 1 argument")
	}

	status, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.NewError(
			"exit:error[%s] converting status[%s] to int",
			err,
			args[0],
		)

	}
	if status < 0 || status > 255 {
		return errors.NewError("exit: status %d out of range [0, 255]", status)
	}
	e.status = status
	return nil
}

func newFail() Fn {
	return &failFn{}
}

func (f *failFn) ArgNames() []string {
	return []string{"reason..."}
}

func (f *failFn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	return 1, errors.NewError("%s", f.reason)
}

func (f *failFn) SetArgs(args []string) error {
	if len(args) == 0 {
		f.reason = "fail"
		return nil
	}

	f.reason = args[0]
	for _, arg := range args[1:] {
		f.reason += " " + arg
	}
	return nil
}
