package errors

import (
	stderrors "errors"
	"fmt"
	"syscall"
)

type (
	NashError struct {
		reason string
	}

	// kind is a comparable sentinel used only through errors.Is.
	kind string

	InvalidRedirectError struct {
		*NashError
	}

	RedirectFailedError struct {
		*NashError

		Fd        int
		Direction string
		Target    string
		Errno     syscall.Errno
	}

	PortNotFoundError struct {
		*NashError

		Fd  int
		Job string
	}

	SignalError struct {
		*NashError

		Signal syscall.Signal
		Cause  string
	}

	ExceptionError struct {
		*NashError

		Job string
		Err error
	}
)

const (
	ErrInvalidRedirect kind = "invalid redirect argument"
	ErrRedirectFailed  kind = "redirect failed"
	ErrPortNotFound    kind = "port not found"
	ErrReceivedSignal  kind = "received signal"
	ErrException       kind = "job raised an exception"
)

func (k kind) Error() string { return string(k) }

func NewError(format string, arg ...interface{}) *NashError {
	e := &NashError{}
	e.SetReason(format, arg...)
	return e
}

func (e *NashError) SetReason(format string, arg ...interface{}) {
	e.reason = fmt.Sprintf(format, arg...)
}

func (e *NashError) Error() string { return e.reason }

// NewInvalidRedirectError reports a malformed redirection request. The
// caller name prefixes the message, as in "job-redirect!: invalid ...".
func NewInvalidRedirectError(caller string, format string, arg ...interface{}) error {
	return &InvalidRedirectError{
		NashError: NewError("%s: "+format, append([]interface{}{caller}, arg...)...),
	}
}

func (e *InvalidRedirectError) InvalidRedirect() bool { return true }
func (e *InvalidRedirectError) Is(target error) bool  { return target == ErrInvalidRedirect }

func NewRedirectFailedError(fd int, direction string, target string, errno syscall.Errno) error {
	return &RedirectFailedError{
		NashError: NewError("failed redirecting fd %d %s %s: %s",
			fd, direction, target, errno),
		Fd:        fd,
		Direction: direction,
		Target:    target,
		Errno:     errno,
	}
}

func (e *RedirectFailedError) Is(target error) bool { return target == ErrRedirectFailed }
func (e *RedirectFailedError) Unwrap() error        { return e.Errno }

func NewPortNotFoundError(fd int, job string) error {
	return &PortNotFoundError{
		NashError: NewError("no port found for fd %d in job %s", fd, job),
		Fd:        fd,
		Job:       job,
	}
}

func (e *PortNotFoundError) Is(target error) bool { return target == ErrPortNotFound }

// NewSignalError reports that a waited job was killed by a signal that is
// fatal to an interactive shell.
func NewSignalError(sig syscall.Signal, cause string) error {
	return &SignalError{
		NashError: NewError("received signal %s: %s", sig, cause),
		Signal:    sig,
		Cause:     cause,
	}
}

func (e *SignalError) Interrupted() bool    { return e.Signal == syscall.SIGINT }
func (e *SignalError) Is(target error) bool { return target == ErrReceivedSignal }

func NewExceptionError(job string, err error) error {
	return &ExceptionError{
		NashError: NewError("job %s raised: %s", job, err),
		Job:       job,
		Err:       err,
	}
}

func (e *ExceptionError) Is(target error) bool { return target == ErrException }
func (e *ExceptionError) Unwrap() error        { return e.Err }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
