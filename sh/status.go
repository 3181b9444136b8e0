package sh

import (
	"fmt"
	"syscall"
)

const (
	StatusNew StatusKind = iota
	StatusRunning
	StatusStopped
	StatusExited
	StatusKilled
	StatusException
)

type (
	StatusKind int

	// Status is the tagged state of a job. Only the fields relevant to
	// Kind are meaningful: Code for exited, Signal for stopped and killed,
	// Err for exception.
	Status struct {
		Kind   StatusKind
		Code   int
		Signal syscall.Signal
		Err    error
	}
)

func New() Status                       { return Status{Kind: StatusNew} }
func Running() Status                   { return Status{Kind: StatusRunning} }
func Stopped(sig syscall.Signal) Status { return Status{Kind: StatusStopped, Signal: sig} }
func Exited(code int) Status            { return Status{Kind: StatusExited, Code: code} }
func Killed(sig syscall.Signal) Status  { return Status{Kind: StatusKilled, Signal: sig} }
func Exception(err error) Status        { return Status{Kind: StatusException, Err: err} }

// FromWaitStatus converts a wait(2) status into a Status.
func FromWaitStatus(ws syscall.WaitStatus) Status {
	switch {
	case ws.Exited():
		return Exited(ws.ExitStatus())
	case ws.Signaled():
		return Killed(ws.Signal())
	case ws.Stopped():
		return Stopped(ws.StopSignal())
	case ws.Continued():
		return Running()
	}
	return Running()
}

// Finished reports whether the job will never change state again.
func (s Status) Finished() bool {
	switch s.Kind {
	case StatusExited, StatusKilled, StatusException:
		return true
	}
	return false
}

func (s Status) Success() bool { return s.Kind == StatusExited && s.Code == 0 }

func (s Status) String() string {
	switch s.Kind {
	case StatusNew:
		return "new"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return fmt.Sprintf("stopped(%s)", s.Signal)
	case StatusExited:
		return fmt.Sprintf("exited(%d)", s.Code)
	case StatusKilled:
		return fmt.Sprintf("killed(%s)", s.Signal)
	case StatusException:
		return fmt.Sprintf("exception(%v)", s.Err)
	}
	return fmt.Sprintf("status(%d)", int(s.Kind))
}
