package sh

import "syscall"

const (
	// WaitPoll reports the current status without blocking and without
	// resuming a stopped job.
	WaitPoll WaitPolicy = iota
	// WaitResume continues a stopped job and returns without waiting.
	WaitResume
	// WaitStopOrExit blocks until the job finishes or stops.
	WaitStopOrExit
	// WaitFinish continues a stopped job and blocks until it finishes.
	WaitFinish
)

type (
	// WaitPolicy enumerates the meaningful combinations of
	// continue-if-stopped and wait-until-finished.
	WaitPolicy int

	// StartOptions controls how a job is started.
	StartOptions struct {
		// Subprocess forces the job, and every job below it, to run in
		// child processes instead of inside the host.
		Subprocess bool

		// CloseFds lists descriptors the child must not inherit.
		CloseFds []int

		// Pgid is the process group to join. Zero creates a new group
		// led by the job's first process.
		Pgid int
	}

	// Runner is the lifecycle contract of a job.
	Runner interface {
		Start(StartOptions) error
		Wait(WaitPolicy) (Status, error)
		Status() Status
		Kill(syscall.Signal) error
	}
)

func (p WaitPolicy) Continue() bool { return p == WaitResume || p == WaitFinish }
func (p WaitPolicy) Block() bool    { return p == WaitStopOrExit || p == WaitFinish }

func (p WaitPolicy) String() string {
	switch p {
	case WaitPoll:
		return "poll"
	case WaitResume:
		return "resume"
	case WaitStopOrExit:
		return "wait-stop-or-exit"
	case WaitFinish:
		return "wait-finish"
	}
	return "invalid-wait-policy"
}
