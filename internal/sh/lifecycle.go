package sh

import (
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/sh/builtin"
	"github.com/madlambda/jobfd/sh"
	"golang.org/x/sys/unix"
)

// Start runs j. Commands always get a process of their own; builtins run
// inside the host unless opts.Subprocess is set or the builtin acts on
// its own process; a Multi runs its children from a host goroutine,
// forcing them into processes when opts.Subprocess is set.
func (j *Job) Start(opts sh.StartOptions) error {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return errors.NewError("job %s already started", j.name)
	}
	j.started = true
	j.mu.Unlock()

	var err error

	switch j.kind {
	case KindCmd:
		err = j.startProcess(opts)
	case KindBuiltin:
		var fn builtin.Fn

		fn, err = builtin.Lookup(j.name, j.args)
		if err != nil {
			break
		}
		if opts.Subprocess || builtin.IsDetached(fn) {
			err = j.startProcess(opts)
		} else {
			err = j.startInProcess(fn)
		}
	case KindMulti:
		err = j.startMulti(opts)
	default:
		err = errors.NewError("job %s: unknown kind %s", j.name, j.kind)
	}

	if err != nil {
		j.logf("start failed: %s", err)

		j.mu.Lock()
		j.started = false
		j.mu.Unlock()
	}
	return err
}

// Status returns the last status observed for j. A running Multi reports
// itself stopped while its current child is stopped.
func (j *Job) Status() sh.Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.statusLocked()
}

func (j *Job) statusLocked() sh.Status {
	if j.kind == KindMulti && j.status.Kind == sh.StatusRunning && j.current != nil {
		if st := j.current.Status(); st.Kind == sh.StatusStopped {
			return st
		}
	}
	return j.status
}

// Stops counts the times j was observed entering the stopped state.
func (j *Job) Stops() int {
	if j.kind == KindMulti {
		total := 0
		for _, c := range j.children {
			total += c.Stops()
		}
		return total
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.stops
}

// Wait applies policy to j and returns the resulting status. Waiting
// never reaps processes itself: it observes the transitions recorded by
// the job's reaper.
func (j *Job) Wait(policy sh.WaitPolicy) (sh.Status, error) {
	continued := false

	for {
		j.mu.Lock()
		st := j.statusLocked()
		changed := j.changed
		j.mu.Unlock()

		if st.Kind == sh.StatusNew {
			return st, errors.NewError("job %s: wait on a job not started", j.name)
		}

		if st.Kind == sh.StatusStopped && policy.Continue() && !continued {
			if err := j.Continue(); err != nil {
				return st, err
			}
			continued = true
		}

		if !policy.Block() || st.Finished() {
			return j.Status(), nil
		}
		if st.Kind == sh.StatusStopped && !policy.Continue() {
			return st, nil
		}

		<-changed
		continued = false
	}
}

// await blocks until done accepts the status of j.
func (j *Job) await(done func(sh.Status) bool) sh.Status {
	for {
		j.mu.Lock()
		st := j.statusLocked()
		changed := j.changed
		j.mu.Unlock()

		if done(st) {
			return st
		}
		<-changed
	}
}

// Continue resumes a stopped job.
func (j *Job) Continue() error {
	return j.Kill(syscall.SIGCONT)
}

// Kill delivers sig to j: to its whole process group when j leads one or
// is a Multi, to its process otherwise. A builtin running in the host
// cannot be signaled; terminating signals only mark it killed.
func (j *Job) Kill(sig syscall.Signal) error {
	j.mu.Lock()
	started := j.started
	inprocess := j.inprocess
	pid, pgid := j.pid, j.pgid
	current := j.current
	st := j.status
	j.mu.Unlock()

	if !started {
		return errors.NewError("job %s: kill of a job not started", j.name)
	}
	if st.Finished() {
		return nil
	}

	j.logf("kill %s", sig)

	switch {
	case j.kind == KindMulti:
		// a Multi started in the host's own group signals its children
		// one by one
		shared := pgid == unix.Getpgrp()
		if pgid > 0 && !shared {
			if err := kill(-pgid, sig); err != nil {
				return err
			}
		}
		if current != nil && (pgid == 0 || shared || current.Pgid() != pgid) {
			return current.Kill(sig)
		}
		return nil
	case inprocess:
		if !terminates(sig) {
			return nil
		}
		killed := sh.Killed(sig)
		j.mu.Lock()
		j.abort = &killed
		j.mu.Unlock()
		j.setStatus(killed)
		return nil
	case pgid == pid:
		return kill(-pgid, sig)
	}
	return kill(pid, sig)
}

// killWith ends j with st on behalf of a job it controls.
func (j *Job) killWith(st sh.Status) {
	j.mu.Lock()
	j.abort = &st
	j.mu.Unlock()

	sig := syscall.SIGKILL
	if st.Kind == sh.StatusKilled {
		sig = st.Signal
	}
	if err := j.Kill(sig); err != nil {
		j.logf("kill with %s: %s", st, err)
	}
}

// setStatus records a transition and wakes every waiter of j and of a
// Multi above it.
func (j *Job) setStatus(st sh.Status) {
	j.mu.Lock()
	if st.Kind == sh.StatusStopped && j.status.Kind != sh.StatusStopped {
		j.stops++
	}
	j.status = st
	close(j.changed)
	j.changed = make(chan struct{})
	j.mu.Unlock()

	j.logf("status %s", st)

	if p := j.parent; p != nil && p.kind == KindMulti {
		p.notify()
	}
}

func (j *Job) notify() {
	j.mu.Lock()
	defer j.mu.Unlock()

	close(j.changed)
	j.changed = make(chan struct{})
}

// finish releases the descriptors of j and records its final status. The
// remap table goes first so descriptors are closed once waiters wake.
func (j *Job) finish(st sh.Status) {
	j.fdmu.Lock()
	j.busy = false
	j.fdmu.Unlock()

	j.ClearRemap()

	j.mu.Lock()
	if j.abort != nil {
		st = *j.abort
	}
	j.current = nil
	j.mu.Unlock()

	j.setStatus(st)
}

func terminates(sig syscall.Signal) bool {
	switch sig {
	case syscall.SIGCONT, syscall.SIGSTOP, syscall.SIGTSTP, syscall.SIGTTIN,
		syscall.SIGTTOU, syscall.SIGCHLD, syscall.SIGWINCH, syscall.SIGURG:
		return false
	}
	return sig != 0
}

func kill(pid int, sig syscall.Signal) error {
	err := unix.Kill(pid, sig)
	if err == unix.ESRCH {
		return nil
	}
	return err
}
