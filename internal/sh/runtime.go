package sh

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/madlambda/jobfd/internal/config"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/sh"
)

type (
	// Runtime owns the descriptor pool and the root of a job tree.
	Runtime struct {
		pool  *fd.Pool
		root  *Job
		shell string
		poll  time.Duration
		debug bool

		logger *log.Logger
		logf   LogFn

		// OnStop, when set, is called when a captured job is observed
		// stopped, right before it is continued.
		OnStop func(*Job)

		mu      sync.Mutex
		pending []syscall.Signal
		sigs    chan os.Signal
	}
)

// NewRuntime creates a runtime whose root job maps logical fds 0, 1 and 2
// onto copies of the host's standard descriptors.
func NewRuntime(c config.Config) (*Runtime, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{
		pool:   fd.NewPool(c.MinFd),
		shell:  c.Shell,
		poll:   c.Poll(),
		debug:  c.Debug,
		logger: newLogger(os.Stderr),
	}
	rt.logf = NewLog(rt.logger, "jobfd.Runtime", c.Debug)

	if rt.shell == "" {
		rt.shell = selfExe()
	}

	root := rt.newJob(nil, "root", KindMulti)
	root.dir = c.Dir

	for i, dir := range []Direction{In, Out, Out} {
		target := FdTarget(i)
		if !fd.IsOpen(i) {
			target = -1
		}
		if err := root.redirectTo(false, i, dir, target); err != nil {
			return nil, err
		}
	}

	if err := root.BuildRemap(); err != nil {
		rt.pool.Close()
		return nil, err
	}

	root.started = true
	root.status = sh.Running()
	rt.root = root

	rt.logf("runtime ready: root fds %v, shell %s", root.Fds(), rt.shell)
	return rt, nil
}

// Pool is the descriptor pool every remap table allocates from.
func (rt *Runtime) Pool() *fd.Pool { return rt.pool }

// Notify records SIGINT and SIGQUIT delivered to the host as pending
// interrupts instead of letting them terminate it.
func (rt *Runtime) Notify() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.sigs != nil {
		return
	}

	rt.sigs = make(chan os.Signal, 8)
	signal.Notify(rt.sigs, syscall.SIGINT, syscall.SIGQUIT)

	go func(sigs chan os.Signal) {
		for sig := range sigs {
			rt.Interrupt(sig.(syscall.Signal))
		}
	}(rt.sigs)
}

// Interrupt records sig as pending. Pending interrupts are forwarded to
// the job being captured the next time its output stalls.
func (rt *Runtime) Interrupt(sig syscall.Signal) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.pending = append(rt.pending, sig)
}

func (rt *Runtime) takeInterrupts() []syscall.Signal {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sigs := rt.pending
	rt.pending = nil
	return sigs
}

// Close stops recording interrupts and releases the root's descriptors.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.sigs != nil {
		signal.Stop(rt.sigs)
		close(rt.sigs)
		rt.sigs = nil
	}
	rt.mu.Unlock()

	rt.root.ClearRemap()
	return rt.pool.Close()
}

func selfExe() string {
	path, err := os.Readlink("/proc/self/exe")

	if err != nil {
		path = os.Args[0]

		if _, err := os.Stat(path); err != nil {
			return ""
		}
	}

	return path
}
