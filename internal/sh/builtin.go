package sh

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/internal/sh/builtin"
	"github.com/madlambda/jobfd/sh"
)

const maxReason = 4096

type (
	// builtinFn runs a builtin.Fn on a host goroutine, taking care of the
	// details of reporting its outcome as a job status.
	builtinFn struct {
		stdin          io.Reader
		stdout, stderr io.Writer

		done   chan struct{}
		status int
		err    error

		name string
		fn   builtin.Fn
	}

	// closedPort stands for a logical fd redirected to "closed".
	closedPort struct{}
)

func newBuiltinFn(
	name string,
	fn builtin.Fn,
	in io.Reader,
	out io.Writer,
	outerr io.Writer,
) *builtinFn {
	return &builtinFn{
		name:   name,
		fn:     fn,
		stdin:  in,
		stdout: out,
		stderr: outerr,
	}
}

func (f *builtinFn) Start() {
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.status, f.err = 1, fmt.Errorf("builtin %s panicked: %v", f.name, r)
			}
		}()

		f.status, f.err = f.fn.Run(f.stdin, f.stdout, f.stderr)
	}()
}

func (f *builtinFn) Wait() (int, error) {
	<-f.done
	return f.status, f.err
}

func (f *builtinFn) String() string {
	return fmt.Sprintf("<builtin function %q>", f.name)
}

func (closedPort) Read([]byte) (int, error)  { return 0, syscall.EBADF }
func (closedPort) Write([]byte) (int, error) { return 0, syscall.EBADF }

// startInProcess runs a builtin inside the host, its standard streams
// being the ports of logical fds 0, 1 and 2. The remap table of j stays
// in use until the builtin returns.
func (j *Job) startInProcess(fn builtin.Fn) error {
	if err := j.BuildRemap(); err != nil {
		return err
	}

	var stdio [3]io.ReadWriter
	for i := range stdio {
		p, err := j.Port(i)
		switch {
		case err == nil:
			stdio[i] = p
		case errors.Is(err, errors.ErrPortNotFound):
			stdio[i] = closedPort{}
		default:
			j.ClearRemap()
			return err
		}
	}

	j.fdmu.Lock()
	j.busy = true
	j.fdmu.Unlock()

	j.mu.Lock()
	j.inprocess = true
	j.mu.Unlock()

	bf := newBuiltinFn(j.name, fn, stdio[0], stdio[1], stdio[2])
	j.logf("running %s in process", bf)
	j.setStatus(sh.Running())
	bf.Start()

	go func() {
		status, err := bf.Wait()
		if err != nil {
			j.finish(sh.Exception(err))
			return
		}
		j.finish(sh.Exited(status))
	}()

	return nil
}

// ReexecInit runs the builtin a parent runtime asked this process to run
// and exits. It returns at once in any other process, so it must be the
// first thing main (or TestMain) does.
func ReexecInit() {
	name, ok := os.LookupEnv(envBuiltin)
	if !ok {
		return
	}
	os.Exit(runReexec(name, os.Args[1:]))
}

func runReexec(name string, args []string) int {
	errfd := -1
	if s := os.Getenv(envErrFd); s != "" {
		if n, err := strconv.Atoi(s); err == nil && fd.SetCloexec(n, true) == nil {
			errfd = n
		}
	}
	os.Unsetenv(envBuiltin)
	os.Unsetenv(envErrFd)

	fn, err := builtin.Lookup(name, args)
	if err == nil {
		var status int

		status, err = fn.Run(os.Stdin, os.Stdout, os.Stderr)
		if err == nil {
			return status
		}
	}

	reason := err.Error()
	if reason == "" {
		reason = "builtin " + name + " failed"
	}
	if len(reason) > maxReason {
		reason = reason[:maxReason]
	}
	if errfd < 0 {
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, reason)
		return 1
	}
	fd.Write(errfd, []byte(reason))
	return 1
}
