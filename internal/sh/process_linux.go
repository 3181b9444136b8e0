package sh

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/sh"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

const (
	envBuiltin = "JOBFD_BUILTIN"
	envErrFd   = "JOBFD_ERRFD"

	closedFd = ^uintptr(0)
)

// startProcess spawns j with the descriptor table its remap tables
// describe. The remap table of j is released once the child holds its
// copies.
func (j *Job) startProcess(opts sh.StartOptions) error {
	var (
		path string
		argv []string
		err  error

		errr, errw *fd.Handle
	)

	env := j.env
	if env == nil {
		env = os.Environ()
	}

	if j.kind == KindCmd {
		path, err = exec.LookPath(j.path)
		if err != nil {
			return errors.NewError("job %s: %s", j.name, err)
		}
		argv = j.args
	} else {
		path = j.rt.shell
		if path == "" {
			return errors.NewError("job %s: no executable to run builtins from", j.name)
		}
		argv = append([]string{path}, j.args...)
		env = append(withoutReexecEnv(env), envBuiltin+"="+j.name)

		errr, errw, err = j.rt.pool.Pipe()
		if err != nil {
			return err
		}
	}

	if err := j.BuildRemap(); err != nil {
		j.release(errw)
		j.release(errr)
		return err
	}

	files := j.childFiles()
	if errw != nil {
		env = append(env, fmt.Sprintf("%s=%d", envErrFd, len(files)))
		files = append(files, uintptr(errw.Fd()))
	}

	for _, n := range opts.CloseFds {
		if err := fd.SetCloexec(n, true); err != nil {
			j.logf("close-on-exec of fd %d: %s", n, err)
		}
	}

	attr := &syscall.ProcAttr{
		Dir:   j.Dir(),
		Env:   env,
		Files: files,
		Sys: &syscall.SysProcAttr{
			Setpgid: true,
			Pgid:    opts.Pgid,
		},
	}

	j.logf("spawning %s %q files %v pgid %d", path, argv, files, opts.Pgid)

	pid, err := syscall.ForkExec(path, argv, attr)
	if err == syscall.EPERM && opts.Pgid != 0 {
		// the group is gone, its leader and members exited
		attr.Sys.Pgid = 0
		pid, err = syscall.ForkExec(path, argv, attr)
	}

	j.ClearRemap()
	j.release(errw)

	if err != nil {
		j.release(errr)
		return errors.NewError("job %s: starting %s: %s", j.name, path, err)
	}

	pgid := attr.Sys.Pgid
	if pgid == 0 {
		pgid = pid
	}
	// the child may not have reached setpgid yet
	_ = unix.Setpgid(pid, pgid)

	j.mu.Lock()
	j.pid = pid
	j.pgid = pgid
	j.mu.Unlock()

	j.setStatus(sh.Running())

	go j.reap(pid, errr)
	return nil
}

// childFiles builds the descriptor table of a child: entry i is the real
// descriptor backing logical fd i. Logical fds are 0, 1, 2 and every fd
// remapped by j or an ancestor; the others are closed.
func (j *Job) childFiles() []uintptr {
	logical := map[int]bool{0: true, 1: true, 2: true}

	for cur := j; cur != nil; cur = cur.parent {
		cur.fdmu.Lock()
		for k := range cur.remap {
			logical[k] = true
		}
		cur.fdmu.Unlock()
	}

	keys := maps.Keys(logical)
	slices.Sort(keys)

	files := make([]uintptr, keys[len(keys)-1]+1)
	for i := range files {
		files[i] = closedFd
	}

	for _, l := range keys {
		_, _, resolved := j.FindFd(l)
		if resolved < 0 || !fd.IsOpen(resolved) {
			continue
		}
		files[l] = uintptr(resolved)
	}

	return files
}

// reap is the only waiter of pid. It records every transition until the
// process is gone, then turns an exception reported by a builtin child
// into the final status.
func (j *Job) reap(pid int, errpipe *fd.Handle) {
	for {
		var ws unix.WaitStatus

		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}

		if err != nil {
			j.release(errpipe)
			j.finish(sh.Exception(fmt.Errorf("waiting process %d: %w", pid, err)))
			return
		}

		st := sh.FromWaitStatus(syscall.WaitStatus(ws))
		if !st.Finished() {
			j.setStatus(st)
			continue
		}

		if errpipe != nil {
			if reason := readReason(errpipe.Fd()); reason != "" {
				st = sh.Exception(errors.NewError("%s", reason))
			}
			j.release(errpipe)
		}

		j.finish(st)
		return
	}
}

// readReason reads what a builtin child reported before exiting.
func readReason(n int) string {
	var (
		out strings.Builder
		buf [512]byte
	)

	for out.Len() < maxReason {
		c, err := fd.Read(n, buf[:])
		if err != nil {
			break
		}
		out.Write(buf[:c])
	}
	return out.String()
}

func withoutReexecEnv(env []string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, envBuiltin+"=") || strings.HasPrefix(kv, envErrFd+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
