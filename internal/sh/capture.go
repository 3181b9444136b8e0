package sh

import (
	"bytes"
	"io"
	"strings"
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/internal/utf8b"
	"github.com/madlambda/jobfd/sh"
)

// scope releases the handles it holds exactly once, whichever way the
// function owning it returns.
type scope struct {
	job   *Job
	owned []*fd.Handle
}

func (s *scope) add(hs ...*fd.Handle) { s.owned = append(s.owned, hs...) }

func (s *scope) release(h *fd.Handle) {
	for i, o := range s.owned {
		if o == h {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			s.job.release(h)
			return
		}
	}
}

func (s *scope) releaseAll() {
	for _, h := range s.owned {
		s.job.release(h)
	}
	s.owned = nil
}

// Capture runs j in a child process and returns everything it writes to
// its logical stdout together with its final status. A job raising an
// exception or killed by SIGINT or SIGQUIT is reported as an error; any
// other outcome is only reflected in the status.
func (j *Job) Capture() ([]byte, sh.Status, error) {
	sc := &scope{job: j}
	defer sc.releaseAll()

	r, w, err := j.rt.pool.Pipe()
	if err != nil {
		return nil, sh.Status{}, err
	}
	sc.add(r, w)

	if err := j.redirectHandle(1, Out, w); err != nil {
		return nil, sh.Status{}, err
	}
	defer j.ClearTemporaryRedirects()

	err = j.Start(sh.StartOptions{
		Subprocess: true,
		CloseFds:   []int{r.Fd()},
	})
	if err != nil {
		return nil, sh.Status{}, err
	}

	// the pipe reports EOF only once no write end is left open here
	j.ClearTemporaryRedirects()
	sc.release(w)

	out, err := j.drain(r.Fd())
	if err != nil {
		j.logf("drain: %s", err)
	}
	sc.release(r)

	st, err := j.Wait(sh.WaitFinish)
	if err != nil {
		return out, st, err
	}
	return out, st, j.raise(st)
}

// drain reads n until end of stream. While no data is available it
// forwards pending interrupts to j and resumes j if it stopped, since a
// stopped writer would never produce the end of stream.
func (j *Job) drain(n int) ([]byte, error) {
	if err := fd.SetNonblock(n, true); err != nil {
		return nil, err
	}

	var (
		out     bytes.Buffer
		chunk   = make([]byte, 4096)
		handled = j.Stops()
		pollMs  = int(j.rt.poll.Milliseconds())
	)

	for {
		c, err := fd.Read(n, chunk)
		out.Write(chunk[:c])

		switch {
		case err == nil:
			continue
		case err == io.EOF:
			return out.Bytes(), nil
		case err != fd.ErrWouldBlock:
			return out.Bytes(), err
		}

		for _, sig := range j.rt.takeInterrupts() {
			j.logf("forwarding %s", sig)
			if err := j.Kill(sig); err != nil {
				j.logf("forwarding %s: %s", sig, err)
			}
		}

		if st := j.Status(); st.Kind == sh.StatusStopped && j.Stops() != handled {
			handled = j.Stops()
			j.logf("stopped by %s while captured, continuing", st.Signal)
			if j.rt.OnStop != nil {
				j.rt.OnStop(j)
			}
			if err := j.Continue(); err != nil {
				return out.Bytes(), err
			}
		}

		if _, err := fd.WaitReadable(n, pollMs); err != nil {
			return out.Bytes(), err
		}
	}
}

// raise turns the final status of a captured job into the error crossing
// the capture boundary, ending the controller of j the same way.
func (j *Job) raise(st sh.Status) error {
	ctl := j.controller()

	switch st.Kind {
	case sh.StatusException:
		if ctl != nil {
			ctl.killWith(st)
		}
		return errors.NewExceptionError(j.name, st.Err)
	case sh.StatusKilled:
		var cause string

		switch st.Signal {
		case syscall.SIGINT:
			cause = "user interrupt"
		case syscall.SIGQUIT:
			cause = "user quit"
		default:
			return nil
		}

		if ctl != nil {
			ctl.killWith(st)
		}
		return errors.NewSignalError(st.Signal, cause)
	}
	return nil
}

// CaptureString is Capture with the output as a string.
func (j *Job) CaptureString() (string, sh.Status, error) {
	out, st, err := j.Capture()
	return string(out), st, err
}

// CaptureRunes is Capture with the output decoded as UTF-8b.
func (j *Job) CaptureRunes() ([]rune, sh.Status, error) {
	out, st, err := j.Capture()
	return utf8b.Decode(out), st, err
}

// CaptureTrimmed is CaptureString without trailing newlines.
func (j *Job) CaptureTrimmed() (string, sh.Status, error) {
	out, st, err := j.CaptureString()
	return TrimNewlines(out), st, err
}

// CaptureFields is CaptureString split at NUL bytes.
func (j *Job) CaptureFields() ([]string, sh.Status, error) {
	out, st, err := j.CaptureString()
	return SplitFields(out), st, err
}

func TrimNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}

// SplitFields splits s at NUL bytes. A NUL ending s terminates the last
// field instead of starting an empty one; a string without NUL is a
// single field.
func SplitFields(s string) []string {
	fields := strings.Split(s, "\x00")
	if n := len(fields); n > 1 && fields[n-1] == "" {
		fields = fields[:n-1]
	}
	return fields
}
