package sh

import (
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
)

// RedirectList is the ordered sequence of a job's redirections: a
// temporary prefix followed by a permanent suffix. The prefix is kept
// reversed so inserting at the front is an append.
type RedirectList struct {
	temp []Directive
	perm []Directive
}

// Append adds permanent directives at the end, keeping their order.
func (l *RedirectList) Append(ds ...Directive) {
	l.perm = append(l.perm, ds...)
}

// Prepend adds temporary directives at the front. After the call the
// list starts with ds in the given order.
func (l *RedirectList) Prepend(ds ...Directive) {
	for i := len(ds) - 1; i >= 0; i-- {
		l.temp = append(l.temp, ds[i])
	}
}

// ClearTemporary drops the whole temporary prefix and returns it in
// resolution order.
func (l *RedirectList) ClearTemporary() []Directive {
	dropped := make([]Directive, 0, len(l.temp))
	for i := len(l.temp) - 1; i >= 0; i-- {
		dropped = append(dropped, l.temp[i])
		l.temp[i] = Directive{}
	}
	l.temp = l.temp[:0]
	return dropped
}

func (l *RedirectList) Len() int { return len(l.temp) + len(l.perm) }

// Temporary is the length of the temporary prefix.
func (l *RedirectList) Temporary() int { return len(l.temp) }

// Directives returns a copy of the list in resolution order.
func (l *RedirectList) Directives() []Directive {
	out := make([]Directive, 0, l.Len())
	for i := len(l.temp) - 1; i >= 0; i-- {
		out = append(out, l.temp[i])
	}
	return append(out, l.perm...)
}

// Redirect appends permanent redirections given in their flattened user
// form, see parseRedirectArgs. Either every redirection is inserted or,
// on error, none is.
func (j *Job) Redirect(args ...interface{}) error {
	ds, err := parseRedirectArgs("job-redirect!", args)
	if err != nil {
		return err
	}
	j.AppendRedirect(ds...)
	return nil
}

// TemporaryRedirect is Redirect for the temporary prefix.
func (j *Job) TemporaryRedirect(args ...interface{}) error {
	ds, err := parseRedirectArgs("job-redirect-temp!", args)
	if err != nil {
		return err
	}
	j.PrependRedirect(ds...)
	return nil
}

// AppendRedirect adds validated permanent directives.
func (j *Job) AppendRedirect(ds ...Directive) {
	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	j.redirs.Append(ds...)
}

// PrependRedirect adds validated temporary directives.
func (j *Job) PrependRedirect(ds ...Directive) {
	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	j.redirs.Prepend(ds...)
}

// ClearTemporaryRedirects removes the temporary prefix and discards the
// remap table built from it.
func (j *Job) ClearTemporaryRedirects() {
	j.fdmu.Lock()
	dropped := j.redirs.ClearTemporary()
	j.fdmu.Unlock()

	for _, d := range dropped {
		if t, ok := d.Target.(handleTarget); ok {
			j.release(t.h)
		}
	}

	j.ClearRemap()
}

// Redirects returns the job's directives in resolution order.
func (j *Job) Redirects() []Directive {
	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	return j.redirs.Directives()
}

// redirectHandle temporarily redirects logical to a pool descriptor. The
// directive holds its own reference to h until the temporary prefix is
// cleared.
func (j *Job) redirectHandle(logical int, dir Direction, h *fd.Handle) error {
	if !j.rt.pool.Owns(h.Fd()) {
		return errors.NewRedirectFailedError(logical, dir.Symbol(true), h.String(), syscall.EBADF)
	}
	j.PrependRedirect(Directive{
		Fd:     logical,
		Dir:    dir,
		Target: handleTarget{h: h.Retain()},
		fdForm: true,
	})
	return nil
}

// redirectTo is the typed form used by the runtime itself.
func (j *Job) redirectTo(temporary bool, logical int, dir Direction, t Target) error {
	d, err := NewDirective("job-redirect", logical, dir, t)
	if err != nil {
		return err
	}
	if temporary {
		j.PrependRedirect(d)
	} else {
		j.AppendRedirect(d)
	}
	return nil
}
