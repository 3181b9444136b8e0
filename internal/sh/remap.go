package sh

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// BuildRemap resolves the redirect list of j into its remap table of
// real descriptors. While a table exists this is a no-op. On failure
// every descriptor allocated by the call is released and the table stays
// empty.
func (j *Job) BuildRemap() error {
	j.fdmu.Lock()
	if len(j.remap) > 0 {
		j.fdmu.Unlock()
		return nil
	}
	directives := j.redirs.Directives()
	j.fdmu.Unlock()

	if len(directives) == 0 {
		return nil
	}

	table := make(map[int]*fd.Handle, len(directives))

	for _, d := range directives {
		h, err := j.remapOne(table, d)
		if err != nil {
			j.releaseTable(table)
			return err
		}

		if old, ok := table[d.Fd]; ok {
			j.release(old)
		}
		table[d.Fd] = h
	}

	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	if len(j.remap) > 0 {
		j.releaseTable(table)
		return nil
	}

	j.remap = table
	j.logf("remap built: %s", formatTable(table))
	return nil
}

func (j *Job) remapOne(table map[int]*fd.Handle, d Directive) (*fd.Handle, error) {
	d, err := j.resolveGenerator(d)
	if err != nil {
		return nil, err
	}

	var src fd.Source

	switch t := d.Target.(type) {
	case FdTarget:
		src = fd.FromFd(j.targetFd(table, int(t)))
	case PathTarget:
		src = fd.FromPath(j.absPath(d, t))
	case handleTarget:
		if t.h.Fd() < 0 {
			return nil, errors.NewRedirectFailedError(d.Fd, d.Symbol(), t.h.String(), syscall.EBADF)
		}
		src = fd.FromFd(t.h.Fd())
	default:
		return nil, errors.NewInvalidRedirectError("job-redirect",
			"unresolved redirect target %v", d.Target)
	}

	h, err := j.rt.pool.Allocate()
	if err != nil {
		return nil, errors.NewRedirectFailedError(d.Fd, d.Symbol(), src.String(), errnoOf(err))
	}

	if err := fd.Redirect(h.Fd(), rune(d.Dir), src, true); err != nil {
		j.release(h)
		return nil, errors.NewRedirectFailedError(d.Fd, d.Symbol(), src.String(), errnoOf(err))
	}

	if !src.IsPath() && src.Fd() == -1 {
		j.rt.pool.Detach(h)
	}

	j.logf("fd %d %s %s -> %d", d.Fd, d.Symbol(), src, h.Fd())
	return h, nil
}

// resolveGenerator replaces a generator target by the target it produces.
func (j *Job) resolveGenerator(d Directive) (Directive, error) {
	g, ok := d.Target.(Generator)
	if !ok {
		return d, nil
	}

	v, err := g.fn(j)
	if err != nil {
		return Directive{}, fmt.Errorf("redirect generator for fd %d: %w", d.Fd, err)
	}

	if list, ok := v.([]string); ok && len(list) == 1 {
		v = list[0]
	}

	var t Target

	switch v := v.(type) {
	case int:
		t = FdTarget(v)
	case FdTarget:
		t = v
	case string:
		t = PathTarget(v)
	case []byte:
		t = PathTarget(v)
	case PathTarget:
		t = v
	default:
		return Directive{}, errors.NewInvalidRedirectError("job-redirect",
			"redirect generator for fd %d returned %#v, expecting fd, path or bytes", d.Fd, v)
	}

	return NewDirective("job-redirect", d.Fd, d.Dir, t)
}

// targetFd translates a logical fd target into the real descriptor it
// denotes for j: an entry of the table being built wins, then whatever
// the ancestors resolve it to.
func (j *Job) targetFd(table map[int]*fd.Handle, target int) int {
	if target < 0 {
		return target
	}
	if h, ok := table[target]; ok {
		return h.Fd()
	}
	if j.parent == nil {
		return target
	}
	_, _, resolved := j.parent.FindFd(target)
	return resolved
}

// absPath returns the NUL-terminated path to open for a file redirection,
// relative paths being rewritten against j's working directory.
func (j *Job) absPath(d Directive, p PathTarget) []byte {
	if len(p) > 0 && p[0] == '/' {
		return p
	}

	dir := j.Dir()
	if dir == "" || d.cache == nil {
		return p
	}

	d.cache.Lock()
	defer d.cache.Unlock()

	if d.cache.path != nil && d.cache.dir == dir {
		return d.cache.path
	}

	d.cache.dir = dir
	d.cache.path = Path(strings.TrimRight(dir, "/") + "/" + p.String())
	return d.cache.path
}

// ClearRemap releases the remap table of j together with its port cache.
// While a host goroutine still runs on the table the release happens when
// the job finishes.
func (j *Job) ClearRemap() {
	j.fdmu.Lock()
	if j.busy {
		j.fdmu.Unlock()
		j.logf("remap in use, release deferred until finish")
		return
	}

	table := j.remap
	j.remap = nil
	j.ports = nil
	j.fdmu.Unlock()

	if len(table) > 0 {
		j.logf("releasing remap: %s", formatTable(table))
		j.releaseTable(table)
	}
}

// Fds returns the logical to real descriptor mapping of j, sorted by
// logical fd.
func (j *Job) Fds() [][2]int {
	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	keys := maps.Keys(j.remap)
	slices.Sort(keys)

	out := make([][2]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]int{k, j.remap[k].Fd()})
	}
	return out
}

func (j *Job) releaseTable(table map[int]*fd.Handle) {
	keys := maps.Keys(table)
	slices.Sort(keys)
	for _, k := range keys {
		j.release(table[k])
	}
}

func (j *Job) release(h *fd.Handle) {
	if h == nil {
		return
	}
	n := h.Fd()
	if _, err := j.rt.pool.Release(h); err != nil {
		j.logf("release of fd %d: %s", n, err)
	}
}

func formatTable(table map[int]*fd.Handle) string {
	keys := maps.Keys(table)
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d=%d", k, table[k].Fd()))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EINVAL
}
