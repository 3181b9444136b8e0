package sh

import (
	"io"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/internal/utf8b"
)

type (
	// Port is binary I/O on a resolved descriptor. It does not own the
	// descriptor: closing is up to the remap table holding it.
	Port struct {
		fd int
	}

	// TextPort layers UTF-8b text over a Port.
	TextPort struct {
		*Port
		r *utf8b.Reader
	}
)

func (p *Port) Fd() int { return p.fd }

func (p *Port) Read(b []byte) (int, error)  { return fd.Read(p.fd, b) }
func (p *Port) Write(b []byte) (int, error) { return fd.Write(p.fd, b) }

// ReadRune decodes one rune, bytes of invalid sequences being returned
// as runes of the U+DC80..U+DCFF range.
func (t *TextPort) ReadRune() (rune, int, error) {
	return t.r.ReadRune()
}

// WriteRunes encodes runes back to bytes, the surrogate escapes turning
// into the raw bytes they stand for.
func (t *TextPort) WriteRunes(rs []rune) (int, error) {
	b, bad := utf8b.Encode(rs)
	if bad >= 0 {
		return 0, errors.NewError("text port: rune %U at %d is not encodable", rs[bad], bad)
	}
	return t.Write(b)
}

// WriteString writes the bytes of s unchanged.
func (t *TextPort) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// FindFd walks from j toward the root resolving logical: a level whose
// remap table maps the current descriptor replaces it by the mapped one
// and becomes the owner. It returns the last owner (nil when no level
// remapped it), the queried fd and the resolved descriptor.
func (j *Job) FindFd(logical int) (*Job, int, int) {
	var owner *Job

	resolved := logical
	for cur := j; cur != nil && resolved >= 0; cur = cur.parent {
		cur.fdmu.Lock()
		if h, ok := cur.remap[resolved]; ok {
			resolved = h.Fd()
			owner = cur
		}
		cur.fdmu.Unlock()
	}

	return owner, logical, resolved
}

// Fd returns the real descriptor backing logical for j, building the
// remap table of j first.
func (j *Job) Fd(logical int) (int, error) {
	if err := j.BuildRemap(); err != nil {
		return -1, err
	}
	_, _, resolved := j.FindFd(logical)
	return resolved, nil
}

// Port returns the binary port of logical, cached on the job owning the
// resolved descriptor.
func (j *Job) Port(logical int) (*Port, error) {
	owner, resolved, err := j.resolvePort(logical)
	if err != nil {
		return nil, err
	}
	return owner.binaryPort(resolved), nil
}

// TextPort returns the text port of logical, cached like Port under the
// complement of the resolved descriptor.
func (j *Job) TextPort(logical int) (*TextPort, error) {
	owner, resolved, err := j.resolvePort(logical)
	if err != nil {
		return nil, err
	}

	owner.fdmu.Lock()
	defer owner.fdmu.Unlock()

	if tp, ok := owner.ports[^resolved].(*TextPort); ok {
		return tp, nil
	}

	p := owner.binaryPortLocked(resolved)
	tp := &TextPort{Port: p, r: utf8b.NewReader(io.Reader(p))}
	owner.ports[^resolved] = tp
	return tp, nil
}

func (j *Job) resolvePort(logical int) (*Job, int, error) {
	if err := j.BuildRemap(); err != nil {
		return nil, -1, err
	}

	owner, _, resolved := j.FindFd(logical)
	if owner == nil || resolved < 0 {
		return nil, -1, errors.NewPortNotFoundError(logical, j.name)
	}
	return owner, resolved, nil
}

func (j *Job) binaryPort(resolved int) *Port {
	j.fdmu.Lock()
	defer j.fdmu.Unlock()

	return j.binaryPortLocked(resolved)
}

func (j *Job) binaryPortLocked(resolved int) *Port {
	if p, ok := j.ports[resolved].(*Port); ok {
		return p
	}
	if j.ports == nil {
		j.ports = make(map[int]interface{})
	}

	p := &Port{fd: resolved}
	j.ports[resolved] = p
	return p
}
