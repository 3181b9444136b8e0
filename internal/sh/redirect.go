package sh

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
)

const (
	In     Direction = fd.In
	Out    Direction = fd.Out
	InOut  Direction = fd.InOut
	Append Direction = fd.Append
)

type (
	// Direction is the one-rune tag of a redirection operator.
	Direction rune

	// Target is what a logical fd is redirected to: FdTarget, PathTarget
	// or Generator.
	Target interface {
		target()
	}

	// FdTarget is a descriptor, -1 meaning "close".
	FdTarget int

	// PathTarget is a NUL-terminated, non-empty path.
	PathTarget []byte

	// handleTarget is a descriptor issued by the runtime's pool. It is
	// already real and never resolved through the ancestors.
	handleTarget struct {
		h *fd.Handle
	}

	// Generator computes the target when the redirection is resolved, not
	// when it is inserted. It may return an int (descriptor), a string or
	// []byte (path), a []string holding exactly one path, or a Target.
	Generator struct {
		fn func(*Job) (interface{}, error)
	}

	// Directive is one redirection of a logical fd. It is immutable once
	// inserted in a job's redirect list.
	Directive struct {
		Fd     int
		Dir    Direction
		Target Target

		fdForm bool
		cache  *pathCache
	}

	// pathCache memoizes the absolute form of a relative PathTarget for
	// the working directory it was computed against.
	pathCache struct {
		sync.Mutex
		dir  string
		path []byte
	}
)

var symbols = []struct {
	sym    string
	dir    Direction
	fdForm bool
}{
	{"<&", In, true},
	{">&", Out, true},
	{"<", In, false},
	{">", Out, false},
	{"<>", InOut, false},
	{">>", Append, false},
}

func (FdTarget) target()     {}
func (PathTarget) target()   {}
func (Generator) target()    {}
func (handleTarget) target() {}

// Thunk wraps a generator that does not need the job.
func Thunk(fn func() (interface{}, error)) Generator {
	return Generator{fn: func(*Job) (interface{}, error) { return fn() }}
}

// JobFunc wraps a generator that receives the job being activated.
func JobFunc(fn func(*Job) (interface{}, error)) Generator {
	return Generator{fn: fn}
}

// Path converts a string into a PathTarget.
func Path(p string) PathTarget {
	return PathTarget(append([]byte(p), 0))
}

// String returns the path without the terminating NUL.
func (p PathTarget) String() string {
	if n := len(p); n > 0 && p[n-1] == 0 {
		return string(p[:n-1])
	}
	return string(p)
}

// ParseSymbol converts a redirection operator ("<&", ">&", "<", ">", "<>",
// ">>") to its direction, reporting whether it redirects to an fd.
func ParseSymbol(caller string, sym string) (Direction, bool, error) {
	for _, s := range symbols {
		if s.sym == sym {
			return s.dir, s.fdForm, nil
		}
	}
	return 0, false, errors.NewInvalidRedirectError(caller,
		"invalid redirect direction symbol %q, expecting one of <& >& < > <> >>", sym)
}

// ParseDirection validates a direction rune for fd or file redirections.
func ParseDirection(caller string, ch rune, fdForm bool) (Direction, error) {
	for _, s := range symbols {
		if s.fdForm == fdForm && rune(s.dir) == ch {
			return s.dir, nil
		}
	}
	return 0, errors.NewInvalidRedirectError(caller,
		"invalid redirect direction character %q", ch)
}

// Symbol returns the operator of d in fd or file form.
func (d Direction) Symbol(fdForm bool) string {
	for _, s := range symbols {
		if s.dir == d && s.fdForm == fdForm {
			return s.sym
		}
	}
	return string(d)
}

func (d Direction) String() string { return string(d) }

// Symbols lists every operator with its direction rune, in table order.
func Symbols() []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.sym)
	}
	return out
}

// NewDirective validates a redirection and returns it ready for
// insertion. Path targets are converted to NUL-terminated buffers here.
func NewDirective(caller string, logical int, dir Direction, t Target) (Directive, error) {
	if logical < 0 {
		return Directive{}, errors.NewInvalidRedirectError(caller,
			"invalid redirect fd %d, must be >= 0", logical)
	}

	d := Directive{Fd: logical}

	switch t := t.(type) {
	case FdTarget:
		if t < -1 {
			return Directive{}, errors.NewInvalidRedirectError(caller,
				"invalid redirect target fd %d, must be >= -1", int(t))
		}
		dir, err := ParseDirection(caller, rune(dir), true)
		if err != nil {
			return Directive{}, err
		}
		d.Dir, d.Target, d.fdForm = dir, t, true
	case PathTarget:
		dir, err := ParseDirection(caller, rune(dir), false)
		if err != nil {
			return Directive{}, err
		}
		path, err := toPath0(caller, []byte(t))
		if err != nil {
			return Directive{}, err
		}
		d.Dir, d.Target, d.cache = dir, path, &pathCache{}
	case Generator:
		if t.fn == nil {
			return Directive{}, errors.NewInvalidRedirectError(caller, "nil redirect generator")
		}
		if _, ok := fd.OpenFlags(rune(dir)); !ok {
			return Directive{}, errors.NewInvalidRedirectError(caller,
				"invalid redirect direction character %q", rune(dir))
		}
		d.Dir, d.Target = dir, t
	default:
		return Directive{}, errors.NewInvalidRedirectError(caller,
			"invalid redirect target %v", t)
	}

	return d, nil
}

// toPath0 returns a NUL-terminated copy of p, which must be non-empty and
// must not contain NUL other than an optional terminator.
func toPath0(caller string, p []byte) (PathTarget, error) {
	if n := len(p); n > 0 && p[n-1] == 0 {
		p = p[:n-1]
	}
	if len(p) == 0 {
		return nil, errors.NewInvalidRedirectError(caller, "invalid empty redirect path")
	}
	if bytes.IndexByte(p, 0) >= 0 {
		return nil, errors.NewInvalidRedirectError(caller,
			"invalid redirect path %q: contains NUL", p)
	}
	out := make([]byte, len(p)+1)
	copy(out, p)
	return PathTarget(out), nil
}

// Symbol is the operator of the directive, e.g. ">>".
func (d Directive) Symbol() string { return d.Dir.Symbol(d.fdForm) }

func (d Directive) String() string {
	var target string
	switch t := d.Target.(type) {
	case FdTarget:
		target = strconv.Itoa(int(t))
	case PathTarget:
		target = strconv.Quote(t.String())
	case Generator:
		target = "<generator>"
	case handleTarget:
		target = t.h.String()
	}
	return fmt.Sprintf("%d%s%s", d.Fd, d.Symbol(), target)
}

// parseRedirectArgs converts the flattened user form of one or more
// redirections into directives. Each redirection is either
// (fd int, symbol string, target) or (symbol string, target); in the
// latter form fd defaults to 0 for "<"-like symbols and 1 otherwise.
func parseRedirectArgs(caller string, args []interface{}) ([]Directive, error) {
	var out []Directive

	for i := 0; i < len(args); {
		logical, explicit := 0, false
		if n, ok := args[i].(int); ok {
			logical, explicit = n, true
			i++
		}

		if i+1 >= len(args) {
			return nil, errors.NewInvalidRedirectError(caller,
				"redirect expects [fd] direction target, got %d trailing argument(s)", len(args)-i)
		}

		sym, ok := args[i].(string)
		if !ok {
			return nil, errors.NewInvalidRedirectError(caller,
				"invalid redirect direction %v, expecting a string", args[i])
		}
		dir, fdForm, err := ParseSymbol(caller, sym)
		if err != nil {
			return nil, err
		}

		if !explicit {
			logical = 1
			if dir == In || dir == InOut {
				logical = 0
			}
		}

		t, err := toTarget(caller, args[i+1], fdForm)
		if err != nil {
			return nil, err
		}
		i += 2

		d, err := NewDirective(caller, logical, dir, t)
		if err != nil {
			return nil, err
		}
		d.fdForm = fdForm
		out = append(out, d)
	}

	return out, nil
}

func toTarget(caller string, v interface{}, fdForm bool) (Target, error) {
	switch v := v.(type) {
	case int:
		if fdForm {
			return FdTarget(v), nil
		}
	case FdTarget:
		if fdForm {
			return v, nil
		}
	case string:
		if !fdForm {
			return PathTarget(v), nil
		}
	case []byte:
		if !fdForm {
			return PathTarget(v), nil
		}
	case PathTarget:
		if !fdForm {
			return v, nil
		}
	case Generator:
		return v, nil
	case func() (interface{}, error):
		return Thunk(v), nil
	case func(*Job) (interface{}, error):
		return JobFunc(v), nil
	default:
		return nil, errors.NewInvalidRedirectError(caller,
			"invalid redirect target %#v, expecting fd, path or a generator of zero or one arguments", v)
	}

	if fdForm {
		return nil, errors.NewInvalidRedirectError(caller,
			"invalid redirect target %#v for fd redirection, expecting an integer", v)
	}
	return nil, errors.NewInvalidRedirectError(caller,
		"invalid redirect target %#v for file redirection, expecting a path", v)
}
