package builtin

import (
	"io"

	"github.com/madlambda/jobfd/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Fn is the contract of a built in function. A builtin sees only the
// three standard streams of the job running it; how they are backed is
// decided by the job runtime.
type (
	Fn interface {
		ArgNames() []string
		SetArgs(args []string) error
		Run(
			stdin io.Reader,
			stdout io.Writer,
			stderr io.Writer,
		) (int, error)
	}

	// Detached is implemented by builtins that act on the process running
	// them and therefore can never run inside the host.
	Detached interface {
		Detached() bool
	}

	Constructor func() Fn
)

// Constructors returns a map of the builtin function name and its constructor
func Constructors() map[string]Constructor {
	return map[string]Constructor{
		"print":  func() Fn { return newPrint() },
		"format": func() Fn { return newFormat() },
		"echo":   func() Fn { return newEcho() },
		"print0": func() Fn { return newPrint0() },
		"cat":    func() Fn { return newCat() },
		"exit":   func() Fn { return newExit() },
		"fail":   func() Fn { return newFail() },
		"stop":   func() Fn { return newStop() },
	}
}

// Names returns the sorted builtin names.
func Names() []string {
	names := maps.Keys(Constructors())
	slices.Sort(names)
	return names
}

// Lookup creates the named builtin with its arguments already set.
func Lookup(name string, args []string) (Fn, error) {
	cons, ok := Constructors()[name]
	if !ok {
		return nil, errors.NewError("builtin %q not found", name)
	}

	fn := cons()
	if err := fn.SetArgs(args); err != nil {
		return nil, err
	}
	return fn, nil
}

// IsDetached reports whether fn must run in its own process.
func IsDetached(fn Fn) bool {
	d, ok := fn.(Detached)
	return ok && d.Detached()
}
