// Package jobfd runs external programs, builtins and sequences of both as
// jobs whose file descriptors are virtualized: every job carries a list
// of redirections that only become real descriptors when the job starts.
//
// Programs using jobfd must call Init first thing in main (and in
// TestMain), since builtins forced into a child process are run by
// re-executing the host binary.
package jobfd

import (
	"time"

	"github.com/madlambda/jobfd/internal/config"
	"github.com/madlambda/jobfd/internal/sh"
	"github.com/madlambda/jobfd/internal/sh/builtin"
)

const (
	In     = sh.In
	Out    = sh.Out
	InOut  = sh.InOut
	Append = sh.Append
)

type (
	Runtime   = sh.Runtime
	Job       = sh.Job
	Kind      = sh.Kind
	Directive = sh.Directive
	Direction = sh.Direction
	Target    = sh.Target

	FdTarget   = sh.FdTarget
	PathTarget = sh.PathTarget
	Generator  = sh.Generator

	Port     = sh.Port
	TextPort = sh.TextPort

	// Option changes the configuration a runtime is created with.
	Option func(*config.Config) error
)

var (
	Path    = sh.Path
	Thunk   = sh.Thunk
	JobFunc = sh.JobFunc
	Symbols = sh.Symbols

	// ParseSymbol returns the direction of a redirection operator and
	// whether its target is an fd.
	ParseSymbol = sh.ParseSymbol

	TrimNewlines = sh.TrimNewlines
	SplitFields  = sh.SplitFields

	// Builtins lists the names accepted by Runtime.Builtin, sorted.
	Builtins = builtin.Names
)

// Init runs the builtin requested by the environment and exits when the
// process is a re-executed builtin child. Otherwise it returns at once.
func Init() {
	sh.ReexecInit()
}

// New creates a runtime from the default configuration changed by opts,
// applied in order.
func New(opts ...Option) (*Runtime, error) {
	c := config.Default()

	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return nil, err
		}
	}

	return sh.NewRuntime(c)
}

// WithConfig loads the configuration file at path, or the config.yaml
// inside the directory path, replacing every setting made before it.
func WithConfig(path string) Option {
	return func(c *config.Config) error {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		*c = loaded
		return nil
	}
}

func WithDebug(debug bool) Option {
	return func(c *config.Config) error {
		c.Debug = debug
		return nil
	}
}

// WithMinFd sets the lowest descriptor the runtime allocates from.
func WithMinFd(n int) Option {
	return func(c *config.Config) error {
		c.MinFd = n
		return nil
	}
}

// WithPollInterval sets how long a capture waits for output before
// checking for interrupts and stopped jobs again.
func WithPollInterval(d time.Duration) Option {
	return func(c *config.Config) error {
		c.PollInterval = d.String()
		return nil
	}
}

// WithDir sets the working directory of the root job.
func WithDir(dir string) Option {
	return func(c *config.Config) error {
		c.Dir = dir
		return nil
	}
}

// WithShell sets the binary re-executed to run builtins in a child.
func WithShell(path string) Option {
	return func(c *config.Config) error {
		c.Shell = path
		return nil
	}
}
