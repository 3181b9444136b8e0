package sh

import (
	"fmt"
	"sync"

	"github.com/madlambda/jobfd/internal/fd"
	"github.com/madlambda/jobfd/sh"
)

const (
	// KindCmd is an external program.
	KindCmd Kind = iota
	// KindBuiltin is a registered builtin, run inside the host or
	// re-executed as a child.
	KindBuiltin
	// KindMulti runs its children in sequence from a host goroutine.
	KindMulti
)

type (
	Kind int

	// Job is a node of the job tree. The parent pointer is used only to
	// walk toward the root; a job never owns its parent.
	Job struct {
		rt     *Runtime
		parent *Job
		name   string
		kind   Kind
		dir    string

		// program path and argv for commands, arguments for builtins
		path string
		args []string
		env  []string

		children []*Job

		logf LogFn

		// fdmu guards the descriptor state below.
		fdmu   sync.Mutex
		redirs RedirectList
		remap  map[int]*fd.Handle
		ports  map[int]interface{}
		busy   bool

		// mu guards the lifecycle state below.
		mu        sync.Mutex
		status    sh.Status
		changed   chan struct{}
		stops     int
		started   bool
		inprocess bool
		pid       int
		pgid      int
		current   *Job
		abort     *sh.Status
	}
)

var _ sh.Runner = (*Job)(nil)

func (k Kind) String() string {
	switch k {
	case KindCmd:
		return "cmd"
	case KindBuiltin:
		return "builtin"
	case KindMulti:
		return "multi"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (rt *Runtime) newJob(parent *Job, name string, kind Kind) *Job {
	if parent == nil && rt.root != nil {
		parent = rt.root
	}
	return &Job{
		rt:      rt,
		parent:  parent,
		name:    name,
		kind:    kind,
		logf:    NewLog(rt.logger, "jobfd.Job."+name, rt.debug),
		status:  sh.New(),
		changed: make(chan struct{}),
	}
}

// Cmd creates a job running an external program. The program is looked
// up in PATH when started.
func (rt *Runtime) Cmd(name string, args ...string) *Job {
	j := rt.newJob(nil, name, KindCmd)
	j.path = name
	j.args = append([]string{name}, args...)
	return j
}

// Builtin creates a job running a registered builtin.
func (rt *Runtime) Builtin(name string, args ...string) *Job {
	j := rt.newJob(nil, name, KindBuiltin)
	j.args = append([]string(nil), args...)
	return j
}

// Multi creates a composite job running children in order. The children
// become jobs of the new one.
func (rt *Runtime) Multi(name string, children ...*Job) *Job {
	j := rt.newJob(nil, name, KindMulti)
	for _, c := range children {
		c.parent = j
	}
	j.children = children
	return j
}

// Root is the job every other job descends from. Its permanent
// redirections map 0, 1 and 2 onto the host's standard descriptors.
func (rt *Runtime) Root() *Job { return rt.root }

func (j *Job) Name() string     { return j.name }
func (j *Job) Kind() Kind       { return j.kind }
func (j *Job) Parent() *Job     { return j.parent }
func (j *Job) Children() []*Job { return j.children }

// SetParent moves j below p. It must be called before j starts.
func (j *Job) SetParent(p *Job) { j.parent = p }

// SetDir declares the working directory of j. Relative redirection paths
// of j and of its descendants are resolved against the nearest declared
// directory.
func (j *Job) SetDir(dir string) { j.dir = dir }

// SetEnv sets the environment of a command. A nil env inherits the host's.
func (j *Job) SetEnv(env []string) { j.env = env }

// Dir returns the nearest working directory declared by j or an ancestor.
func (j *Job) Dir() string {
	for cur := j; cur != nil; cur = cur.parent {
		if cur.dir != "" {
			return cur.dir
		}
	}
	return ""
}

// Pid is the process of a started command or re-executed builtin, zero
// otherwise.
func (j *Job) Pid() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.pid
}

// Pgid is the process group of the job, zero while it has none.
func (j *Job) Pgid() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.pgid
}

func (j *Job) String() string {
	return fmt.Sprintf("<%s job %q>", j.kind, j.name)
}

// controller is the job in charge of j, whose fate follows j's fatal
// outcomes. The root has no controller: fatal outcomes reach the host as
// returned errors.
func (j *Job) controller() *Job {
	if j.parent == nil || j.parent == j.rt.root {
		return nil
	}
	return j.parent
}
