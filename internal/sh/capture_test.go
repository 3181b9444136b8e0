package sh

import (
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/testing/fixture"
	"github.com/madlambda/jobfd/sh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	type captureDesc struct {
		job    func(rt *Runtime) *Job
		output string
		status sh.Status
	}

	tests := map[string]captureDesc{
		"cmd": {
			job:    func(rt *Runtime) *Job { return rt.Cmd("sh", "-c", `printf 'hello\n'`) },
			output: "hello\n",
			status: sh.Exited(0),
		},
		"builtin": {
			job:    func(rt *Runtime) *Job { return rt.Builtin("echo", "hello") },
			output: "hello\n",
			status: sh.Exited(0),
		},
		"nonZeroExitIsData": {
			job:    func(rt *Runtime) *Job { return rt.Cmd("sh", "-c", "printf partial; exit 2") },
			output: "partial",
			status: sh.Exited(2),
		},
		"nonFatalSignalIsData": {
			job:    func(rt *Runtime) *Job { return rt.Cmd("sh", "-c", "printf x; kill -TERM $$") },
			output: "x",
			status: sh.Killed(syscall.SIGTERM),
		},
		"multi": {
			job: func(rt *Runtime) *Job {
				return rt.Multi("multi",
					rt.Builtin("echo", "a"),
					rt.Cmd("sh", "-c", "echo b"),
				)
			},
			output: "a\nb\n",
			status: sh.Exited(0),
		},
		"stderrFollowsStdout": {
			job: func(rt *Runtime) *Job {
				j := rt.Cmd("sh", "-c", "echo err >&2")
				if err := j.Redirect(2, ">&", 1); err != nil {
					panic(err)
				}
				return j
			},
			output: "err\n",
			status: sh.Exited(0),
		},
		"large": {
			job:    func(rt *Runtime) *Job { return rt.Cmd("sh", "-c", "head -c 200000 /dev/zero") },
			output: string(make([]byte, 200000)),
			status: sh.Exited(0),
		},
	}

	for name, desc := range tests {
		desc := desc
		t.Run(name, func(t *testing.T) {
			rt := newTestRuntime(t)

			j := desc.job(rt)
			out, st, err := j.Capture()
			require.NoError(t, err)
			assert.Equal(t, desc.output, string(out))
			assert.Equal(t, desc.status, st)
			assert.Equal(t, 0, j.redirs.Temporary())
			assert.Empty(t, j.Fds())
		})
	}
}

func TestCaptureVariants(t *testing.T) {
	rt := newTestRuntime(t)

	raw, _, err := rt.Cmd("sh", "-c", `printf 'hello\n'`).Capture()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), raw)

	trimmed, _, err := rt.Cmd("sh", "-c", `printf 'hello\n\n'`).CaptureTrimmed()
	require.NoError(t, err)
	assert.Equal(t, "hello", trimmed)

	fields, _, err := rt.Builtin("print0", "a", "b", "c").CaptureFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)

	fields, _, err = rt.Builtin("echo", "-n", "whole text").CaptureFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"whole text"}, fields)

	runes, _, err := rt.Cmd("sh", "-c", `printf 'a\377b'`).CaptureRunes()
	require.NoError(t, err)
	assert.Equal(t, []rune{'a', 0xDCFF, 'b'}, runes)

	s, _, err := rt.Cmd("sh", "-c", `printf 'a\377b'`).CaptureString()
	require.NoError(t, err)
	assert.Equal(t, "a\xffb", s)
}

func TestSplitFields(t *testing.T) {
	tests := map[string][]string{
		"a\x00b\x00c":     {"a", "b", "c"},
		"a\x00b\x00c\x00": {"a", "b", "c"},
		"no nul":          {"no nul"},
		"":                {""},
		"\x00":            {""},
		"a\x00\x00b":      {"a", "", "b"},
	}

	for in, want := range tests {
		assert.Equal(t, want, SplitFields(in), "%q", in)
	}
}

func TestCaptureInterruptedBySIGINT(t *testing.T) {
	if signal.Ignored(syscall.SIGINT) {
		t.Skip("SIGINT is ignored by this process and its children")
	}

	rt := newTestRuntime(t)
	before := rt.Pool().Live()

	j := rt.Cmd("sh", "-c", "kill -INT $$")
	_, st, err := j.Capture()
	require.Error(t, err)
	assert.Equal(t, sh.Killed(syscall.SIGINT), st)
	assert.True(t, errors.Is(err, errors.ErrReceivedSignal))

	var sigerr *errors.SignalError
	require.True(t, errors.As(err, &sigerr))
	assert.Equal(t, "user interrupt", sigerr.Cause)
	assert.True(t, sigerr.Interrupted())

	assert.Equal(t, before, rt.Pool().Live())
}

func TestCaptureQuit(t *testing.T) {
	if signal.Ignored(syscall.SIGQUIT) {
		t.Skip("SIGQUIT is ignored by this process and its children")
	}

	rt := newTestRuntime(t)

	_, _, err := rt.Cmd("sh", "-c", "kill -QUIT $$").Capture()

	var sigerr *errors.SignalError
	require.True(t, errors.As(err, &sigerr))
	assert.Equal(t, syscall.SIGQUIT, sigerr.Signal)
	assert.Equal(t, "user quit", sigerr.Cause)
}

func TestCaptureForwardsPendingInterrupts(t *testing.T) {
	if signal.Ignored(syscall.SIGINT) {
		t.Skip("SIGINT is ignored by this process and its children")
	}

	rt := newTestRuntime(t)
	rt.Interrupt(syscall.SIGINT)

	_, st, err := rt.Cmd("sleep", "30").Capture()
	assert.True(t, errors.Is(err, errors.ErrReceivedSignal))
	assert.Equal(t, sh.Killed(syscall.SIGINT), st)
	assert.Empty(t, rt.takeInterrupts())
}

func TestCaptureResumesStoppedJob(t *testing.T) {
	rt := newTestRuntime(t)

	var stopped []*Job
	rt.OnStop = func(j *Job) { stopped = append(stopped, j) }

	j := rt.Cmd("sh", "-c", "printf a; kill -STOP $$; printf b")
	out, st, err := j.Capture()
	require.NoError(t, err)
	assert.Equal(t, "ab", string(out))
	assert.Equal(t, sh.Exited(0), st)
	require.Len(t, stopped, 1)
	assert.Same(t, j, stopped[0])
}

func TestCaptureResumesStoppedBuiltin(t *testing.T) {
	rt := newTestRuntime(t)

	m := rt.Multi("stopping",
		rt.Builtin("echo", "-n", "before"),
		rt.Builtin("stop"),
		rt.Builtin("echo", "-n", "after"),
	)
	out, st, err := m.CaptureString()
	require.NoError(t, err)
	assert.Equal(t, "beforeafter", out)
	assert.Equal(t, sh.Exited(0), st)
	assert.Equal(t, 1, m.Stops())
}

func TestCaptureException(t *testing.T) {
	rt := newTestRuntime(t)

	out, st, err := rt.Builtin("fail", "bad", "input").Capture()
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, sh.StatusException, st.Kind)
	assert.True(t, errors.Is(err, errors.ErrException))

	var exc *errors.ExceptionError
	require.True(t, errors.As(err, &exc))
	assert.Equal(t, "fail", exc.Job)
	assert.EqualError(t, exc.Err, "bad input")
}

func TestCaptureKillsController(t *testing.T) {
	rt := newTestRuntime(t)

	inner := rt.Builtin("fail", "inner")
	m := rt.Multi("controller", rt.Cmd("sleep", "30"))
	inner.SetParent(m)

	require.NoError(t, m.Start(sh.StartOptions{}))

	_, _, err := inner.Capture()
	require.True(t, errors.Is(err, errors.ErrException))

	st, err := m.Wait(sh.WaitFinish)
	require.NoError(t, err)
	assert.Equal(t, sh.StatusException, st.Kind)
	assert.EqualError(t, st.Err, "inner")
}

func TestCaptureStartFailureReleasesPipe(t *testing.T) {
	rt := newTestRuntime(t)
	before := rt.Pool().Live()

	j := rt.Cmd("jobfd-no-such-program")
	_, _, err := j.Capture()
	require.Error(t, err)
	assert.Equal(t, before, rt.Pool().Live())
	assert.Empty(t, j.Redirects())
}

func TestCaptureLeavesNoDescriptors(t *testing.T) {
	rt := newTestRuntime(t)

	capture := func() {
		out, _, err := rt.Multi("m",
			rt.Builtin("echo", "-n", "x"),
			rt.Cmd("sh", "-c", "printf y"),
		).CaptureString()
		require.NoError(t, err)
		require.Equal(t, "xy", out)
	}

	// lets the Go runtime open whatever it opens lazily
	capture()
	fds := fixture.OpenFds(t)

	capture()
	assert.Equal(t, fds, fixture.OpenFds(t))
}

func TestCaptureIgnoresAncestorMappingOfPipeFd(t *testing.T) {
	rt := newTestRuntime(t)
	file := filepath.Join(fixture.Tmpdir(t), "ancestor")

	child := rt.Cmd("sh", "-c", "printf hello")
	m := rt.Multi("outer", child)

	// covers any low number the pipe may get
	for n := 3; n <= 9; n++ {
		require.NoError(t, m.Redirect(n, ">>", file))
	}
	require.NoError(t, m.BuildRemap())
	defer m.ClearRemap()

	out, st, err := child.CaptureString()
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, sh.Exited(0), st)
	assert.Empty(t, fixture.ReadFile(t, file))
}
