package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/madlambda/jobfd"
	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/testing/fixture"
	"github.com/madlambda/jobfd/sh"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	jobfd.Init()
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	return out.String(), err
}

func TestDirections(t *testing.T) {
	out, err := execute(t, "directions")
	require.NoError(t, err)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
	g.Assert(t, "directions", []byte(out))
}

func TestCaptureCmd(t *testing.T) {
	type captureDesc struct {
		args     []string
		output   string
		exitCode int
	}

	tests := map[string]captureDesc{
		"builtin": {
			args:   []string{"capture", "--", "echo", "hello"},
			output: "hello\n",
		},
		"trim": {
			args:   []string{"capture", "--trim", "--", "format", "hello"},
			output: "hello",
		},
		"program": {
			args:   []string{"capture", "--", "sh", "-c", "echo out; echo err >&2", "2>&1"},
			output: "out\nerr\n",
		},
		"sequence": {
			args:   []string{"capture", "--", "echo", "a", ";", "echo", "b"},
			output: "a\nb\n",
		},
		"runes": {
			args:   []string{"capture", "--runes", "--", "print", "a"},
			output: "U+0061\n",
		},
		"exitStatus": {
			args:     []string{"capture", "--", "sh", "-c", "printf partial; exit 3"},
			output:   "partial",
			exitCode: 3,
		},
		"fields": {
			args:   []string{"fields", "--", "print0", "a", "b c"},
			output: "\"a\"\n\"b c\"\n",
		},
	}

	for name, desc := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, desc.args...)
			assert.Equal(t, desc.output, out)

			if desc.exitCode == 0 {
				require.NoError(t, err)
				return
			}

			var st *statusError
			require.True(t, errors.As(err, &st), "got %v", err)
			assert.Equal(t, desc.exitCode, st.ExitCode())
		})
	}
}

func TestCaptureCmdRedirectsToFile(t *testing.T) {
	tmpdir := fixture.Tmpdir(t)
	file := filepath.Join(tmpdir, "out")

	out, err := execute(t, "capture", "--", "echo", "hidden", ">"+file)
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Equal(t, "hidden\n", fixture.ReadFile(t, file))
}

func TestRunCmd(t *testing.T) {
	tmpdir := fixture.Tmpdir(t)
	file := filepath.Join(tmpdir, "out")

	_, err := execute(t, "run", "--", "echo", "one", ">"+file, ";", "sh", "-c", "echo two", ">>"+file)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", fixture.ReadFile(t, file))

	_, err = execute(t, "run", "--", "exit", "4")
	var st *statusError
	require.True(t, errors.As(err, &st), "got %v", err)
	assert.Equal(t, sh.Exited(4), st.status)
	assert.Equal(t, 4, st.ExitCode())
}

func TestResolveCmd(t *testing.T) {
	tmpdir := fixture.Tmpdir(t)

	out, err := execute(t, "resolve", "--fd", "7", "2>&1", "3>"+filepath.Join(tmpdir, "out"), "4>&-")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 6)

	owners := map[string]string{}
	for _, l := range lines {
		cols := bytes.Split(l, []byte("\t"))
		require.Len(t, cols, 3, "line %q", l)
		owners[string(cols[0])] = string(cols[1])
	}

	assert.Equal(t, map[string]string{
		"0": "root",
		"1": "root",
		"2": "resolve",
		"3": "resolve",
		"4": "-",
		"7": "-",
	}, owners)
}

func TestResolveCmdRejectsWords(t *testing.T) {
	_, err := execute(t, "resolve", "notaredirect")
	require.Error(t, err)

	_, err = execute(t, "resolve", "1>&x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRedirect))
}

func TestEvalLine(t *testing.T) {
	rt, err := jobfd.New()
	require.NoError(t, err)
	defer rt.Close()

	var out bytes.Buffer
	require.NoError(t, evalLine(rt, `capture print "a b"`, &out))
	assert.Contains(t, out.String(), "\"a b\"\n")
	assert.Contains(t, out.String(), "exited(0)")

	out.Reset()
	err = evalLine(rt, "capture echo x 1>&bad", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRedirect))

	require.Error(t, evalLine(rt, `print "unterminated`, &out))
}
