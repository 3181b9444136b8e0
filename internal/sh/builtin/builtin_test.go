package builtin_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/madlambda/jobfd/internal/sh/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	type builtinDesc struct {
		name   string
		args   []string
		stdin  string
		output string
		status int
	}

	tests := map[string]builtinDesc{
		"printTextOnly": {
			name:   "print",
			args:   []string{"helloworld"},
			output: "helloworld",
		},
		"printFmt": {
			name:   "print",
			args:   []string{"%s:%s", "hello", "world"},
			output: "hello:world",
		},
		"printInvalidFmt": {
			name:   "print",
			args:   []string{"%d%s", "invalid"},
			output: "%!d(string=invalid)%!s(MISSING)",
		},
		"format": {
			name:   "format",
			args:   []string{"%s-%s", "a", "b"},
			output: "a-b\n",
		},
		"echo": {
			name:   "echo",
			args:   []string{"hello", "world"},
			output: "hello world\n",
		},
		"echoNoNewline": {
			name:   "echo",
			args:   []string{"-n", "hello"},
			output: "hello",
		},
		"print0": {
			name:   "print0",
			args:   []string{"a", "b", "c"},
			output: "a\x00b\x00c",
		},
		"catStdin": {
			name:   "cat",
			stdin:  "from stdin",
			output: "from stdin",
		},
		"exitSuccess": {
			name: "exit",
			args: []string{"0"},
		},
		"exitFailure": {
			name:   "exit",
			args:   []string{"42"},
			status: 42,
		},
	}

	for name, desc := range tests {
		desc := desc
		t.Run(name, func(t *testing.T) {
			fn, err := builtin.Lookup(desc.name, desc.args)
			require.NoError(t, err)

			var out, errout bytes.Buffer
			status, err := fn.Run(strings.NewReader(desc.stdin), &out, &errout)
			require.NoError(t, err)
			assert.Equal(t, desc.status, status)
			assert.Equal(t, desc.output, out.String())
			assert.Empty(t, errout.String())
		})
	}
}

func TestBuiltinArgErrors(t *testing.T) {
	tests := map[string][]string{
		"print":  nil,
		"format": nil,
		"exit":   {"notanumber"},
		"stop":   {"extra"},
	}

	for name, args := range tests {
		_, err := builtin.Lookup(name, args)
		assert.Error(t, err, name)
	}

	_, err := builtin.Lookup("nosuchbuiltin", nil)
	assert.EqualError(t, err, `builtin "nosuchbuiltin" not found`)
}

func TestExitRange(t *testing.T) {
	_, err := builtin.Lookup("exit", []string{"256"})
	assert.Error(t, err)
}

func TestFailRaises(t *testing.T) {
	fn, err := builtin.Lookup("fail", []string{"broken", "pipe"})
	require.NoError(t, err)

	var out bytes.Buffer
	status, err := fn.Run(strings.NewReader(""), &out, &out)
	assert.Equal(t, 1, status)
	assert.EqualError(t, err, "broken pipe")
}

func TestCatFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, []byte("first\n"), 0644))

	fn, err := builtin.Lookup("cat", []string{a, filepath.Join(dir, "missing")})
	require.NoError(t, err)

	var out, errout bytes.Buffer
	status, err := fn.Run(strings.NewReader(""), &out, &errout)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Equal(t, "first\n", out.String())
	assert.Contains(t, errout.String(), "missing")
}

func TestDetached(t *testing.T) {
	for _, name := range builtin.Names() {
		fn := builtin.Constructors()[name]()
		assert.Equal(t, name == "stop", builtin.IsDetached(fn), name)
	}
}
