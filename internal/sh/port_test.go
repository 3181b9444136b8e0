package sh

import (
	"io"
	"testing"

	"github.com/madlambda/jobfd/errors"
	"github.com/madlambda/jobfd/internal/fd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortCachedOnOwner(t *testing.T) {
	rt := newTestRuntime(t)

	j := rt.Builtin("echo")

	p, err := j.Port(1)
	require.NoError(t, err)

	rootPort, err := rt.Root().Port(1)
	require.NoError(t, err)
	assert.Same(t, rootPort, p)
	assert.Equal(t, rt.Root().Fds()[1][1], p.Fd())

	tp, err := j.TextPort(1)
	require.NoError(t, err)
	assert.Same(t, p, tp.Port)

	again, err := rt.Root().TextPort(1)
	require.NoError(t, err)
	assert.Same(t, tp, again)

	resolved := p.Fd()
	rt.Root().fdmu.Lock()
	assert.Len(t, rt.Root().ports, 2)
	assert.Contains(t, rt.Root().ports, resolved)
	assert.Contains(t, rt.Root().ports, ^resolved)
	rt.Root().fdmu.Unlock()
}

func TestPortReadWrite(t *testing.T) {
	rt := newTestRuntime(t)

	r, w, err := rt.Pool().Pipe()
	require.NoError(t, err)
	defer r.Release()

	j := rt.Builtin("cat")
	require.NoError(t, j.Redirect(0, "<&", r.Fd(), 1, ">&", w.Fd()))
	defer j.ClearRemap()

	out, err := j.TextPort(1)
	require.NoError(t, err)
	_, err = out.WriteString("héllo\xff")
	require.NoError(t, err)
	_, err = out.WriteRunes([]rune{'!', 0xDC80 | 0xfe})
	require.NoError(t, err)

	// the job holds its own copy of the write end
	w.Release()
	j.ClearRemap()

	in := &Port{fd: r.Fd()}
	got, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, []byte("héllo\xff!\xfe"), got)
}

func TestTextPortDecodesUTF8b(t *testing.T) {
	rt := newTestRuntime(t)

	r, w, err := rt.Pool().Pipe()
	require.NoError(t, err)
	defer r.Release()

	_, err = fd.Write(w.Fd(), []byte("a\xffé"))
	require.NoError(t, err)
	w.Release()

	j := rt.Builtin("cat")
	require.NoError(t, j.Redirect(0, "<&", r.Fd()))
	defer j.ClearRemap()

	in, err := j.TextPort(0)
	require.NoError(t, err)

	var runes []rune
	for {
		c, _, err := in.ReadRune()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		runes = append(runes, c)
	}
	assert.Equal(t, []rune{'a', 0xDCFF, 'é'}, runes)
}

func TestPortNotFound(t *testing.T) {
	rt := newTestRuntime(t)

	j := rt.Cmd("true")
	require.NoError(t, j.Redirect(1, ">&", -1))
	defer j.ClearRemap()

	_, err := j.Port(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPortNotFound))

	var notFound *errors.PortNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 1, notFound.Fd)
	assert.Equal(t, "true", notFound.Job)

	_, err = j.Port(9)
	assert.True(t, errors.Is(err, errors.ErrPortNotFound))
}
