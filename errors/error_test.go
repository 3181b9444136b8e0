package errors_test

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/madlambda/jobfd/errors"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	type kindDesc struct {
		err  error
		kind error
		msg  string
	}

	cause := fmt.Errorf("boom")

	tests := map[string]kindDesc{
		"invalidRedirect": {
			err:  errors.NewInvalidRedirectError("job-redirect!", "bad fd %d", -2),
			kind: errors.ErrInvalidRedirect,
			msg:  "job-redirect!: bad fd -2",
		},
		"redirectFailed": {
			err:  errors.NewRedirectFailedError(1, ">", "/nope/out", syscall.ENOENT),
			kind: errors.ErrRedirectFailed,
			msg:  "failed redirecting fd 1 > /nope/out: no such file or directory",
		},
		"portNotFound": {
			err:  errors.NewPortNotFoundError(7, "cat"),
			kind: errors.ErrPortNotFound,
			msg:  "no port found for fd 7 in job cat",
		},
		"signal": {
			err:  errors.NewSignalError(syscall.SIGINT, "user interrupt"),
			kind: errors.ErrReceivedSignal,
			msg:  "received signal interrupt: user interrupt",
		},
		"exception": {
			err:  errors.NewExceptionError("fail", cause),
			kind: errors.ErrException,
			msg:  "job fail raised: boom",
		},
	}

	for name, desc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.EqualError(t, desc.err, desc.msg)
			assert.True(t, errors.Is(desc.err, desc.kind))
			assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", desc.err), desc.kind))

			for otherName, other := range tests {
				if otherName != name {
					assert.False(t, errors.Is(desc.err, other.kind), "matched %s", otherName)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := errors.NewRedirectFailedError(3, "<", "in", syscall.EACCES)
	assert.True(t, errors.Is(err, syscall.EACCES))

	var failed *errors.RedirectFailedError
	assert.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.Fd)
	assert.Equal(t, "<", failed.Direction)

	cause := fmt.Errorf("boom")
	assert.True(t, errors.Is(errors.NewExceptionError("x", cause), cause))

	var sig *errors.SignalError
	assert.True(t, errors.As(errors.NewSignalError(syscall.SIGINT, "user interrupt"), &sig))
	assert.True(t, sig.Interrupted())
}
