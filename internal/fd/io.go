package fd

import (
	"io"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by ReadNonblock when no data is available yet.
var ErrWouldBlock = unix.EAGAIN

// Read reads from a raw descriptor, retrying on EINTR. A zero-length read
// is reported as io.EOF.
func Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return 0, err
		case n == 0 && len(buf) > 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write writes all of buf to a raw descriptor, retrying on EINTR and
// short writes.
func Write(fd int, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := unix.Write(fd, buf[written:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

// WaitReadable blocks up to timeoutMs milliseconds until fd is readable or
// hung up. It reports whether the descriptor became ready.
func WaitReadable(fd int, timeoutMs int) (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, timeoutMs)
	if err == unix.EINTR {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsOpen reports whether n is an open descriptor in this process.
func IsOpen(n int) bool {
	_, err := unix.FcntlInt(uintptr(n), unix.F_GETFD, 0)
	return err == nil
}

// SetCloexec sets or clears the close-on-exec flag of n.
func SetCloexec(n int, on bool) error {
	return setCloexec(n, on)
}
