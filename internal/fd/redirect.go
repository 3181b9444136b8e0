package fd

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Direction characters accepted by Redirect. The two-character shell
// operators "<>" and ">>" get their own non-ASCII code points so every
// direction fits in one rune.
const (
	In     = '<'
	Out    = '>'
	InOut  = '≶'
	Append = '»'
)

// Source is what a descriptor is redirected to: another descriptor, or a
// NUL-terminated path.
type Source struct {
	fd   int
	path []byte
}

func FromFd(n int) Source { return Source{fd: n} }

// FromPath wraps a NUL-terminated path.
func FromPath(path []byte) Source { return Source{fd: -1, path: path} }

func (s Source) IsPath() bool { return s.path != nil }
func (s Source) Fd() int      { return s.fd }

// Path returns the path without its terminating NUL.
func (s Source) Path() string {
	if n := len(s.path); n > 0 && s.path[n-1] == 0 {
		return string(s.path[:n-1])
	}
	return string(s.path)
}

func (s Source) String() string {
	if s.IsPath() {
		return fmt.Sprintf("%q", s.Path())
	}
	return fmt.Sprint(s.fd)
}

// OpenFlags maps a direction character to open(2) flags.
func OpenFlags(dir rune) (int, bool) {
	switch dir {
	case In:
		return unix.O_RDONLY, true
	case Out:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC, true
	case InOut:
		return unix.O_RDWR | unix.O_CREAT, true
	case Append:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND, true
	}
	return 0, false
}

// Redirect makes descriptor fd refer to src. A descriptor source is
// duplicated (source -1 closes fd); a path source is opened with the flags
// of dir. When cloexec is set the resulting fd is close-on-exec, applied
// atomically with the duplication.
//
// Every redirection in the runtime goes through here.
func Redirect(fd int, dir rune, src Source, cloexec bool) error {
	flags, ok := OpenFlags(dir)
	if !ok {
		return unix.EINVAL
	}

	dupflags := 0
	if cloexec {
		dupflags = unix.O_CLOEXEC
	}

	if !src.IsPath() {
		switch {
		case src.fd == -1:
			return unix.Close(fd)
		case src.fd < -1:
			return unix.EBADF
		case src.fd == fd:
			return setCloexec(fd, cloexec)
		}
		return unix.Dup3(src.fd, fd, dupflags)
	}

	if len(src.path) == 0 || src.path[len(src.path)-1] != 0 {
		return unix.EINVAL
	}

	opened, err := unix.Open(src.Path(), flags|unix.O_CLOEXEC, 0666)
	if err != nil {
		return err
	}

	if opened == fd {
		return setCloexec(fd, cloexec)
	}

	err = unix.Dup3(opened, fd, dupflags)
	unix.Close(opened)
	return err
}

func setCloexec(fd int, cloexec bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}

	if cloexec {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return err
}
