package builtin

import (
	"io"
	"strings"
)

type (
	echoFn struct {
		words   []string
		newline bool
	}

	// print0Fn writes its arguments separated by NUL, the only way to
	// produce NUL bytes since arguments cannot hold them.
	print0Fn struct {
		words []string
	}
)

func newEcho() *echoFn {
	return &echoFn{}
}

func (e *echoFn) ArgNames() []string {
	return []string{"-n", "args..."}
}

func (e *echoFn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	s := strings.Join(e.words, " ")
	if e.newline {
		s += "\n"
	}
	_, werr := io.WriteString(out, s)
	return 0, werr
}

func (e *echoFn) SetArgs(args []string) error {
	e.newline = true
	if len(args) > 0 && args[0] == "-n" {
		e.newline = false
		args = args[1:]
	}
	e.words = append([]string(nil), args...)
	return nil
}

func newPrint0() *print0Fn {
	return &print0Fn{}
}

func (p *print0Fn) ArgNames() []string {
	return []string{"args..."}
}

func (p *print0Fn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	_, werr := io.WriteString(out, strings.Join(p.words, "\x00"))
	return 0, werr
}

func (p *print0Fn) SetArgs(args []string) error {
	p.words = append([]string(nil), args...)
	return nil
}
