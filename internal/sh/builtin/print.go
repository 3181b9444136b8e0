package builtin

import (
	"fmt"
	"io"

	"github.com/madlambda/jobfd/errors"
)

// printFn implements print, writing its arguments formatted by the first
// one, and format, which does the same and ends the output with a
// newline.
type printFn struct {
	name    string
	newline bool

	format string
	args   []interface{}
}

func newPrint() *printFn  { return &printFn{name: "print"} }
func newFormat() *printFn { return &printFn{name: "format", newline: true} }

func (p *printFn) ArgNames() []string {
	return []string{"fmt", "args..."}
}

func (p *printFn) Run(in io.Reader, out io.Writer, err io.Writer) (int, error) {
	s := fmt.Sprintf(p.format, p.args...)
	if p.newline {
		s += "\n"
	}
	_, werr := io.WriteString(out, s)
	return 0, werr
}

func (p *printFn) SetArgs(args []string) error {
	if len(args) == 0 {
		return errors.NewError("%s expects at least 1 argument", p.name)
	}

	p.format = args[0]
	p.args = make([]interface{}, 0, len(args)-1)
	for _, arg := range args[1:] {
		p.args = append(p.args, arg)
	}
	return nil
}
