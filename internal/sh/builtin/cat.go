package builtin

import (
	"fmt"
	"io"
	"os"
)

type (
	catFn struct {
		files []string
	}
)

func newCat() *catFn {
	return &catFn{}
}

func (c *catFn) ArgNames() []string {
	return []string{"files..."}
}

func (c *catFn) Run(in io.Reader, out io.Writer, stderr io.Writer) (int, error) {
	if len(c.files) == 0 {
		if _, err := io.Copy(out, in); err != nil {
			fmt.Fprintf(stderr, "cat: %s\n", err)
			return 1, nil
		}
		return 0, nil
	}

	status := 0
	for _, name := range c.files {
		if err := copyFile(out, name); err != nil {
			fmt.Fprintf(stderr, "cat: %s\n", err)
			status = 1
		}
	}
	return status, nil
}

func (c *catFn) SetArgs(args []string) error {
	c.files = append([]string(nil), args...)
	return nil
}

func copyFile(out io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(out, f)
	return err
}
