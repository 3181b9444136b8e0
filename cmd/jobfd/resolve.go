package main

import (
	"fmt"

	"github.com/madlambda/jobfd/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func newResolveCmd() *cobra.Command {
	var fds []int

	cmd := &cobra.Command{
		Use:   "resolve [--fd n]... redirect...",
		Short: "Show the descriptors logical fds resolve to under redirections",
		Long: `Build the remap table of a job carrying the given redirect words, such
as 2>&1 or 3>out, and print for each logical fd the job owning it and
the real descriptor behind it. Unresolved fds print "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			j := rt.Cmd("resolve")

			var redir []interface{}
			for _, w := range args {
				r, ok := redirectArgs(w)
				if !ok {
					return errors.NewError("not a redirection: %q", w)
				}
				redir = append(redir, r...)
			}
			if len(redir) > 0 {
				if err := j.Redirect(redir...); err != nil {
					return err
				}
			}

			if err := j.BuildRemap(); err != nil {
				return err
			}
			defer j.ClearRemap()

			logical := map[int]bool{0: true, 1: true, 2: true}
			for _, n := range fds {
				logical[n] = true
			}
			for _, pair := range j.Fds() {
				logical[pair[0]] = true
			}

			keys := maps.Keys(logical)
			slices.Sort(keys)

			out := cmd.OutOrStdout()
			for _, n := range keys {
				owner, _, resolved := j.FindFd(n)
				if owner == nil || resolved < 0 {
					fmt.Fprintf(out, "%d\t-\t-\n", n)
					continue
				}
				fmt.Fprintf(out, "%d\t%s\t%d\n", n, owner.Name(), resolved)
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&fds, "fd", nil, "logical fd to resolve besides 0, 1, 2 and the redirected ones")
	return cmd
}
