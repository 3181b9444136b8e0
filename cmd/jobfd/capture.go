package main

import (
	"fmt"
	"strings"

	"github.com/madlambda/jobfd/sh"
	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	var trim, asRunes bool

	cmd := &cobra.Command{
		Use:   "capture [flags] -- word...",
		Short: "Run a job in a child process and print what it wrote to stdout",
		Long: `Run a job in a child process and print what it wrote to stdout.

Words like 2>&1, >out or <in redirect the job; ";" separates the jobs of
a sequence. A job ending with a nonzero status still prints its output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			j, err := newJob(rt, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if asRunes {
				rs, st, err := j.CaptureRunes()
				if err != nil {
					return err
				}
				for _, r := range rs {
					fmt.Fprintf(out, "%U\n", r)
				}
				return checkStatus(j, st)
			}

			var (
				text string
				st   sh.Status
			)
			if trim {
				text, st, err = j.CaptureTrimmed()
			} else {
				text, st, err = j.CaptureString()
			}
			if err != nil {
				return err
			}

			fmt.Fprint(out, text)
			return checkStatus(j, st)
		},
	}

	cmd.Flags().BoolVar(&trim, "trim", false, "remove trailing newlines")
	cmd.Flags().BoolVar(&asRunes, "runes", false, "print the decoded code points, one per line")
	return cmd
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields -- word...",
		Short: "Capture a job's output and print its NUL separated fields, quoted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			j, err := newJob(rt, args)
			if err != nil {
				return err
			}

			fields, st, err := j.CaptureFields()
			if err != nil {
				return err
			}

			quoted := make([]string, len(fields))
			for i, f := range fields {
				quoted[i] = fmt.Sprintf("%q", f)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(quoted, "\n"))
			return checkStatus(j, st)
		},
	}
}
