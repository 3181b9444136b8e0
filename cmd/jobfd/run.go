package main

import (
	"os"

	"github.com/madlambda/jobfd"
	"github.com/madlambda/jobfd/sh"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

func newRunCmd() *cobra.Command {
	var subprocess bool

	cmd := &cobra.Command{
		Use:   "run [flags] -- word...",
		Short: "Run a job on the standard streams and wait for it",
		Long: `Run a job on the standard streams and wait for it.

On a terminal the job joins the process group of jobfd, so keyboard
signals reach it directly. The exit code is the job's.`,
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

			st, err := runJob(j, subprocess)
			if err != nil {
				return err
			}
			return checkStatus(j, st)
		},
	}

	cmd.Flags().BoolVar(&subprocess, "subprocess", false, "run builtins in child processes")
	return cmd
}

// runJob starts j in the foreground and waits until it finishes.
func runJob(j *jobfd.Job, subprocess bool) (sh.Status, error) {
	opts := sh.StartOptions{Subprocess: subprocess}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts.Pgid = unix.Getpgrp()
	}

	if err := j.Start(opts); err != nil {
		return sh.Status{}, err
	}
	return j.Wait(sh.WaitFinish)
}
