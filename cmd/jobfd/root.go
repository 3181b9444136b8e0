package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/madlambda/jobfd"
	"github.com/madlambda/jobfd/sh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// VersionString is set at build time
	VersionString = "No version provided"

	cfgPath string
	debug   bool

	colorError  = color.New(color.FgRed, color.Bold)
	colorStatus = color.New(color.FgYellow)
)

// statusError ends the program with the exit code matching a job status.
type statusError struct {
	job    string
	status sh.Status
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s", e.job, e.status)
}

func (e *statusError) ExitCode() int {
	switch e.status.Kind {
	case sh.StatusExited:
		return e.status.Code
	case sh.StatusKilled:
		return 128 + int(e.status.Signal)
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "jobfd",
		Short:   "Run jobs with virtualized file descriptors",
		Version: VersionString,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file or directory holding config.yaml")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug")

	root.AddCommand(
		newCaptureCmd(),
		newFieldsCmd(),
		newRunCmd(),
		newResolveCmd(),
		newDirectionsCmd(),
		newReplCmd(),
	)
	return root
}

func newRuntime() (*jobfd.Runtime, error) {
	var opts []jobfd.Option

	if cfgPath != "" {
		opts = append(opts, jobfd.WithConfig(cfgPath))
	}
	if debug {
		opts = append(opts, jobfd.WithDebug(true))
	}

	rt, err := jobfd.New(opts...)
	if err != nil {
		return nil, err
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		rt.OnStop = func(j *jobfd.Job) {
			colorStatus.Fprintf(os.Stderr, "[%s] stopped, continuing\n", j.Name())
		}
		rt.Notify()
	}
	return rt, nil
}

func checkStatus(j *jobfd.Job, st sh.Status) error {
	if st.Success() {
		return nil
	}
	return &statusError{job: j.Name(), status: st}
}
