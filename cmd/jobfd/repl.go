package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/chzyer/readline"
	"github.com/madlambda/jobfd"
	"github.com/spf13/cobra"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read jobs line by line and run them",
		Long: `Read jobs line by line and run them on the standard streams.

A line starting with "capture" runs the rest in a child process and
prints its quoted output and status instead. "exit" quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "jobfd> ",
				AutoComplete:    NewCompleter(os.Getenv("PATH")),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer rl.Close()

			return repl(rt, rl, cmd.OutOrStdout())
		},
	}
}

func repl(rt *jobfd.Runtime, rl *readline.Instance, out io.Writer) error {
	for {
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return nil
		}

		if err := evalLine(rt, line, out); err != nil {
			colorError.Fprintf(rl.Stderr(), "ERROR: %s\n", err)
		}
	}
}

func evalLine(rt *jobfd.Runtime, line string, out io.Writer) error {
	words, err := shlex.Split(line, true)
	if err != nil {
		return err
	}

	capture := len(words) > 0 && words[0] == "capture"
	if capture {
		words = words[1:]
	}

	j, err := newJob(rt, words)
	if err != nil {
		return err
	}

	if capture {
		text, st, err := j.CaptureString()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%q\n", text)
		colorStatus.Fprintf(out, "[%s] %s\n", j.Name(), st)
		return nil
	}

	st, err := runJob(j, false)
	if err != nil {
		return err
	}
	if !st.Success() {
		colorStatus.Fprintf(out, "[%s] %s\n", j.Name(), st)
	}
	return nil
}
