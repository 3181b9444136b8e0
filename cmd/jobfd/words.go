package main

import (
	"strconv"
	"strings"

	"github.com/madlambda/jobfd"
	"github.com/madlambda/jobfd/errors"
	"golang.org/x/exp/slices"
)

// redirectArgs recognizes words like "2>&1", ">out", "<in" or "3<>file"
// and returns them as arguments for Job.Redirect. The fd target "-"
// closes the fd.
func redirectArgs(word string) ([]interface{}, bool) {
	i := 0
	for i < len(word) && word[i] >= '0' && word[i] <= '9' {
		i++
	}

	rest := word[i:]

	sym := ""
	for _, s := range jobfd.Symbols() {
		if strings.HasPrefix(rest, s) && len(s) > len(sym) {
			sym = s
		}
	}
	if sym == "" {
		return nil, false
	}

	var args []interface{}
	if i > 0 {
		n, err := strconv.Atoi(word[:i])
		if err != nil {
			return nil, false
		}
		args = append(args, n)
	}

	var target interface{} = rest[len(sym):]
	if strings.HasSuffix(sym, "&") {
		switch t := rest[len(sym):]; t {
		case "-":
			target = -1
		default:
			if n, err := strconv.Atoi(t); err == nil {
				target = n
			}
		}
	}

	return append(args, sym, target), true
}

// newJob builds a job from shell-like words. Words separated by ";" become
// the children of a Multi; in each command the redirect words may appear
// anywhere and the first remaining word names a builtin or a program.
func newJob(rt *jobfd.Runtime, words []string) (*jobfd.Job, error) {
	var (
		jobs []*jobfd.Job
		cur  []string
	)

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		j, err := newCommand(rt, cur)
		if err != nil {
			return err
		}
		jobs = append(jobs, j)
		cur = nil
		return nil
	}

	for _, w := range words {
		if w == ";" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cur = append(cur, w)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	switch len(jobs) {
	case 0:
		return nil, errors.NewError("empty command")
	case 1:
		return jobs[0], nil
	}
	return rt.Multi("sequence", jobs...), nil
}

func newCommand(rt *jobfd.Runtime, words []string) (*jobfd.Job, error) {
	var (
		argv  []string
		redir []interface{}
	)

	for _, w := range words {
		if args, ok := redirectArgs(w); ok {
			redir = append(redir, args...)
			continue
		}
		argv = append(argv, w)
	}

	if len(argv) == 0 {
		return nil, errors.NewError("command with redirections only: %s", strings.Join(words, " "))
	}

	var j *jobfd.Job
	if slices.Contains(jobfd.Builtins(), argv[0]) {
		j = rt.Builtin(argv[0], argv[1:]...)
	} else {
		j = rt.Cmd(argv[0], argv[1:]...)
	}

	if len(redir) > 0 {
		if err := j.Redirect(redir...); err != nil {
			return nil, err
		}
	}
	return j, nil
}
