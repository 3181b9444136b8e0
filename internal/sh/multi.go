package sh

import (
	"github.com/madlambda/jobfd/sh"
)

// startMulti builds the remap table of j, which its children resolve
// through, and hands the sequence to a coordinator goroutine owning the
// table until the last child finishes.
func (j *Job) startMulti(opts sh.StartOptions) error {
	if err := j.BuildRemap(); err != nil {
		return err
	}

	j.fdmu.Lock()
	j.busy = true
	j.fdmu.Unlock()

	j.mu.Lock()
	j.pgid = opts.Pgid
	j.mu.Unlock()

	j.setStatus(sh.Running())

	go j.coordinate(opts)
	return nil
}

// coordinate runs the children in order. The first child started in a
// process creates the group the following ones join. A child killed by a
// signal or raising an exception ends the sequence.
func (j *Job) coordinate(opts sh.StartOptions) {
	final := sh.Exited(0)

	for _, c := range j.children {
		j.mu.Lock()
		if j.abort != nil {
			j.mu.Unlock()
			break
		}
		pgid := j.pgid
		j.current = c
		j.mu.Unlock()

		err := c.Start(sh.StartOptions{
			Subprocess: opts.Subprocess,
			CloseFds:   opts.CloseFds,
			Pgid:       pgid,
		})
		if err != nil {
			final = sh.Exception(err)
			break
		}

		if cpgid := c.Pgid(); cpgid != 0 && cpgid != pgid {
			j.mu.Lock()
			j.pgid = cpgid
			j.mu.Unlock()
		}

		final = c.await(sh.Status.Finished)
		if final.Kind == sh.StatusKilled || final.Kind == sh.StatusException {
			break
		}
	}

	j.finish(final)
}
