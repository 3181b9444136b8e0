// Package fd tracks ownership of the real descriptors a job runtime
// allocates and hosts the single primitive that realizes a redirection.
package fd

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// DefaultMin is the lowest descriptor a pool hands out. Descriptors below
// it belong to the host (stdio and whatever the host opened at startup).
const DefaultMin = 10

type (
	// Pool issues descriptors at or above a minimum number and counts the
	// holders of each one. A descriptor is closed only when its last
	// holder releases it.
	Pool struct {
		mu   sync.Mutex
		min  int
		null int
		live map[int]*Handle
	}

	// Handle is an owned descriptor. The zero fd value -1 means the
	// descriptor was closed on purpose (a redirection to "closed").
	Handle struct {
		fd   int
		refs int
		pool *Pool
	}
)

func NewPool(min int) *Pool {
	if min < 3 {
		min = DefaultMin
	}
	return &Pool{
		min:  min,
		null: -1,
		live: make(map[int]*Handle),
	}
}

func (p *Pool) Min() int { return p.min }

// Allocate reserves a fresh close-on-exec descriptor number >= Min. The
// reserved descriptor refers to /dev/null until redirected.
func (p *Pool) Allocate() (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.null < 0 {
		null, err := unix.Open("/dev/null", unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, fmt.Errorf("fd: opening /dev/null: %w", err)
		}
		p.null = null
	}

	n, err := unix.FcntlInt(uintptr(p.null), unix.F_DUPFD_CLOEXEC, p.min)
	if err != nil {
		return nil, fmt.Errorf("fd: reserving descriptor >= %d: %w", p.min, err)
	}

	return p.track(n), nil
}

// track must be called with the lock held.
func (p *Pool) track(n int) *Handle {
	h := &Handle{fd: n, refs: 1, pool: p}
	p.live[n] = h
	return h
}

// Pipe creates a close-on-exec pipe whose two ends are owned by the pool.
func (p *Pool) Pipe() (r *Handle, w *Handle, err error) {
	var fds [2]int

	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, fmt.Errorf("fd: pipe: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.track(fds[0]), p.track(fds[1]), nil
}

// Release drops one holder of h. It reports whether the underlying
// descriptor was closed by this call.
func (p *Pool) Release(h *Handle) (bool, error) {
	if h == nil {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h.refs <= 0 {
		return false, fmt.Errorf("fd: release of dead handle %d", h.fd)
	}

	h.refs--
	if h.refs > 0 {
		return false, nil
	}

	if h.fd < 0 {
		return false, nil
	}

	n := h.fd
	delete(p.live, n)
	h.fd = -1
	return true, unix.Close(n)
}

// Detach marks h as closed without closing its descriptor, which the
// caller already did. Further releases are no-ops on the descriptor.
func (p *Pool) Detach(h *Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.fd >= 0 {
		delete(p.live, h.fd)
		h.fd = -1
	}
}

// Live returns the sorted descriptors still owned by the pool.
func (p *Pool) Live() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	fds := maps.Keys(p.live)
	slices.Sort(fds)
	return fds
}

// Owns reports whether n is a descriptor currently issued by the pool.
func (p *Pool) Owns(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.live[n]
	return ok
}

// Close releases the /dev/null template. Issued handles are untouched.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.null < 0 {
		return nil
	}
	err := unix.Close(p.null)
	p.null = -1
	return err
}

func (h *Handle) Fd() int { return h.fd }

// Retain adds a holder and returns h.
func (h *Handle) Retain() *Handle {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()

	h.refs++
	return h
}

// Release is shorthand for h's pool Release.
func (h *Handle) Release() (bool, error) {
	if h == nil {
		return false, nil
	}
	return h.pool.Release(h)
}

func (h *Handle) String() string {
	return fmt.Sprintf("fd(%d)", h.fd)
}
