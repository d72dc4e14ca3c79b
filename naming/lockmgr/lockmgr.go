// Package lockmgr implements the naming server's hierarchical read/write
// lock manager. A single Manager guards every path in one namespace; see
// spec.md section 4.2 and DESIGN.md for the conflict predicate this
// implementation resolves to.
package lockmgr

import (
	"context"
	"sync"

	"github.com/nsfs/naming/naming/nserr"
	"github.com/nsfs/naming/naming/nspath"
)

// Manager hands out shared/exclusive holds on Path values. The zero value
// is not usable; construct with New.
type Manager struct {
	mu      sync.Mutex
	next    uint64
	waiting []*ticket
}

type ticket struct {
	seq       uint64
	path      nspath.Path
	exclusive bool
	granted   bool
	ready     chan struct{}
}

// New returns an empty lock manager.
func New() *Manager {
	return &Manager{}
}

// Lock acquires a hold on path: shared if !exclusive, exclusive otherwise.
// It blocks until granted, until ctx is done (returning ErrCancelled), or
// returns immediately if already grantable. Every successful Lock must be
// matched by exactly one Unlock call with the same path and mode.
func (m *Manager) Lock(ctx context.Context, path nspath.Path, exclusive bool) error {
	t := &ticket{path: path, exclusive: exclusive, ready: make(chan struct{})}

	m.mu.Lock()
	t.seq = m.next
	m.next++
	m.waiting = append(m.waiting, t)
	m.tryGrantLocked(t)
	granted := t.granted
	m.mu.Unlock()

	if granted {
		return nil
	}

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		if t.granted {
			// Lost the race: the ticket was granted right before we
			// observed cancellation. Release it so it is never leaked.
			m.removeLocked(t)
			m.rescanLocked()
			m.mu.Unlock()
			return nserr.ErrCancelled
		}
		m.removeLocked(t)
		m.rescanLocked()
		m.mu.Unlock()
		return nserr.ErrCancelled
	}
}

// Unlock releases one previously granted hold matching path and exclusive.
// It never blocks. Calling Unlock without a matching prior successful Lock
// is a caller bug and panics, the same way unlocking an unheld sync.Mutex
// does.
func (m *Manager) Unlock(path nspath.Path, exclusive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.waiting {
		if t.granted && t.path == path && t.exclusive == exclusive {
			m.waiting = append(m.waiting[:i:i], m.waiting[i+1:]...)
			m.rescanLocked()
			return
		}
	}
	panic("lockmgr: Unlock called without a matching held lock on " + path.String())
}

// tryGrantLocked grants t immediately if no earlier still-outstanding
// ticket conflicts with it. Must be called with m.mu held.
func (m *Manager) tryGrantLocked(t *ticket) {
	if t.granted {
		return
	}
	for _, other := range m.waiting {
		if other == t || other.seq >= t.seq {
			continue
		}
		if conflicts(t, other) {
			return
		}
	}
	t.granted = true
	close(t.ready)
}

// rescanLocked re-evaluates every still-pending ticket in arrival order,
// granting whatever is now grantable. Called after any ticket is removed
// (unlock or cancellation) since that can unblock later arrivals.
func (m *Manager) rescanLocked() {
	for _, t := range m.waiting {
		if !t.granted {
			m.tryGrantLocked(t)
		}
	}
}

func (m *Manager) removeLocked(t *ticket) {
	for i, other := range m.waiting {
		if other == t {
			m.waiting = append(m.waiting[:i:i], m.waiting[i+1:]...)
			return
		}
	}
}

// conflicts implements the resolved predicate from DESIGN.md: two tickets
// conflict iff their paths are comparable (one is an ancestor-or-equal of
// the other, in either direction) and at least one requests exclusive.
func conflicts(a, b *ticket) bool {
	if !a.exclusive && !b.exclusive {
		return false
	}
	return a.path.IsSubpath(b.path) || b.path.IsSubpath(a.path)
}
