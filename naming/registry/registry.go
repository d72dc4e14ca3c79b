// Package registry implements the naming server's storage-node
// registration and reconciliation protocol: the "Registration" facade of
// spec.md section 4.5.
package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jacobsa/timeutil"

	"github.com/nsfs/naming/naming/lockmgr"
	"github.com/nsfs/naming/naming/nspath"
	"github.com/nsfs/naming/naming/tree"
)

// reconcileRateLimit bounds how fast the registry issues reconciliation
// deletes to one storage node, so a bulk registration with many rejected
// duplicates cannot itself look like an abusive burst of directive calls
// against the node being cleaned up.
const reconcileRateLimit = 50 // per second

// NodeInfo is a diagnostic snapshot of one registered storage node.
type NodeInfo struct {
	Handle       tree.Handle
	RegisteredAt int64 // Unix nanoseconds, from the Registry's clock.
}

// Registry is the naming server's storage-node registration API. The zero
// value is not usable; construct with New.
type Registry struct {
	tree  *tree.Tree
	locks *lockmgr.Manager
	clock timeutil.Clock

	mu    sync.Mutex // guards known
	known []NodeInfo

	reconcileLimiter *rate.Limiter
}

// New returns a Registry backed by t and guarded by locks, sharing both
// with the naming/service.Service serving client traffic against the same
// namespace. clock stamps registration times for diagnostics only; pass
// timeutil.RealClock() in production and a timeutil.SimulatedClock in
// tests.
func New(t *tree.Tree, locks *lockmgr.Manager, clock timeutil.Clock) *Registry {
	return &Registry{
		tree:             t,
		locks:            locks,
		clock:            clock,
		reconcileLimiter: rate.NewLimiter(reconcileRateLimit, reconcileRateLimit),
	}
}

// Register admits a storage node and its file list into the namespace.
// Per spec.md section 4.5, this never fails because of duplicate files:
// files already present elsewhere are rejected and returned to the
// caller, who is expected to tell the storage node to delete its local
// copies. The merge itself is atomic under the tree's root exclusive
// lock; the reconciliation deletes below happen afterwards, outside that
// lock, fanned out with errgroup since they are independent of one
// another and of the namespace state.
func (r *Registry) Register(ctx context.Context, handle tree.Handle, files []nspath.Path) ([]nspath.Path, error) {
	root := nspath.Root()
	if err := r.locks.Lock(ctx, root, true); err != nil {
		return nil, err
	}
	rejected, err := r.tree.Register(handle, files)
	r.locks.Unlock(root, true)
	if err != nil {
		return nil, err
	}

	r.recordLocked(handle)

	if len(rejected) > 0 {
		r.reconcile(ctx, handle, rejected)
	}

	return rejected, nil
}

// reconcile asks handle's storage node to delete the files it offered
// that were rejected as duplicates, since spec.md's registration protocol
// places that cleanup on the naming server rather than leaving orphaned
// copies behind. Failures are not fatal to Register: a storage node that
// cannot be reached for cleanup is still correctly registered. A failed
// delete is ignored and not retried.
func (r *Registry) reconcile(ctx context.Context, handle tree.Handle, rejected []nspath.Path) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range rejected {
		p := p
		g.Go(func() error {
			if err := r.reconcileLimiter.Wait(gctx); err != nil {
				return nil
			}
			_, _ = handle.Command.Delete(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) recordLocked(handle tree.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.known = append(r.known, NodeInfo{Handle: handle, RegisteredAt: r.clock.Now().UnixNano()})
}

// KnownNodes returns a snapshot of every storage node registered so far,
// for diagnostics and metrics. It does not take any namespace lock: it
// reads only the registry's own bookkeeping, not the tree.
func (r *Registry) KnownNodes() []NodeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]NodeInfo, len(r.known))
	copy(out, r.known)
	return out
}
