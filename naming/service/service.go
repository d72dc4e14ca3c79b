// Package service implements the naming server's client-facing namespace
// operations: the "Service" facade of spec.md section 4.4. Every exported
// method validates its argument, acquires the path lock(s) it needs,
// consults or mutates the tree, and releases — following the
// commit-after-RPC discipline of spec.md section 5 for operations that
// must call out to a storage node.
package service

import (
	"context"
	"fmt"

	"github.com/nsfs/naming/naming/lockmgr"
	"github.com/nsfs/naming/naming/nserr"
	"github.com/nsfs/naming/naming/nspath"
	"github.com/nsfs/naming/naming/tree"
)

// Service is the naming server's client-facing namespace API. The zero
// value is not usable; construct with New.
type Service struct {
	tree *tree.Tree
	locks *lockmgr.Manager
}

// New returns a Service backed by t and guarded by locks. Callers
// typically share the same *tree.Tree and *lockmgr.Manager with a
// naming/registry.Registry so registration and client traffic observe a
// single consistent namespace.
func New(t *tree.Tree, locks *lockmgr.Manager) *Service {
	return &Service{tree: t, locks: locks}
}

// Lock acquires a shared or exclusive hold on path on the client's behalf.
// Matches spec.md's exposed lock/unlock primitives directly; callers are
// trusted to pair every Lock with an Unlock.
func (s *Service) Lock(ctx context.Context, path nspath.Path, exclusive bool) error {
	return s.locks.Lock(ctx, path, exclusive)
}

// Unlock releases a hold acquired with Lock.
func (s *Service) Unlock(path nspath.Path, exclusive bool) {
	s.locks.Unlock(path, exclusive)
}

// IsDirectory reports whether path is a directory. It takes its own shared
// lock on path for the duration of the call.
func (s *Service) IsDirectory(ctx context.Context, path nspath.Path) (bool, error) {
	if err := s.locks.Lock(ctx, path, false); err != nil {
		return false, err
	}
	defer s.locks.Unlock(path, false)

	return s.tree.IsDirectory(path)
}

// List returns the direct children of the directory at path. It takes its
// own shared lock on path for the duration of the call.
func (s *Service) List(ctx context.Context, path nspath.Path) ([]string, error) {
	if err := s.locks.Lock(ctx, path, false); err != nil {
		return nil, err
	}
	defer s.locks.Unlock(path, false)

	return s.tree.ListDirectChildren(path)
}

// GetStorage returns the storage handle hosting the file at path. It takes
// its own shared lock on path for the duration of the call.
func (s *Service) GetStorage(ctx context.Context, path nspath.Path) (tree.StorageHandle, error) {
	if err := s.locks.Lock(ctx, path, false); err != nil {
		return nil, err
	}
	defer s.locks.Unlock(path, false)

	return s.tree.StorageOf(path)
}

// CreateDirectory creates path as an empty directory, inheriting its
// parent's storage handle. It acquires its own exclusive lock on path;
// spec.md section 4.4 does not require the caller to pre-hold one. No
// outbound RPC is issued: directories are purely a naming-server concept
// until a file is created under them. Returns false, per spec.md section
// 6, if path is the root or already present; true if it created path.
func (s *Service) CreateDirectory(ctx context.Context, path nspath.Path) (bool, error) {
	if err := s.locks.Lock(ctx, path, true); err != nil {
		return false, err
	}
	defer s.locks.Unlock(path, true)

	handle, ok, err := s.tree.PrepareCreateDirectory(path)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil // root, or already present: idempotent no-op.
	}

	_, err = s.tree.CommitCreateDirectory(path, handle)
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateFile creates path as a new file, choosing the storage node that
// hosts parent(path) and issuing the outbound Command.Create call. The
// lock on path is released for the duration of the outbound RPC (spec.md
// section 5's commit-after-RPC discipline) and re-acquired to commit.
// Returns false, per spec.md section 6, if path was already present
// (locally or, per the storage node's reply, remotely) by the time the
// create would have taken effect; true if it created path.
func (s *Service) CreateFile(ctx context.Context, path nspath.Path) (bool, error) {
	if err := s.locks.Lock(ctx, path, true); err != nil {
		return false, err
	}
	handle, ok, err := s.tree.PrepareCreateFile(path)
	s.locks.Unlock(path, true)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil // already present: idempotent no-op.
	}

	created, err := handle.Command.Create(ctx, path)
	if err != nil {
		return false, fmt.Errorf("create %s on %s: %w", path, handle.Command, errWrapTransport(err))
	}
	if !created {
		return false, nil
	}

	if err := s.locks.Lock(ctx, path, true); err != nil {
		return false, err
	}
	defer s.locks.Unlock(path, true)

	committed, err := s.tree.CommitCreateFile(path, handle)
	if err != nil {
		return false, err
	}
	if !committed {
		// Lost a race with another creator; the namespace already has
		// path, which satisfies the caller's intent but is not this
		// call's doing.
		return false, nil
	}
	return true, nil
}

// Delete removes path — a file, or a directory and its entire subtree —
// issuing an outbound Command.Delete to the owning storage node for a
// file. Directory deletes do not call out, whether or not files are
// registered beneath the directory; the storage nodes hosting those files
// are not told of the delete. Returns
// false, per spec.md section 6, if path is the root or was already
// absent; true if it deleted path.
func (s *Service) Delete(ctx context.Context, path nspath.Path) (bool, error) {
	if err := s.locks.Lock(ctx, path, true); err != nil {
		return false, err
	}
	info, present, err := s.tree.PrepareDelete(path)
	if err != nil {
		s.locks.Unlock(path, true)
		return false, err
	}
	if !present {
		s.locks.Unlock(path, true)
		return false, nil
	}

	isFile := info.Kind == tree.KindFile
	s.locks.Unlock(path, true)

	if isFile {
		if _, err := info.Handle.Command.Delete(ctx, path); err != nil {
			return false, fmt.Errorf("delete %s on %s: %w", path, info.Handle.Command, errWrapTransport(err))
		}
	}

	if err := s.locks.Lock(ctx, path, true); err != nil {
		return false, err
	}
	defer s.locks.Unlock(path, true)

	deleted, err := s.tree.CommitDelete(path)
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func errWrapTransport(err error) error {
	return fmt.Errorf("%w: %v", nserr.ErrTransport, err)
}
