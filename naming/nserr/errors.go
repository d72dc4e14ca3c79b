// Package nserr defines the error kinds shared by every naming-server
// package. Callers should compare with errors.Is against the sentinels
// below; the wrapped message gives the operator-facing detail.
package nserr

import "errors"

var (
	// ErrInvalidArgument indicates a null/empty/malformed argument: an
	// illegal path component, a nil handle, a nil path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates a path that is absent, a parent that is not a
	// directory, or a storage handle that is not bound.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered indicates a storage or command handle that is
	// already known to the registry.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrNoStorage indicates a file create was attempted with zero
	// registered storage nodes.
	ErrNoStorage = errors.New("no storage nodes registered")

	// ErrTransport wraps an outbound RPC failure to a storage node,
	// surfaced as-is to the client.
	ErrTransport = errors.New("transport error")

	// ErrCancelled indicates a lock wait was interrupted by context
	// cancellation or server shutdown.
	ErrCancelled = errors.New("cancelled")

	// ErrConflict indicates a tree mutation lost a commit-after-RPC race:
	// the namespace changed while an outbound directive call was in
	// flight without the node's lock held.
	ErrConflict = errors.New("conflicting concurrent mutation")
)
