// Package tree implements the naming server's in-memory directory tree:
// the namespace of files and directories and their mapping to storage
// nodes. See spec.md section 3 and 4.3.
//
// Tree is a low-level data structure. It does not itself provide the
// hierarchical read/write semantics spec.md describes for concurrent
// clients — that is naming/lockmgr's job, composed by naming/service and
// naming/registry. Tree only guarantees that its own map-based
// representation is safe to mutate from multiple goroutines and that the
// representation invariants (spec.md I1, I3) hold after every call.
package tree

import (
	"context"
	"fmt"
	"sort"

	"github.com/jacobsa/syncutil"

	"github.com/nsfs/naming/naming/nserr"
	"github.com/nsfs/naming/naming/nspath"
)

// StorageHandle is an opaque reference to one storage node's data-read
// interface. Concrete implementations must be comparable (== must work)
// so the registry can detect re-registration of the same node.
type StorageHandle interface {
	fmt.Stringer
}

// CommandHandle is an opaque reference to one storage node's directive
// interface: the outbound create/delete calls spec.md section 6 describes.
// Concrete implementations must be comparable, like StorageHandle.
type CommandHandle interface {
	fmt.Stringer

	// Create asks the storage node to create backing storage for path.
	Create(ctx context.Context, path nspath.Path) (bool, error)

	// Delete asks the storage node to remove backing storage for path.
	Delete(ctx context.Context, path nspath.Path) (bool, error)
}

// Handle is the (Storage, Command) pair identifying one storage node.
type Handle struct {
	Storage StorageHandle
	Command CommandHandle
}

type registration struct {
	handle Handle
}

// Kind distinguishes a file node from a directory node.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "directory"
}

// NodeInfo is a snapshot of one present path: its kind and its hosting
// storage node's handle pair.
type NodeInfo struct {
	Kind   Kind
	Handle Handle
}

type node struct {
	kind     Kind
	handle   Handle
	hasHandle bool
	children map[string]*node
}

func newDirNode() *node {
	return &node{kind: KindDirectory, children: map[string]*node{}}
}

// Tree is the naming server's namespace. The zero value is not usable;
// construct with New.
type Tree struct {
	mu   syncutil.InvariantMutex
	root *node

	// registered tracks every (Storage, Command) pair ever admitted by
	// Register, so createFile can enforce "at least one storage node"
	// and Register can reject re-registration.
	registered map[regKey]registration
}

type regKey struct {
	storage StorageHandle
	command CommandHandle
}

// New returns an empty tree: just the root directory, no registered
// storage nodes.
func New() *Tree {
	t := &Tree{
		root:       newDirNode(),
		registered: map[regKey]registration{},
	}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *Tree) checkInvariants() {
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.children {
			if c.kind == KindFile && !c.hasHandle {
				panic("tree: file node without a storage/command handle")
			}
			if c.kind == KindFile && len(c.children) > 0 {
				panic("tree: file node with children")
			}
			walk(c)
		}
	}
	walk(t.root)
}

func (t *Tree) walkLocked(p nspath.Path) (*node, bool) {
	n := t.root
	for _, c := range p.Components() {
		child, ok := n.children[c]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

func notFound(p nspath.Path) error {
	return fmt.Errorf("%s: %w", p, nserr.ErrNotFound)
}

// Contains reports whether p is present: an explicitly created directory,
// an explicitly created or registered file, or an ancestor of either.
func (t *Tree) Contains(p nspath.Path) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.walkLocked(p)
	return ok
}

// IsDirectory reports whether p is a directory. Fails with ErrNotFound if
// p is not present.
func (t *Tree) IsDirectory(p nspath.Path) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.walkLocked(p)
	if !ok {
		return false, notFound(p)
	}
	return n.kind == KindDirectory, nil
}

// ListDirectChildren returns the sorted names of p's direct children.
// Fails with ErrNotFound if p is absent or not a directory.
func (t *Tree) ListDirectChildren(p nspath.Path) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.walkLocked(p)
	if !ok || n.kind != KindDirectory {
		return nil, notFound(p)
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Stat returns kind and hosting handle for a present path.
func (t *Tree) Stat(p nspath.Path) (NodeInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.walkLocked(p)
	if !ok {
		return NodeInfo{}, notFound(p)
	}
	return NodeInfo{Kind: n.kind, Handle: n.handle}, nil
}

// StorageOf returns the storage handle for a registered file path. Fails
// with ErrNotFound if p is absent or not a file.
func (t *Tree) StorageOf(p nspath.Path) (StorageHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.walkLocked(p)
	if !ok || n.kind != KindFile {
		return nil, notFound(p)
	}
	return n.handle.Storage, nil
}

// Size returns the total number of nodes in the tree, including the root.
// Exported purely for operability metrics; never consulted by namespace
// logic.
func (t *Tree) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var walk func(n *node) int
	walk = func(n *node) int {
		count := 1
		for _, c := range n.children {
			count += walk(c)
		}
		return count
	}
	return walk(t.root)
}

// KnownNodeCount returns the number of distinct registered storage nodes.
func (t *Tree) KnownNodeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.registered)
}

// PrepareCreateFile validates a createFile request and returns the handle
// that would host it, without mutating the tree. The bool return is false
// if p is already present, in which case Handle is the zero value and
// callers must not issue the outbound Command.Create call. Otherwise
// callers perform that RPC with the monitor released, then call
// CommitCreateFile.
func (t *Tree) PrepareCreateFile(p nspath.Path) (Handle, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.IsRoot() {
		return Handle{}, false, fmt.Errorf("root: %w", nserr.ErrInvalidArgument)
	}
	if _, present := t.walkLocked(p); present {
		return Handle{}, false, nil
	}
	if len(t.registered) == 0 {
		return Handle{}, false, fmt.Errorf("%s: %w", p, nserr.ErrNoStorage)
	}
	parent, _ := p.Parent()
	parentNode, ok := t.walkLocked(parent)
	if !ok || parentNode.kind != KindDirectory {
		return Handle{}, false, notFound(parent)
	}
	if !parentNode.hasHandle {
		return Handle{}, false, fmt.Errorf("%s: %w", p, nserr.ErrNoStorage)
	}
	return parentNode.handle, true, nil
}

// CommitCreateFile inserts the file node using the handle obtained from an
// earlier PrepareCreateFile, after the outbound Command.Create call
// succeeded. Returns (false, nil) if p became present in the meantime
// (another racing creator won); returns ErrConflict if the parent stopped
// being a valid directory with the same handle in the meantime.
func (t *Tree) CommitCreateFile(p nspath.Path, handle Handle) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, present := t.walkLocked(p); present {
		return false, nil
	}
	parent, _ := p.Parent()
	parentNode, ok := t.walkLocked(parent)
	if !ok || parentNode.kind != KindDirectory || parentNode.handle != handle {
		return false, fmt.Errorf("%s: %w", p, nserr.ErrConflict)
	}

	name, _ := p.DirectChild(parent)
	parentNode.children[name] = &node{kind: KindFile, handle: handle, hasHandle: true, children: nil}
	return true, nil
}

// PrepareCreateDirectory validates a createDirectory request and returns
// the handle the new directory would inherit from its parent.
func (t *Tree) PrepareCreateDirectory(p nspath.Path) (Handle, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.IsRoot() {
		return Handle{}, false, nil
	}
	if _, present := t.walkLocked(p); present {
		return Handle{}, false, nil
	}
	parent, _ := p.Parent()
	parentNode, ok := t.walkLocked(parent)
	if !ok || parentNode.kind != KindDirectory {
		return Handle{}, false, notFound(parent)
	}
	return parentNode.handle, true, nil
}

// CommitCreateDirectory inserts the directory node. Unlike CommitCreateFile
// this never calls an outbound RPC (spec.md: createDirectory "does not
// materialize the directory on any storage node"), so it is usually called
// directly after PrepareCreateDirectory with the lock still held; it is
// split out only for symmetry and to allow the same race re-check.
func (t *Tree) CommitCreateDirectory(p nspath.Path, handle Handle) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, present := t.walkLocked(p); present {
		return false, nil
	}
	parent, _ := p.Parent()
	parentNode, ok := t.walkLocked(parent)
	if !ok || parentNode.kind != KindDirectory {
		return false, fmt.Errorf("%s: %w", p, nserr.ErrConflict)
	}

	name, _ := p.DirectChild(parent)
	parentNode.children[name] = &node{kind: KindDirectory, handle: handle, hasHandle: parentNode.hasHandle, children: map[string]*node{}}
	return true, nil
}

// PrepareDelete validates a delete request and returns info for the node
// at p: its kind and the handle owning it. The bool is false, with a nil
// error, if p is the root or absent. naming/service sends an outbound
// Command.Delete only for a file; a directory delete sends none, even when
// files are registered beneath it, so the storage nodes hosting those
// files are not told they were removed from the namespace.
func (t *Tree) PrepareDelete(p nspath.Path) (NodeInfo, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.IsRoot() {
		return NodeInfo{}, false, nil
	}
	n, ok := t.walkLocked(p)
	if !ok {
		return NodeInfo{}, false, nil
	}
	return NodeInfo{Kind: n.kind, Handle: n.handle}, true, nil
}

// CommitDelete removes p and, if it was a directory, its entire subtree
// (spec.md I5: atomic with respect to other operations, since the subtree
// is unlinked in one step under the tree's mutex while the caller holds an
// exclusive lock on p; naming/service releases that lock between
// PrepareDelete and CommitDelete and re-acquires it for the commit).
func (t *Tree) CommitDelete(p nspath.Path) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.IsRoot() {
		return false, nil
	}
	if _, ok := t.walkLocked(p); !ok {
		return false, nil
	}
	parent, _ := p.Parent()
	parentNode, ok := t.walkLocked(parent)
	if !ok {
		return false, fmt.Errorf("%s: %w", p, nserr.ErrConflict)
	}
	name, _ := p.DirectChild(parent)
	delete(parentNode.children, name)
	return true, nil
}

// Register partitions files into accept/reject per spec.md section 4.5 and
// atomically merges the accepted ones into the tree under the given
// handle. The caller is responsible for holding an exclusive lock that
// makes this atomic with respect to other namespace operations (the root
// lock, per spec.md).
func (t *Tree) Register(handle Handle, files []nspath.Path) (rejected []nspath.Path, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := regKey{storage: handle.Storage, command: handle.Command}
	for k := range t.registered {
		if k.storage == handle.Storage || k.command == handle.Command {
			return nil, nserr.ErrAlreadyRegistered
		}
	}

	for _, p := range files {
		if p.IsRoot() {
			rejected = append(rejected, p)
			continue
		}
		if _, present := t.walkLocked(p); present {
			rejected = append(rejected, p)
			continue
		}
		if t.ancestorIsFileLocked(p) {
			rejected = append(rejected, p)
			continue
		}
		t.insertRegisteredLocked(p, handle)
	}

	t.registered[key] = registration{handle: handle}
	return rejected, nil
}

// ancestorIsFileLocked reports whether some ancestor directory component of
// p already exists as a file node. Two storage nodes can register a
// parent/child pair as file/file (e.g. "/a" then "/a/b"); admitting the
// second would require treating "/a" as a directory, violating I1 (no path
// is simultaneously a file and a directory). Such paths are rejected the
// same way an exact duplicate is, per section 4.5's "register never fails"
// policy, rather than reaching insertRegisteredLocked at all.
func (t *Tree) ancestorIsFileLocked(p nspath.Path) bool {
	n := t.root
	comps := p.Components()
	for _, name := range comps[:len(comps)-1] {
		child, ok := n.children[name]
		if !ok {
			return false
		}
		if child.kind != KindDirectory {
			return true
		}
		n = child
	}
	return false
}

// insertRegisteredLocked creates p as a file under handle, materializing
// any missing ancestor directories and giving them handle too (spec.md
// 4.3: "Directory nodes carry a pair ... assigned at creation time").
func (t *Tree) insertRegisteredLocked(p nspath.Path, handle Handle) {
	n := t.root
	comps := p.Components()
	for _, name := range comps[:len(comps)-1] {
		child, ok := n.children[name]
		if !ok {
			child = &node{kind: KindDirectory, handle: handle, hasHandle: true, children: map[string]*node{}}
			n.children[name] = child
		}
		n = child
	}
	last := comps[len(comps)-1]
	n.children[last] = &node{kind: KindFile, handle: handle, hasHandle: true, children: nil}
}
