package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"

	"github.com/nsfs/naming/naming/lockmgr"
	"github.com/nsfs/naming/naming/nspath"
	"github.com/nsfs/naming/naming/registry"
	"github.com/nsfs/naming/naming/tree"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestRegistry(t *testing.T) { RunTests(t) }

type fakeStorage struct{ name string }

func (f *fakeStorage) String() string { return f.name }

type fakeCommand struct {
	name string

	mu      sync.Mutex
	deleted []nspath.Path
}

func (f *fakeCommand) String() string { return f.name }

func (f *fakeCommand) Create(ctx context.Context, p nspath.Path) (bool, error) {
	return true, nil
}

func (f *fakeCommand) Delete(ctx context.Context, p nspath.Path) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return true, nil
}

func (f *fakeCommand) deletedPaths() []nspath.Path {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]nspath.Path, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func handle(name string) (tree.Handle, *fakeCommand) {
	cmd := &fakeCommand{name: name}
	return tree.Handle{Storage: &fakeStorage{name: name}, Command: cmd}, cmd
}

func mustPath(s string) nspath.Path {
	p, err := nspath.New(s)
	if err != nil {
		panic(err)
	}
	return p
}

type RegistryTest struct {
	ctx   context.Context
	tr    *tree.Tree
	locks *lockmgr.Manager
	clock timeutil.SimulatedClock
	reg   *registry.Registry
}

func init() { RegisterTestSuite(&RegistryTest{}) }

func (t *RegistryTest) SetUp(ti *TestInfo) {
	t.ctx = context.Background()
	t.tr = tree.New()
	t.locks = lockmgr.New()
	t.clock.SetTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	t.reg = registry.New(t.tr, t.locks, &t.clock)
}

func (t *RegistryTest) RegisterAdmitsAllNewFiles() {
	h, _ := handle("node1")
	rejected, err := t.reg.Register(t.ctx, h, []nspath.Path{mustPath("/a"), mustPath("/b/c")})
	AssertEq(nil, err)
	ExpectThat(rejected, ElementsAre())
	ExpectTrue(t.tr.Contains(mustPath("/a")))
	ExpectTrue(t.tr.Contains(mustPath("/b/c")))
}

func (t *RegistryTest) RegisterRejectsDuplicatesAndReconciles() {
	h1, _ := handle("node1")
	_, err := t.reg.Register(t.ctx, h1, []nspath.Path{mustPath("/a")})
	AssertEq(nil, err)

	h2, cmd2 := handle("node2")
	rejected, err := t.reg.Register(t.ctx, h2, []nspath.Path{mustPath("/a"), mustPath("/z")})
	AssertEq(nil, err)
	ExpectThat(rejected, ElementsAre(DeepEquals(mustPath("/a"))))

	ExpectThat(cmd2.deletedPaths(), ElementsAre(DeepEquals(mustPath("/a"))))
}

func (t *RegistryTest) KnownNodesReportsEachRegistration() {
	h1, _ := handle("node1")
	h2, _ := handle("node2")

	_, err := t.reg.Register(t.ctx, h1, []nspath.Path{mustPath("/a")})
	AssertEq(nil, err)
	_, err = t.reg.Register(t.ctx, h2, []nspath.Path{mustPath("/b")})
	AssertEq(nil, err)

	nodes := t.reg.KnownNodes()
	AssertEq(2, len(nodes))
	ExpectEq(h1.Storage, nodes[0].Handle.Storage)
	ExpectEq(h2.Storage, nodes[1].Handle.Storage)
}
