package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nsfs/naming/naming/lockmgr"
	"github.com/nsfs/naming/naming/nserr"
	"github.com/nsfs/naming/naming/nspath"
	"github.com/nsfs/naming/naming/service"
	"github.com/nsfs/naming/naming/tree"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestService(t *testing.T) { RunTests(t) }

type fakeStorage struct{ name string }

func (f *fakeStorage) String() string { return f.name }

type fakeCommand struct {
	name      string
	failNext  bool
	creates   []nspath.Path
	deletes   []nspath.Path
}

func (f *fakeCommand) String() string { return f.name }

func (f *fakeCommand) Create(ctx context.Context, p nspath.Path) (bool, error) {
	if f.failNext {
		return false, errors.New("injected failure")
	}
	f.creates = append(f.creates, p)
	return true, nil
}

func (f *fakeCommand) Delete(ctx context.Context, p nspath.Path) (bool, error) {
	f.deletes = append(f.deletes, p)
	return true, nil
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

type ServiceTest struct {
	ctx context.Context
	tr  *tree.Tree
	m   *lockmgr.Manager
	svc *service.Service
}

func init() { RegisterTestSuite(&ServiceTest{}) }

func (t *ServiceTest) SetUp(ti *TestInfo) {
	t.ctx = context.Background()
	t.tr = tree.New()
	t.m = lockmgr.New()
	t.svc = service.New(t.tr, t.m)
}

func (t *ServiceTest) CreateFileFailsWithoutRegisteredStorage() {
	created, err := t.svc.CreateFile(t.ctx, mustPath("/foo"))
	ExpectTrue(errors.Is(err, nserr.ErrNoStorage))
	ExpectFalse(created)
}

func (t *ServiceTest) CreateFileCallsOutboundCreateAndCommits() {
	h, cmd := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b")})
	AssertEq(nil, err)

	created, err := t.svc.CreateFile(t.ctx, mustPath("/a/f"))
	AssertEq(nil, err)
	ExpectTrue(created)

	ExpectThat(cmd.creates, ElementsAre(DeepEquals(mustPath("/a/f"))))
	storage, err := t.svc.GetStorage(t.ctx, mustPath("/a/f"))
	AssertEq(nil, err)
	ExpectEq(h.Storage, storage)
}

func (t *ServiceTest) CreateFileIsIdempotentIfAlreadyPresent() {
	h, cmd := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b")})
	AssertEq(nil, err)

	first, err := t.svc.CreateFile(t.ctx, mustPath("/a/f"))
	AssertEq(nil, err)
	ExpectTrue(first)

	second, err := t.svc.CreateFile(t.ctx, mustPath("/a/f"))
	AssertEq(nil, err)
	ExpectFalse(second)

	ExpectEq(1, len(cmd.creates))
}

func (t *ServiceTest) CreateFileSurfacesTransportFailure() {
	h, cmd := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b")})
	AssertEq(nil, err)
	cmd.failNext = true

	created, err := t.svc.CreateFile(t.ctx, mustPath("/a/f"))
	ExpectTrue(errors.Is(err, nserr.ErrTransport))
	ExpectFalse(created)
	ExpectFalse(t.tr.Contains(mustPath("/a/f")))
}

func (t *ServiceTest) DeleteFileCallsOutboundDelete() {
	h, cmd := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a")})
	AssertEq(nil, err)

	deleted, err := t.svc.Delete(t.ctx, mustPath("/a"))
	AssertEq(nil, err)
	ExpectTrue(deleted)
	ExpectThat(cmd.deletes, ElementsAre(DeepEquals(mustPath("/a"))))
	ExpectFalse(t.tr.Contains(mustPath("/a")))
}

func (t *ServiceTest) DeleteDirectoryDoesNotCallOutbound() {
	h, cmd := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b")})
	AssertEq(nil, err)

	deleted, err := t.svc.Delete(t.ctx, mustPath("/a"))
	AssertEq(nil, err)
	ExpectTrue(deleted)
	ExpectThat(cmd.deletes, ElementsAre())
	ExpectFalse(t.tr.Contains(mustPath("/a")))
}

func (t *ServiceTest) DeleteOfAbsentPathIsNoOp() {
	deleted, err := t.svc.Delete(t.ctx, mustPath("/nope"))
	ExpectEq(nil, err)
	ExpectFalse(deleted)
}

func (t *ServiceTest) DeleteOfRootReturnsFalse() {
	deleted, err := t.svc.Delete(t.ctx, mustPath("/"))
	ExpectEq(nil, err)
	ExpectFalse(deleted)
}

func (t *ServiceTest) CreateDirectoryReturnsTrueThenFalse() {
	h, _ := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b")})
	AssertEq(nil, err)

	created, err := t.svc.CreateDirectory(t.ctx, mustPath("/a/d"))
	AssertEq(nil, err)
	ExpectTrue(created)

	created, err = t.svc.CreateDirectory(t.ctx, mustPath("/a/d"))
	AssertEq(nil, err)
	ExpectFalse(created)
}

func (t *ServiceTest) CreateDirectoryOfRootReturnsFalse() {
	created, err := t.svc.CreateDirectory(t.ctx, mustPath("/"))
	AssertEq(nil, err)
	ExpectFalse(created)
}

func (t *ServiceTest) ListAndIsDirectory() {
	h, _ := handle("node1")
	_, err := t.tr.Register(h, []nspath.Path{mustPath("/a/b"), mustPath("/a/c")})
	AssertEq(nil, err)

	isDir, err := t.svc.IsDirectory(t.ctx, mustPath("/a"))
	AssertEq(nil, err)
	ExpectTrue(isDir)

	children, err := t.svc.List(t.ctx, mustPath("/a"))
	AssertEq(nil, err)
	ExpectThat(children, ElementsAre("b", "c"))
}

func (t *ServiceTest) LockThenUnlockRoundTrips() {
	AssertEq(nil, t.svc.Lock(t.ctx, mustPath("/a"), true))
	t.svc.Unlock(mustPath("/a"), true)
}
