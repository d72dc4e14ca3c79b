package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nsfs/naming/internal/logger"
	"github.com/nsfs/naming/naming/nspath"
	"github.com/nsfs/naming/naming/registry"
	"github.com/nsfs/naming/naming/service"
	"github.com/nsfs/naming/naming/tree"
)

// traceCall logs op's entry with a fresh correlation ID and returns a
// closure to log its exit, so a traced inbound RPC can be followed through
// the log even when many calls interleave on the same connection. Lock,
// IsDirectory, CreateFile, Delete and Register use it; Unlock, List,
// GetStorage and CreateDirectory do not.
func traceCall(op string) func(err error) {
	id := uuid.NewString()
	logger.Tracef("rpc %s[%s]: start", op, id)
	return func(err error) {
		if err != nil {
			logger.Tracef("rpc %s[%s]: failed: %v", op, id, err)
			return
		}
		logger.Tracef("rpc %s[%s]: ok", op, id)
	}
}

// ServiceSkeleton binds a naming/service.Service to net/rpc: the Go
// analogue of spec.md's "skeleton" binding for the client-facing Service
// interface. Every method is exported with the (args, *reply) error
// signature net/rpc requires. ctx is the Server's shutdown context, not a
// per-call one: net/rpc has no wire representation for cancellation, so
// the only cancellation signal an in-flight call can observe is server
// shutdown (see naming/rpc.Server.Stop and spec.md section 5).
type ServiceSkeleton struct {
	svc *service.Service
	ctx context.Context
}

// NewServiceSkeleton wraps svc for RPC dispatch under ctx.
func NewServiceSkeleton(svc *service.Service, ctx context.Context) *ServiceSkeleton {
	return &ServiceSkeleton{svc: svc, ctx: ctx}
}

func (s *ServiceSkeleton) Lock(req PathRequest, reply *Ack) (err error) {
	logExit := traceCall("Lock")
	defer func() { logExit(err) }()
	p, perr := nspath.New(req.Path)
	if perr != nil {
		return perr
	}
	if err = s.svc.Lock(s.ctx, p, req.Exclusive); err != nil {
		return err
	}
	*reply = Ack{}
	return nil
}

func (s *ServiceSkeleton) Unlock(req PathRequest, reply *Ack) (err error) {
	p, perr := nspath.New(req.Path)
	if perr != nil {
		return perr
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unlock %s: %v", p, r)
		}
	}()

	s.svc.Unlock(p, req.Exclusive)
	*reply = Ack{}
	return nil
}

func (s *ServiceSkeleton) IsDirectory(req PathRequest, reply *BoolReply) (err error) {
	logExit := traceCall("IsDirectory")
	defer func() { logExit(err) }()
	p, err := nspath.New(req.Path)
	if err != nil {
		return err
	}
	v, err := s.svc.IsDirectory(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Value = v
	return nil
}

func (s *ServiceSkeleton) List(req PathRequest, reply *StringsReply) error {
	p, err := nspath.New(req.Path)
	if err != nil {
		return err
	}
	names, err := s.svc.List(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Values = names
	return nil
}

func (s *ServiceSkeleton) GetStorage(req PathRequest, reply *StorageReply) error {
	p, err := nspath.New(req.Path)
	if err != nil {
		return err
	}
	h, err := s.svc.GetStorage(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Storage = h.String()
	return nil
}

func (s *ServiceSkeleton) CreateDirectory(req PathRequest, reply *BoolReply) error {
	p, err := nspath.New(req.Path)
	if err != nil {
		return err
	}
	created, err := s.svc.CreateDirectory(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Value = created
	return nil
}

func (s *ServiceSkeleton) CreateFile(req PathRequest, reply *BoolReply) (err error) {
	logExit := traceCall("CreateFile")
	defer func() { logExit(err) }()
	p, perr := nspath.New(req.Path)
	if perr != nil {
		return perr
	}
	var created bool
	created, err = s.svc.CreateFile(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Value = created
	return nil
}

func (s *ServiceSkeleton) Delete(req PathRequest, reply *BoolReply) (err error) {
	logExit := traceCall("Delete")
	defer func() { logExit(err) }()
	p, perr := nspath.New(req.Path)
	if perr != nil {
		return perr
	}
	var deleted bool
	deleted, err = s.svc.Delete(s.ctx, p)
	if err != nil {
		return err
	}
	reply.Value = deleted
	return nil
}

// RegistrationSkeleton binds a naming/registry.Registry to net/rpc: the
// skeleton for spec.md's Registration interface. On each Register call it
// dials the announcing storage node's command endpoint to obtain the
// naming/tree.CommandHandle the registry needs for future directives and
// reconciliation deletes.
type RegistrationSkeleton struct {
	reg *registry.Registry
	ctx context.Context
}

// NewRegistrationSkeleton wraps reg for RPC dispatch under ctx.
func NewRegistrationSkeleton(reg *registry.Registry, ctx context.Context) *RegistrationSkeleton {
	return &RegistrationSkeleton{reg: reg, ctx: ctx}
}

func (s *RegistrationSkeleton) Register(req RegisterRequest, reply *RegisterReply) (err error) {
	logExit := traceCall("Register")
	defer func() { logExit(err) }()
	paths := make([]nspath.Path, 0, len(req.Files))
	for _, f := range req.Files {
		p, err := nspath.New(f)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}

	cmd, err := DialCommand(req.CommandAddr)
	if err != nil {
		return fmt.Errorf("dial command endpoint %s: %w", req.CommandAddr, err)
	}

	handle := tree.Handle{Storage: StorageRef(req.StorageAddr), Command: cmd}
	rejected, err := s.reg.Register(s.ctx, handle, paths)
	if err != nil {
		return err
	}

	out := make([]string, len(rejected))
	for i, p := range rejected {
		out[i] = p.String()
	}
	reply.Rejected = out
	return nil
}
