package rpc

import (
	"context"
	"errors"
	"net"
	stdrpc "net/rpc"
	"sync"

	"github.com/nsfs/naming/naming/registry"
	"github.com/nsfs/naming/naming/service"
)

// ErrAlreadyStarted is returned by Start on a Server that has already been
// started.
var ErrAlreadyStarted = errors.New("server already started")

// ErrStopped is returned by Start on a Server that has already been
// stopped. Matches spec.md section 6: the server cannot be restarted.
var ErrStopped = errors.New("server already stopped; cannot restart")

// Server binds a naming/service.Service and naming/registry.Registry to
// two net/rpc listeners, matching spec.md section 6's two well-known
// ports. The zero value is not usable; construct with NewServer.
type Server struct {
	mu      sync.Mutex
	started bool
	stopped bool

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	serviceLn      net.Listener
	registrationLn net.Listener
}

// NewServer returns an unstarted Server.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{shutdownCtx: ctx, shutdownCancel: cancel}
}

// Start binds serviceAddr and registrationAddr and begins serving in
// background goroutines. It returns once both listeners are open; it does
// not block for the lifetime of the server. Start may be called at most
// once: calling it again returns ErrAlreadyStarted or ErrStopped.
func (s *Server) Start(serviceAddr, registrationAddr string, svc *service.Service, reg *registry.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}

	serviceServer := stdrpc.NewServer()
	if err := serviceServer.RegisterName("Service", NewServiceSkeleton(svc, s.shutdownCtx)); err != nil {
		return err
	}
	serviceLn, err := net.Listen("tcp", serviceAddr)
	if err != nil {
		return err
	}

	registrationServer := stdrpc.NewServer()
	if err := registrationServer.RegisterName("Registration", NewRegistrationSkeleton(reg, s.shutdownCtx)); err != nil {
		serviceLn.Close()
		return err
	}
	registrationLn, err := net.Listen("tcp", registrationAddr)
	if err != nil {
		serviceLn.Close()
		return err
	}

	s.serviceLn = serviceLn
	s.registrationLn = registrationLn
	s.started = true

	go serviceServer.Accept(serviceLn)
	go registrationServer.Accept(registrationLn)

	return nil
}

// Stop closes both listeners and cancels the shutdown context every
// blocked naming/lockmgr waiter in an in-flight RPC is selecting on,
// unblocking them with nserr.ErrCancelled. Stop is idempotent; the server
// cannot be started again afterwards.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	s.shutdownCancel()

	if s.serviceLn != nil {
		s.serviceLn.Close()
	}
	if s.registrationLn != nil {
		s.registrationLn.Close()
	}
	return nil
}
