// Package emulator runs an in-process control plane implementing the same
// wire contract as the hosted platform. It exists for local development and
// for tests that need the full invocation chain without a deployment.
package emulator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gotomicro/ekit/bean/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"efunc/api"
	_ "efunc/serialize/json"
)

// Function is one registered compute function. The payload stays opaque on
// the way in and on the way out.
type Function func(ctx context.Context, payload []byte) ([]byte, error)

type invocation struct {
	done      chan struct{}
	payload   []byte
	err       error
	format    uint8
	delivered bool
}

type Server struct {
	mutex sync.Mutex
	// (app, function) tag -> function id; ids are assigned at registration
	// so repeated maps stay stable
	ids       map[string]string
	functions map[string]Function
	nextFn    uint64

	invocations map[string]*invocation
	nextInv     uint64

	// token id -> secret; empty means auth is off
	tokens map[string]string

	grpcOpts []grpc.ServerOption
	srv      *grpc.Server
	listener net.Listener
}

func NewServer(opts ...option.Option[Server]) *Server {
	s := &Server{
		ids:         make(map[string]string, 8),
		functions:   make(map[string]Function, 8),
		invocations: make(map[string]*invocation, 16),
		tokens:      make(map[string]string, 2),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = grpc.NewServer(s.grpcOpts...)
	s.srv.RegisterService(&serviceDesc, s)
	return s
}

// ServerWithToken -> option, require this credential pair on every call
func ServerWithToken(id, secret string) option.Option[Server] {
	return func(server *Server) {
		server.tokens[id] = secret
	}
}

// ServerWithGRPCOptions -> option, e.g. interceptors for the control plane
func ServerWithGRPCOptions(opts ...grpc.ServerOption) option.Option[Server] {
	return func(server *Server) {
		server.grpcOpts = append(server.grpcOpts, opts...)
	}
}

// RegisterFunction deploys fn under (app, function). Registering the same
// tag again swaps the implementation but keeps the id.
func (s *Server) RegisterFunction(app, function string, fn Function) string {
	key := app + "/" + function
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, ok := s.ids[key]
	if !ok {
		s.nextFn++
		id = fmt.Sprintf("fu-%06d", s.nextFn)
		s.ids[key] = id
	}
	s.functions[id] = fn
	return id
}

// Start listens on address and serves until Close.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	s.mutex.Lock()
	s.listener = listener
	s.mutex.Unlock()
	return s.srv.Serve(listener)
}

// Address reports the listen address once serving.
func (s *Server) Address() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Close() error {
	s.srv.GracefulStop()
	return nil
}

func (s *Server) checkAuth(ctx context.Context) error {
	s.mutex.Lock()
	n := len(s.tokens)
	s.mutex.Unlock()
	if n == 0 {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}
	ids := md.Get("x-efunc-token-id")
	secrets := md.Get("x-efunc-token-secret")
	if len(ids) == 0 || len(secrets) == 0 {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}
	s.mutex.Lock()
	secret, ok := s.tokens[ids[0]]
	s.mutex.Unlock()
	if !ok || secret != secrets[0] {
		return status.Error(codes.Unauthenticated, "token rejected")
	}
	return nil
}

func (s *Server) FunctionMap(ctx context.Context,
	req *api.FunctionMapRequest) (*api.FunctionMapResponse, error) {
	if err := s.checkAuth(ctx); err != nil {
		return nil, err
	}
	key := req.AppName + "/" + req.FunctionName
	s.mutex.Lock()
	id, ok := s.ids[key]
	s.mutex.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no function %s", key)
	}
	return &api.FunctionMapResponse{FunctionID: id}, nil
}

func (s *Server) FunctionPutInputs(ctx context.Context,
	req *api.FunctionPutInputsRequest) (*api.FunctionPutInputsResponse, error) {
	if err := s.checkAuth(ctx); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	fn, ok := s.functions[req.FunctionID]
	if !ok {
		s.mutex.Unlock()
		return nil, status.Errorf(codes.NotFound, "no function id %s", req.FunctionID)
	}
	s.nextInv++
	id := fmt.Sprintf("in-%06d", s.nextInv)
	inv := &invocation{
		done:   make(chan struct{}),
		format: req.DataFormat,
	}
	s.invocations[id] = inv
	s.mutex.Unlock()

	// the invocation outlives this request, so the function runs detached
	// from the request context
	go func(payload []byte) {
		out, err := fn(context.Background(), payload)
		inv.payload = out
		inv.err = err
		close(inv.done)
	}(req.Payload)

	return &api.FunctionPutInputsResponse{InvocationID: id}, nil
}

func (s *Server) FunctionGetOutputs(ctx context.Context,
	req *api.FunctionGetOutputsRequest) (*api.FunctionGetOutputsResponse, error) {
	if err := s.checkAuth(ctx); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	inv, ok := s.invocations[req.InvocationID]
	s.mutex.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no invocation %s", req.InvocationID)
	}

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-inv.done:
	case <-timer.C:
		return &api.FunctionGetOutputsResponse{Pending: true}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// exactly one retrieval per invocation
	s.mutex.Lock()
	if inv.delivered {
		s.mutex.Unlock()
		return nil, status.Errorf(codes.FailedPrecondition,
			"output of %s already retrieved", req.InvocationID)
	}
	inv.delivered = true
	resp := &api.FunctionGetOutputsResponse{
		OK:         inv.err == nil,
		Payload:    inv.payload,
		DataFormat: inv.format,
	}
	if inv.err != nil {
		resp.ErrMessage = inv.err.Error()
		resp.Payload = nil
	}
	// the record shrinks to a tombstone: the output is released, only the
	// delivered flag stays so a repeat retrieval is told apart from an
	// unknown invocation
	inv.payload = nil
	inv.err = nil
	s.mutex.Unlock()
	return resp, nil
}
