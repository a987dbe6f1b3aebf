package efunc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotomicro/ekit/bean/option"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/balancer"
	"google.golang.org/grpc/balancer/base"
	"google.golang.org/grpc/credentials"
	ginsecure "google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/resolver"

	"efunc/api"
	"efunc/config"
	"efunc/internal/errs"
	"efunc/registry"
	_ "efunc/serialize/json"
)

// Client talks to the platform's control plane. One client owns one
// connection; the call chain for a single invocation is strictly
// Map -> PutInput -> GetOutput.
type Client struct {
	cc      *grpc.ClientConn
	invoker Invoker

	insecure        bool
	rb              resolver.Builder
	balancerBuilder balancer.Builder
	token           Token
	codecName       string
	compressorName  string
	dataFormat      uint8
	interceptors    []grpc.UnaryClientInterceptor

	// one GetOutputs attempt asks the control plane to wait this long
	outputWait time.Duration
	// pause between attempts
	pollInterval time.Duration
	// overall budget for the Call convenience
	callTimeout time.Duration

	mutex    sync.RWMutex
	mapped   map[string]FunctionID
	mapGroup singleflight.Group
}

// NewClient dials the control plane at address. With a registry configured
// the address is a service name resolved through it instead.
func NewClient(address string, opts ...option.Option[Client]) (*Client, error) {
	c := &Client{
		codecName:    "json",
		dataFormat:   api.FormatRaw,
		outputWait:   time.Second * 5,
		pollInterval: time.Millisecond * 500,
		callTimeout:  time.Minute,
		mapped:       make(map[string]FunctionID, 8),
	}
	for _, opt := range opts {
		opt(c)
	}
	dialOpts := make([]grpc.DialOption, 0, 8)
	if c.insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(ginsecure.NewCredentials()))
	} else {
		dialOpts = append(dialOpts,
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	}
	callOpts := []grpc.CallOption{grpc.CallContentSubtype(c.codecName)}
	if c.compressorName != "" {
		callOpts = append(callOpts, grpc.UseCompressor(c.compressorName))
	}
	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(callOpts...))
	if !c.token.IsZero() {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(tokenCredentials{
			token:  c.token,
			secure: !c.insecure,
		}))
	}
	if len(c.interceptors) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(c.interceptors...))
	}
	target := address
	if c.rb != nil {
		dialOpts = append(dialOpts, grpc.WithResolvers(c.rb))
		target = fmt.Sprintf("registry:///%s", address)
	}
	if c.balancerBuilder != nil {
		dialOpts = append(dialOpts, grpc.WithDefaultServiceConfig(
			fmt.Sprintf(`{"LoadBalancingPolicy": "%s"}`, c.balancerBuilder.Name())))
	}
	cc, err := grpc.Dial(target, dialOpts...)
	if err != nil {
		return nil, errs.TransportFailure(err)
	}
	c.cc = cc
	c.invoker = grpcInvoker{cc: cc}
	return c, nil
}

// FromEnv builds a client from the profile file and environment variables.
// Explicit options still win over ambient settings.
func FromEnv(opts ...option.Option[Client]) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	address, secure := config.ParseServerURL(cfg.ServerURL)
	ambient := make([]option.Option[Client], 0, 2+len(opts))
	if !secure {
		ambient = append(ambient, ClientWithInsecure())
	}
	if cfg.TokenID != "" || cfg.TokenSecret != "" {
		ambient = append(ambient, ClientWithToken(Token{ID: cfg.TokenID, Secret: cfg.TokenSecret}))
	}
	return NewClient(address, append(ambient, opts...)...)
}

func (c *Client) Close() error {
	if c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Map resolves (app, function) to its function id. The id is stable, so it
// is cached and concurrent lookups for the same function collapse into one
// control-plane call.
func (c *Client) Map(ctx context.Context, app, function string) (FunctionID, error) {
	key := app + "/" + function
	c.mutex.RLock()
	id, ok := c.mapped[key]
	c.mutex.RUnlock()
	if ok {
		return id, nil
	}
	val, err, _ := c.mapGroup.Do(key, func() (any, error) {
		var resp api.FunctionMapResponse
		err := c.invoker.Invoke(ctx, api.MethodFunctionMap, &api.FunctionMapRequest{
			AppName:      app,
			FunctionName: function,
		}, &resp)
		if err != nil {
			return nil, errs.FromRPC(err)
		}
		if resp.FunctionID == "" {
			return nil, errs.NotFound(app, function)
		}
		fid := FunctionID(resp.FunctionID)
		c.mutex.Lock()
		c.mapped[key] = fid
		c.mutex.Unlock()
		return fid, nil
	})
	if err != nil {
		return "", err
	}
	return val.(FunctionID), nil
}

// PutInput submits one payload to a mapped function and returns the handle
// correlating it with its output.
func (c *Client) PutInput(ctx context.Context, fid FunctionID, payload []byte) (*InvocationHandle, error) {
	if fid == "" {
		return nil, fmt.Errorf("%w: put input before map", errs.ErrSequence)
	}
	var resp api.FunctionPutInputsResponse
	err := c.invoker.Invoke(ctx, api.MethodFunctionPutInputs, &api.FunctionPutInputsRequest{
		FunctionID: string(fid),
		Payload:    payload,
		DataFormat: c.dataFormat,
	}, &resp)
	if err != nil {
		return nil, errs.FromRPC(err)
	}
	if resp.InvocationID == "" {
		return nil, errs.TransportFailure(errors.New("control plane returned no invocation id"))
	}
	return newHandle(resp.InvocationID, fid), nil
}

// GetOutput blocks until the invocation's output is available or timeout
// elapses. Each attempt is one request-response with a server-side wait
// window; pending answers loop until the deadline. A successful retrieval
// consumes the handle.
func (c *Client) GetOutput(ctx context.Context, h *InvocationHandle, timeout time.Duration) (InvocationResult, error) {
	if h == nil || h.State() < StateSubmitted {
		return InvocationResult{}, fmt.Errorf("%w: get output before put input", errs.ErrSequence)
	}
	if h.consumed() {
		return InvocationResult{}, errs.ErrHandleConsumed
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		wait := c.outputWait
		if deadline, ok := ctx.Deadline(); ok {
			if remain := time.Until(deadline); remain < wait {
				wait = remain
			}
		}
		if wait <= 0 {
			return InvocationResult{}, errs.ErrTimeout
		}
		var resp api.FunctionGetOutputsResponse
		err := c.invoker.Invoke(ctx, api.MethodFunctionGetOutputs, &api.FunctionGetOutputsRequest{
			InvocationID: h.id,
			WaitMillis:   wait.Milliseconds(),
		}, &resp)
		if err != nil {
			return InvocationResult{}, errs.FromRPC(err)
		}
		if !resp.Pending {
			if !h.consume(resp.OK) {
				return InvocationResult{}, errs.ErrHandleConsumed
			}
			return InvocationResult{
				OK:         resp.OK,
				Payload:    resp.Payload,
				ErrMessage: resp.ErrMessage,
			}, nil
		}
		select {
		case <-ctx.Done():
			return InvocationResult{}, errs.ErrTimeout
		case <-time.After(c.pollInterval):
		}
	}
}

// Call runs the whole chain for one invocation under the client's call
// timeout.
func (c *Client) Call(ctx context.Context, app, function string, payload []byte) (InvocationResult, error) {
	fid, err := c.Map(ctx, app, function)
	if err != nil {
		return InvocationResult{}, err
	}
	h, err := c.PutInput(ctx, fid, payload)
	if err != nil {
		return InvocationResult{}, err
	}
	return c.GetOutput(ctx, h, c.callTimeout)
}

// grpcInvoker is the production Invoker over the client connection. Dial
// options already carry codec, compressor and credentials.
type grpcInvoker struct {
	cc *grpc.ClientConn
}

func (g grpcInvoker) Invoke(ctx context.Context, method string, req, reply any) error {
	return g.cc.Invoke(ctx, method, req, reply)
}

// ClientWithInsecure -> option
func ClientWithInsecure() option.Option[Client] {
	return func(client *Client) {
		client.insecure = true
	}
}

// ClientWithToken -> option
func ClientWithToken(token Token) option.Option[Client] {
	return func(client *Client) {
		client.token = token
	}
}

// ClientWithRegistry -> option, resolve the address as a service name
func ClientWithRegistry(r registry.Registry, timeout time.Duration) option.Option[Client] {
	return func(client *Client) {
		client.rb = NewResolverBuilder(r, timeout)
	}
}

// ClientWithPickerBuilder -> option, register and select a balancing policy
func ClientWithPickerBuilder(name string, pickerBuilder base.PickerBuilder) option.Option[Client] {
	return func(client *Client) {
		builder := base.NewBalancerBuilder(name, pickerBuilder, base.Config{HealthCheck: true})
		balancer.Register(builder)
		client.balancerBuilder = builder
	}
}

// ClientWithCodec -> option, content subtype for control-plane bodies.
// The codec must be registered (efunc/serialize/...).
func ClientWithCodec(name string) option.Option[Client] {
	return func(client *Client) {
		client.codecName = name
	}
}

// ClientWithCompressor -> option, compressor name for call bodies.
// The compressor must be registered (efunc/compress/...).
func ClientWithCompressor(name string) option.Option[Client] {
	return func(client *Client) {
		client.compressorName = name
	}
}

// ClientWithDataFormat -> option, payload format code stamped on submissions
func ClientWithDataFormat(format uint8) option.Option[Client] {
	return func(client *Client) {
		client.dataFormat = format
	}
}

// ClientWithUnaryInterceptors -> option
func ClientWithUnaryInterceptors(interceptors ...grpc.UnaryClientInterceptor) option.Option[Client] {
	return func(client *Client) {
		client.interceptors = interceptors
	}
}

// ClientWithOutputWait -> option, server-side wait per GetOutputs attempt
func ClientWithOutputWait(wait time.Duration) option.Option[Client] {
	return func(client *Client) {
		client.outputWait = wait
	}
}

// ClientWithPollInterval -> option, pause between GetOutputs attempts
func ClientWithPollInterval(interval time.Duration) option.Option[Client] {
	return func(client *Client) {
		client.pollInterval = interval
	}
}

// ClientWithCallTimeout -> option, overall budget for Call
func ClientWithCallTimeout(timeout time.Duration) option.Option[Client] {
	return func(client *Client) {
		client.callTimeout = timeout
	}
}
