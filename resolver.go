package efunc

import (
	"context"
	"time"

	"google.golang.org/grpc/resolver"

	"efunc/registry"
)

type registryResolverBuilder struct {
	r       registry.Registry
	timeout time.Duration
}

// NewResolverBuilder builds a resolver that discovers control-plane
// endpoints through a registry, for self-hosted deployments.
func NewResolverBuilder(r registry.Registry, timeout time.Duration) resolver.Builder {
	return &registryResolverBuilder{
		r:       r,
		timeout: timeout,
	}
}

func (b *registryResolverBuilder) Build(target resolver.Target,
	cc resolver.ClientConn, opts resolver.BuildOptions) (resolver.Resolver, error) {
	res := &registryResolver{
		target:   target,
		cc:       cc,
		registry: b.r,
		close:    make(chan struct{}, 1),
		timeout:  b.timeout,
	}
	res.resolve()
	go res.watch()
	return res, nil
}

// Scheme is fixed; targets look like registry:///<service-name>.
func (b *registryResolverBuilder) Scheme() string {
	return "registry"
}

type registryResolver struct {
	target   resolver.Target
	cc       resolver.ClientConn
	registry registry.Registry
	timeout  time.Duration
	close    chan struct{}
}

func (r *registryResolver) ResolveNow(options resolver.ResolveNowOptions) {
	r.resolve()
}

func (r *registryResolver) resolve() {
	serviceName := r.target.Endpoint
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	instances, err := r.registry.ListServices(ctx, serviceName)
	cancel()
	if err != nil {
		r.cc.ReportError(err)
		return
	}
	address := make([]resolver.Address, 0, len(instances))
	for _, ins := range instances {
		address = append(address, resolver.Address{
			Addr:       ins.Address,
			ServerName: ins.Name,
		})
	}
	err = r.cc.UpdateState(resolver.State{
		Addresses: address,
	})
	if err != nil {
		r.cc.ReportError(err)
	}
}

func (r *registryResolver) watch() {
	events, err := r.registry.Subscribe(r.target.Endpoint)
	if err != nil {
		r.cc.ReportError(err)
		return
	}
	for {
		select {
		case <-events:
			// refresh the whole list on any change instead of patching
			// per-event
			r.resolve()
		case <-r.close:
			return
		}
	}
}

func (r *registryResolver) Close() {
	r.close <- struct{}{}
}
