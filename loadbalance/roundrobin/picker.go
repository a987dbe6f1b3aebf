package roundrobin

import (
	"sync"

	"google.golang.org/grpc/balancer"
	"google.golang.org/grpc/balancer/base"
	"google.golang.org/grpc/resolver"

	"efunc/loadbalance"
)

const RoundRobin = "ROUND_ROBIN"

var (
	_ balancer.Picker    = (*Picker)(nil)
	_ base.PickerBuilder = (*PickerBuilder)(nil)
)

type Picker struct {
	cnt    uint64
	conns  []conn
	mutex  sync.Mutex
	filter loadbalance.Filter
}

func (p *Picker) Pick(info balancer.PickInfo) (balancer.PickResult, error) {
	// Atomics instead of the lock would only give a rough rotation once the
	// filter drops candidates, and a rough rotation is just random with
	// extra steps.
	p.mutex.Lock()
	defer p.mutex.Unlock()
	candidates := make([]conn, 0, len(p.conns))
	for _, c := range p.conns {
		if !p.filter(info, c.address) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return balancer.PickResult{}, balancer.ErrNoSubConnAvailable
	}
	index := p.cnt % uint64(len(candidates))
	p.cnt += 1
	return balancer.PickResult{
		SubConn: candidates[index].SubConn,
		Done:    func(info balancer.DoneInfo) {},
	}, nil
}

type PickerBuilder struct {
	Filter loadbalance.Filter
}

func (b *PickerBuilder) Build(info base.PickerBuildInfo) balancer.Picker {
	conns := make([]conn, 0, len(info.ReadySCs))
	for con, conInfo := range info.ReadySCs {
		conns = append(conns, conn{
			SubConn: con,
			address: conInfo.Address,
		})
	}
	filter := b.Filter
	if filter == nil {
		filter = func(info balancer.PickInfo, address resolver.Address) bool {
			return true
		}
	}
	return &Picker{
		conns:  conns,
		filter: filter,
	}
}

func (b *PickerBuilder) Name() string {
	return RoundRobin
}

type conn struct {
	balancer.SubConn
	address resolver.Address
}
