package loadbalance

import (
	"google.golang.org/grpc/balancer"
	"google.golang.org/grpc/resolver"
)

// Filter decides whether a candidate endpoint may serve a call.
type Filter func(info balancer.PickInfo, address resolver.Address) bool

type GroupFilterBuilder struct{}

// Build returns a filter keeping only endpoints whose group attribute matches
// the group carried in the call context.
func (g GroupFilterBuilder) Build() Filter {
	return func(info balancer.PickInfo, addr resolver.Address) bool {
		input := info.Ctx.Value("group")
		if input == nil {
			// no group requested, every endpoint qualifies
			return true
		}
		in, _ := input.(string)
		target, _ := addr.Attributes.Value("group").(string)
		return target == in
	}
}
