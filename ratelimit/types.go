// Package ratelimit throttles outgoing control-plane calls so a hot loop in
// user code cannot hammer the platform. Limiters build unary client
// interceptors; rejected calls fail with a ResourceExhausted status before
// they reach the wire.
package ratelimit

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ClientLimiter interface {
	BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor
}

type rejectStrategy func(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error

var defaultRejection rejectStrategy = func(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return status.Errorf(codes.ResourceExhausted, "ratelimit: rejected %s", method)
}

// markLimitedRejection lets the call through with a marker so a downstream
// interceptor can pick a degraded path instead of failing outright.
var markLimitedRejection rejectStrategy = func(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = context.WithValue(ctx, limitedKey{}, true)
	return invoker(ctx, method, req, reply, cc, opts...)
}

type limitedKey struct{}

// Limited reports whether the call context was marked by a limiter.
func Limited(ctx context.Context) bool {
	marked, _ := ctx.Value(limitedKey{}).(bool)
	return marked
}
