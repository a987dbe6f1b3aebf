package ratelimit

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
)

var _ ClientLimiter = (*LeakyBucketLimiter)(nil)

// LeakyBucketLimiter paces calls to one per interval. Callers queue on the
// ticker instead of being rejected, so this one smooths bursts rather than
// dropping them.
type LeakyBucketLimiter struct {
	close    chan struct{}
	producer *time.Ticker
}

func NewLeakyBucketLimiter(interval time.Duration) *LeakyBucketLimiter {
	return &LeakyBucketLimiter{
		close:    make(chan struct{}),
		producer: time.NewTicker(interval),
	}
}

func (l *LeakyBucketLimiter) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.close:
			return errors.New("ratelimit: limiter closed")
		case <-l.producer.C:
			return invoker(ctx, method, req, reply, cc, opts...)
		}
	}
}

func (l *LeakyBucketLimiter) Close() error {
	close(l.close)
	l.producer.Stop()
	return nil
}
