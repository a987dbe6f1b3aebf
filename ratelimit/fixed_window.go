package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
)

var _ ClientLimiter = (*FixWindowLimiter)(nil)

// FixWindowLimiter allows at most maxRate calls per interval.
type FixWindowLimiter struct {
	interval int64
	maxRate  int64
	cnt      int64
	onReject rejectStrategy
	// nanosecond timestamp of the current window's start
	windowStart int64
}

func NewFixWindowLimiter(interval time.Duration, maxRate int64) *FixWindowLimiter {
	return &FixWindowLimiter{
		interval:    interval.Nanoseconds(),
		maxRate:     maxRate,
		onReject:    defaultRejection,
		windowStart: time.Now().UnixNano(),
	}
}

func (l *FixWindowLimiter) OnReject(onReject rejectStrategy) *FixWindowLimiter {
	l.onReject = onReject
	return l
}

func (l *FixWindowLimiter) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		current := time.Now().UnixNano()
		window := atomic.LoadInt64(&l.windowStart)
		if window+l.interval < current {
			// a CAS loss means another goroutine already rolled the window,
			// losing is fine
			if atomic.CompareAndSwapInt64(&l.windowStart, window, current) {
				atomic.StoreInt64(&l.cnt, 0)
			}
		}
		cnt := atomic.AddInt64(&l.cnt, 1)
		if cnt > l.maxRate {
			return l.onReject(ctx, method, req, reply, cc, invoker, opts...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
