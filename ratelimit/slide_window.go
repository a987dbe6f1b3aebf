package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
)

var _ ClientLimiter = (*SlideWindowLimiter)(nil)

// SlideWindowLimiter allows at most maxRate calls inside any interval-sized
// window ending now. Timestamps of admitted calls are kept in a queue and
// expired lazily.
type SlideWindowLimiter struct {
	maxRate  int
	queue    *list.List
	mutex    sync.Mutex
	interval time.Duration
	onReject rejectStrategy
}

func NewSlideWindowLimiter(maxRate int, interval time.Duration) *SlideWindowLimiter {
	return &SlideWindowLimiter{
		maxRate:  maxRate,
		interval: interval,
		queue:    list.New(),
		onReject: defaultRejection,
	}
}

func (l *SlideWindowLimiter) OnReject(onReject rejectStrategy) *SlideWindowLimiter {
	l.onReject = onReject
	return l
}

func (l *SlideWindowLimiter) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		current := time.Now()
		l.mutex.Lock()
		// fast path, the queue has room without expiring anything
		if l.queue.Len() < l.maxRate {
			l.queue.PushBack(current)
			l.mutex.Unlock()
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		windowStart := current.Add(-l.interval)
		front := l.queue.Front()
		for front != nil && front.Value.(time.Time).Before(windowStart) {
			l.queue.Remove(front)
			front = l.queue.Front()
		}
		if l.queue.Len() >= l.maxRate {
			l.mutex.Unlock()
			return l.onReject(ctx, method, req, reply, cc, invoker, opts...)
		}
		l.queue.PushBack(current)
		l.mutex.Unlock()
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
