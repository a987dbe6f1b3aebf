package ratelimit

import (
	"context"
	_ "embed"
	"time"

	"github.com/go-redis/redis/v9"
	"google.golang.org/grpc"
)

//go:embed lua/slide_window.lua
var luaSlideWindow string

var _ ClientLimiter = (*RedisSlideWindowLimiter)(nil)

// RedisSlideWindowLimiter shares one sliding window between every process
// using the same key, so a fleet of clients respects a platform-wide budget.
type RedisSlideWindowLimiter struct {
	key     string
	maxRate int
	// window size in milliseconds
	interval int64
	onReject rejectStrategy
	client   redis.Cmdable
}

func NewRedisSlideWindowLimiter(client redis.Cmdable, key string,
	maxRate int, interval time.Duration) *RedisSlideWindowLimiter {
	return &RedisSlideWindowLimiter{
		client:   client,
		key:      key,
		maxRate:  maxRate,
		interval: interval.Milliseconds(),
		onReject: defaultRejection,
	}
}

func (l *RedisSlideWindowLimiter) OnReject(onReject rejectStrategy) *RedisSlideWindowLimiter {
	l.onReject = onReject
	return l
}

func (l *RedisSlideWindowLimiter) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		limited, err := l.limit(ctx)
		if err != nil {
			// redis being down tells us nothing about the budget; failing
			// the call keeps the budget honest
			return err
		}
		if limited {
			return l.onReject(ctx, method, req, reply, cc, invoker, opts...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (l *RedisSlideWindowLimiter) limit(ctx context.Context) (bool, error) {
	now := time.Now()
	return l.client.Eval(ctx, luaSlideWindow,
		[]string{l.key}, l.maxRate, l.interval, now.UnixMilli()).Bool()
}
