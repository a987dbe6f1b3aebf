package ratelimit

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
)

var _ ClientLimiter = (*TokenBucketLimiter)(nil)

// TokenBucketLimiter produces one token per interval, buffering at most
// buffer tokens. A call without a token available is rejected immediately.
type TokenBucketLimiter struct {
	tokens chan struct{}
	close  chan struct{}
}

// NewTokenBucketLimiter -> buffer is the bucket capacity, interval how often
// a token is produced.
func NewTokenBucketLimiter(buffer int, interval time.Duration) *TokenBucketLimiter {
	tokens := make(chan struct{}, buffer)
	closeCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-closeCh:
				return
			case <-ticker.C:
				select {
				case tokens <- struct{}{}:
				default:
					// bucket full, drop the token
				}
			}
		}
	}()
	return &TokenBucketLimiter{
		tokens: tokens,
		close:  closeCh,
	}
}

func (l *TokenBucketLimiter) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.close:
			// a closed limiter means the client is shutting down
			return errors.New("ratelimit: limiter closed")
		case <-l.tokens:
			return invoker(ctx, method, req, reply, cc, opts...)
		default:
		}
		return defaultRejection(ctx, method, req, reply, cc, invoker, opts...)
	}
}

// Close stops the producer. Calling it twice is the caller's problem.
func (l *TokenBucketLimiter) Close() error {
	close(l.close)
	return nil
}
