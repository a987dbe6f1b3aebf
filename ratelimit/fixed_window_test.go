package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func passInvoker(cnt *int) grpc.UnaryInvoker {
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		*cnt++
		return nil
	}
}

func TestFixWindowLimiter(t *testing.T) {
	interceptor := NewFixWindowLimiter(time.Second*3, 1).BuildUnaryClientInterceptor()
	cnt := 0
	invoker := passInvoker(&cnt)

	err := interceptor(context.Background(), "/efunc.v1.ControlPlane/FunctionMap",
		nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	err = interceptor(context.Background(), "/efunc.v1.ControlPlane/FunctionMap",
		nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, 1, cnt)
}

func TestFixWindowLimiter_windowRolls(t *testing.T) {
	interceptor := NewFixWindowLimiter(time.Millisecond*100, 1).BuildUnaryClientInterceptor()
	cnt := 0
	invoker := passInvoker(&cnt)

	err := interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.NoError(t, err)
	err = interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.Error(t, err)

	time.Sleep(time.Millisecond * 150)
	err = interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
}

func TestSlideWindowLimiter(t *testing.T) {
	interceptor := NewSlideWindowLimiter(2, time.Second*10).BuildUnaryClientInterceptor()
	cnt := 0
	invoker := passInvoker(&cnt)

	require.NoError(t, interceptor(context.Background(), "m", nil, nil, nil, invoker))
	require.NoError(t, interceptor(context.Background(), "m", nil, nil, nil, invoker))
	err := interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, 2, cnt)
}

func TestTokenBucketLimiter(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Millisecond*50)
	defer func() { _ = limiter.Close() }()
	interceptor := limiter.BuildUnaryClientInterceptor()
	cnt := 0
	invoker := passInvoker(&cnt)

	// no token produced yet
	err := interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	time.Sleep(time.Millisecond * 80)
	err = interceptor(context.Background(), "m", nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestMarkLimitedRejection(t *testing.T) {
	interceptor := NewFixWindowLimiter(time.Second*3, 0).
		OnReject(markLimitedRejection).BuildUnaryClientInterceptor()
	var marked bool
	invoker := func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		marked = Limited(ctx)
		return nil
	}
	require.NoError(t, interceptor(context.Background(), "m", nil, nil, nil, invoker))
	assert.True(t, marked)
}
