package efunc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"efunc/api"
	"efunc/internal/errs"
)

func testClient(invoker Invoker) *Client {
	return &Client{
		invoker:      invoker,
		dataFormat:   api.FormatRaw,
		outputWait:   time.Millisecond * 20,
		pollInterval: time.Millisecond,
		callTimeout:  time.Second,
		mapped:       make(map[string]FunctionID, 8),
	}
}

func TestClient_Map(t *testing.T) {
	testCases := []struct {
		name    string
		mock    func(ctrl *gomock.Controller) Invoker
		app     string
		fn      string
		want    FunctionID
		wantErr error
	}{
		{
			name: "resolved",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
					&api.FunctionMapRequest{AppName: "orders", FunctionName: "total"},
					gomock.Any()).DoAndReturn(
					func(ctx context.Context, method string, req, reply any) error {
						reply.(*api.FunctionMapResponse).FunctionID = "fu-000001"
						return nil
					})
				return inv
			},
			app:  "orders",
			fn:   "total",
			want: FunctionID("fu-000001"),
		},
		{
			name: "not found",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
					gomock.Any(), gomock.Any()).
					Return(status.Error(codes.NotFound, "no function orders/nope"))
				return inv
			},
			app:     "orders",
			fn:      "nope",
			wantErr: errs.ErrNotFound,
		},
		{
			name: "bad credentials",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
					gomock.Any(), gomock.Any()).
					Return(status.Error(codes.Unauthenticated, "token rejected"))
				return inv
			},
			app:     "orders",
			fn:      "total",
			wantErr: errs.ErrAuth,
		},
		{
			name: "empty id counts as missing",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
					gomock.Any(), gomock.Any()).Return(nil)
				return inv
			},
			app:     "orders",
			fn:      "total",
			wantErr: errs.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			c := testClient(tc.mock(ctrl))
			got, err := c.Map(context.Background(), tc.app, tc.fn)
			assert.ErrorIs(t, err, tc.wantErr)
			if err != nil {
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClient_Map_cached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	inv := NewMockInvoker(ctrl)
	// one wire call no matter how often the same function is mapped
	inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
		gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, method string, req, reply any) error {
			reply.(*api.FunctionMapResponse).FunctionID = "fu-000042"
			return nil
		}).Times(1)
	c := testClient(inv)

	first, err := c.Map(context.Background(), "orders", "total")
	require.NoError(t, err)
	second, err := c.Map(context.Background(), "orders", "total")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClient_PutInput(t *testing.T) {
	testCases := []struct {
		name    string
		mock    func(ctrl *gomock.Controller) Invoker
		fid     FunctionID
		wantErr error
	}{
		{
			name: "submitted",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionPutInputs,
					&api.FunctionPutInputsRequest{
						FunctionID: "fu-000001",
						Payload:    []byte("payload"),
						DataFormat: api.FormatRaw,
					},
					gomock.Any()).DoAndReturn(
					func(ctx context.Context, method string, req, reply any) error {
						reply.(*api.FunctionPutInputsResponse).InvocationID = "in-000001"
						return nil
					})
				return inv
			},
			fid: FunctionID("fu-000001"),
		},
		{
			name: "before map",
			mock: func(ctrl *gomock.Controller) Invoker {
				return NewMockInvoker(ctrl)
			},
			fid:     FunctionID(""),
			wantErr: errs.ErrSequence,
		},
		{
			name: "connection down",
			mock: func(ctrl *gomock.Controller) Invoker {
				inv := NewMockInvoker(ctrl)
				inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionPutInputs,
					gomock.Any(), gomock.Any()).
					Return(status.Error(codes.Unavailable, "connection refused"))
				return inv
			},
			fid:     FunctionID("fu-000001"),
			wantErr: errs.ErrTransport,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			c := testClient(tc.mock(ctrl))
			h, err := c.PutInput(context.Background(), tc.fid, []byte("payload"))
			assert.ErrorIs(t, err, tc.wantErr)
			if err != nil {
				return
			}
			assert.Equal(t, "in-000001", h.ID())
			assert.Equal(t, StateSubmitted, h.State())
		})
	}
}

func TestClient_GetOutput(t *testing.T) {
	t.Run("pending then ready", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inv := NewMockInvoker(ctrl)
		pending := inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
			gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, method string, req, reply any) error {
				reply.(*api.FunctionGetOutputsResponse).Pending = true
				return nil
			})
		ready := inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
			gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, method string, req, reply any) error {
				resp := reply.(*api.FunctionGetOutputsResponse)
				resp.OK = true
				resp.Payload = []byte("result")
				return nil
			})
		gomock.InOrder(pending, ready)
		c := testClient(inv)
		h := newHandle("in-000001", "fu-000001")

		res, err := c.GetOutput(context.Background(), h, time.Second)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Equal(t, []byte("result"), res.Payload)
		assert.Equal(t, StateCompleted, h.State())
	})

	t.Run("handle single use", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inv := NewMockInvoker(ctrl)
		inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
			gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, method string, req, reply any) error {
				reply.(*api.FunctionGetOutputsResponse).OK = true
				return nil
			}).Times(1)
		c := testClient(inv)
		h := newHandle("in-000001", "fu-000001")

		_, err := c.GetOutput(context.Background(), h, time.Second)
		require.NoError(t, err)
		_, err = c.GetOutput(context.Background(), h, time.Second)
		assert.ErrorIs(t, err, errs.ErrHandleConsumed)
	})

	t.Run("timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inv := NewMockInvoker(ctrl)
		inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
			gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, method string, req, reply any) error {
				reply.(*api.FunctionGetOutputsResponse).Pending = true
				return nil
			}).AnyTimes()
		c := testClient(inv)
		h := newHandle("in-000001", "fu-000001")

		_, err := c.GetOutput(context.Background(), h, time.Millisecond*30)
		assert.ErrorIs(t, err, errs.ErrTimeout)
		// a timed-out handle stays alive for a later attempt
		assert.Equal(t, StateSubmitted, h.State())
	})

	t.Run("before put input", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		c := testClient(NewMockInvoker(ctrl))

		_, err := c.GetOutput(context.Background(), nil, time.Second)
		assert.ErrorIs(t, err, errs.ErrSequence)
	})

	t.Run("remote failure is a result", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		inv := NewMockInvoker(ctrl)
		inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
			gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, method string, req, reply any) error {
				resp := reply.(*api.FunctionGetOutputsResponse)
				resp.OK = false
				resp.ErrMessage = "division by zero"
				return nil
			})
		c := testClient(inv)
		h := newHandle("in-000001", "fu-000001")

		res, err := c.GetOutput(context.Background(), h, time.Second)
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.EqualError(t, res.Err(), "efunc: remote function failed: division by zero")
		assert.Equal(t, StateFailed, h.State())
	})
}

func TestClient_Call(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	inv := NewMockInvoker(ctrl)
	mapped := inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
		gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, method string, req, reply any) error {
			reply.(*api.FunctionMapResponse).FunctionID = "fu-000001"
			return nil
		})
	put := inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionPutInputs,
		gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, method string, req, reply any) error {
			reply.(*api.FunctionPutInputsResponse).InvocationID = "in-000001"
			return nil
		})
	get := inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionGetOutputs,
		gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, method string, req, reply any) error {
			resp := reply.(*api.FunctionGetOutputsResponse)
			resp.OK = true
			resp.Payload = []byte("out")
			return nil
		})
	gomock.InOrder(mapped, put, get)
	c := testClient(inv)

	res, err := c.Call(context.Background(), "orders", "total", []byte("in"))
	require.NoError(t, err)
	assert.Equal(t, []byte("out"), res.Payload)
}

func TestClass_Call(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	inv := NewMockInvoker(ctrl)
	inv.EXPECT().Invoke(gomock.Any(), api.MethodFunctionMap,
		&api.FunctionMapRequest{AppName: "orders", FunctionName: "Cart.add"},
		gomock.Any()).DoAndReturn(
		func(ctx context.Context, method string, req, reply any) error {
			reply.(*api.FunctionMapResponse).FunctionID = "fu-000007"
			return nil
		})
	c := testClient(inv)

	fid, err := c.Class("orders", "Cart").Method(context.Background(), "add")
	require.NoError(t, err)
	assert.Equal(t, FunctionID("fu-000007"), fid)
}
