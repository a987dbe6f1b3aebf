package emulator

import (
	"context"

	"google.golang.org/grpc"

	"efunc/api"
)

// controlPlane is the server half of the wire contract in api. The service
// descriptor below plays the role generated stubs normally would, so the
// emulator serves plain structs through whatever codec the client selected.
type controlPlane interface {
	FunctionMap(ctx context.Context, req *api.FunctionMapRequest) (*api.FunctionMapResponse, error)
	FunctionPutInputs(ctx context.Context, req *api.FunctionPutInputsRequest) (*api.FunctionPutInputsResponse, error)
	FunctionGetOutputs(ctx context.Context, req *api.FunctionGetOutputsRequest) (*api.FunctionGetOutputsResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*controlPlane)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FunctionMap",
			Handler:    functionMapHandler,
		},
		{
			MethodName: "FunctionPutInputs",
			Handler:    functionPutInputsHandler,
		},
		{
			MethodName: "FunctionGetOutputs",
			Handler:    functionGetOutputsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "efunc/api",
}

func functionMapHandler(srv any, ctx context.Context,
	dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(api.FunctionMapRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlPlane).FunctionMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: api.MethodFunctionMap,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlane).FunctionMap(ctx, req.(*api.FunctionMapRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func functionPutInputsHandler(srv any, ctx context.Context,
	dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(api.FunctionPutInputsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlPlane).FunctionPutInputs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: api.MethodFunctionPutInputs,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlane).FunctionPutInputs(ctx, req.(*api.FunctionPutInputsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func functionGetOutputsHandler(srv any, ctx context.Context,
	dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(api.FunctionGetOutputsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlPlane).FunctionGetOutputs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: api.MethodFunctionGetOutputs,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controlPlane).FunctionGetOutputs(ctx, req.(*api.FunctionGetOutputsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
