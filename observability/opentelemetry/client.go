package opentelemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"efunc/observability"
)

type ClientInterceptorBuilder struct {
	port       int
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func NewClientInterceptorBuilder(port int, tracer trace.Tracer,
	propagator propagation.TextMapPropagator) *ClientInterceptorBuilder {
	return &ClientInterceptorBuilder{port: port, tracer: tracer, propagator: propagator}
}

func (b *ClientInterceptorBuilder) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	address := observability.GetOutboundIP()
	if b.port != 0 {
		address = fmt.Sprintf("%s:%d", address, b.port)
	}
	attrs := []attribute.KeyValue{
		semconv.RPCSystemKey.String("grpc"),
		attribute.Key("rpc.grpc.kind").String("unary"),
		attribute.Key("rpc.component").String("client"),
		attribute.Key("net.peer.source").String(address),
	}
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) (err error) {
		ctx, span := b.tracer.Start(ctx, method,
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindClient))
		defer func() {
			if err != nil {
				span.SetStatus(codes.Error, "client failed")
				span.RecordError(err)
			} else {
				span.SetStatus(codes.Ok, "OK")
			}
			span.End()
		}()
		// hand the trace context to the control plane via metadata
		ctx = b.inject(ctx)
		err = invoker(ctx, method, req, reply, cc, opts...)
		return
	}
}

func (b *ClientInterceptorBuilder) inject(ctx context.Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(map[string]string{})
	}
	b.propagator.Inject(ctx, propagation.HeaderCarrier(md))
	return metadata.NewOutgoingContext(ctx, md)
}
