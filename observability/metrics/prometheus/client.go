package prometheus

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"efunc/observability"
)

// ClientInterceptorBuilder builds a unary client interceptor recording
// response time, in-flight calls and failures per control-plane method.
type ClientInterceptorBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string

	// Port distinguishes multiple clients inside one process; usually empty.
	Port string
}

func (b *ClientInterceptorBuilder) BuildUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	address := observability.GetOutboundIP()
	if b.Port != "" {
		address = address + ":" + b.Port
	}
	summaryVec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: b.Namespace,
		Subsystem: b.Subsystem,
		Help:      b.Help,
		Name:      b.Name + "_response",
		ConstLabels: map[string]string{
			"address": address,
			"kind":    "client",
		},
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.9:   0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"method", "code"})

	errCntVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: b.Namespace,
		Subsystem: b.Subsystem,
		Name:      b.Name + "_error_cnt",
		Help:      b.Help,
		ConstLabels: map[string]string{
			"address": address,
			"kind":    "client",
		},
	}, []string{"method"})

	activeCntVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: b.Namespace,
		Subsystem: b.Subsystem,
		Name:      b.Name + "_active_req_cnt",
		Help:      b.Help,
		ConstLabels: map[string]string{
			"address": address,
			"kind":    "client",
		},
	}, []string{"method"})
	prometheus.MustRegister(summaryVec, errCntVec, activeCntVec)
	return func(ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) (err error) {
		m := shortMethodName(method)
		active := activeCntVec.WithLabelValues(m)
		active.Add(1)
		startTime := time.Now()
		defer func() {
			active.Sub(1)
			duration := float64(time.Since(startTime).Milliseconds())
			if err != nil {
				errCntVec.WithLabelValues(m).Add(1)
			}
			st, _ := status.FromError(err)
			summaryVec.WithLabelValues(m, st.Code().String()).Observe(duration)
		}()
		err = invoker(ctx, method, req, reply, cc, opts...)
		return
	}
}

func shortMethodName(fullMethodName string) string {
	// /efunc.v1.ControlPlane/FunctionMap -> FunctionMap
	if i := strings.LastIndex(fullMethodName, "/"); i >= 0 {
		return fullMethodName[i+1:]
	}
	return fullMethodName
}
