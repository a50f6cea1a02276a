package interceptors

import (
	"context"
	"time"

	"github.com/stateset/commerce-engine/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MetricsInterceptor records request duration per method and status code.
func MetricsInterceptor(metrics *observability.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)
		metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod, st.Code().String()).Observe(time.Since(start).Seconds())
		return resp, err
	}
}
