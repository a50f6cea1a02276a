// Package grpc exposes the commerce engine's gRPC surface: a standard
// grpc_health_v1.Health service behind an interceptor chain (recovery,
// logging, tracing, metrics); no business RPCs are registered. Operators can point the usual gRPC health-checking tooling
// (grpc_health_probe, Kubernetes gRPC probes) at this process.
package grpc

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/handler/grpc/interceptors"
	"github.com/stateset/commerce-engine/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer builds a grpc.Server with the standard interceptor chain
// and a health service set to SERVING at construction; the caller drives
// it afterwards via the returned *health.Server (SetNotServing at
// shutdown). It does not track the checks behind the HTTP /ready endpoint.
func NewServer(logger zerolog.Logger, metrics *observability.Metrics) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(logger),
			interceptors.LoggingInterceptor(logger),
			interceptors.TracingInterceptor(),
			interceptors.MetricsInterceptor(metrics),
		),
	)

	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	return srv, healthSrv
}

// SetNotServing marks the health service not serving, for use during
// graceful shutdown so load balancers stop routing new RPCs before the
// listener closes.
func SetNotServing(ctx context.Context, healthSrv *health.Server) {
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}
