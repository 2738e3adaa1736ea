package observability

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthServer serves the standard grpc.health.v1 service, with the overall
// status kept in sync with the readiness checks.
type GRPCHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   []DependencyCheck
	interval time.Duration
}

// NewGRPCHealthServer creates a health server that re-evaluates checks every interval.
func NewGRPCHealthServer(interval time.Duration, checks ...DependencyCheck) *GRPCHealthServer {
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &GRPCHealthServer{
		server:   s,
		health:   hs,
		checks:   checks,
		interval: interval,
	}
}

// Refresh runs the checks once and publishes the result.
func (g *GRPCHealthServer) Refresh(ctx context.Context) {
	_, ok := CheckDependencies(ctx, g.checks)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(serviceName, status)
}

// Serve accepts connections on lis until ctx is done or the listener fails.
func (g *GRPCHealthServer) Serve(ctx context.Context, lis net.Listener) error {
	g.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()

	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}
