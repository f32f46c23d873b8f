package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// GRPCServer is the standard gRPC health service with its status driven by
// the database readiness probe. Status is published for the whole server ("")
// and for serviceName.
type GRPCServer struct {
	*health.Server
	readiness readinessChecker
}

// NewGRPCServer creates the health service wrapper.
func NewGRPCServer(r readinessChecker) *GRPCServer {
	return &GRPCServer{Server: health.NewServer(), readiness: r}
}

// Register attaches the health service to gs.
func (s *GRPCServer) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s)
}

// Check probes readiness before answering, so the reply is never stale.
func (s *GRPCServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	s.Refresh(ctx)
	return s.Server.Check(ctx, req)
}

// Refresh runs the readiness probe and publishes the result.
func (s *GRPCServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.readiness.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.Logger().Warn("readiness probe failed", zap.Error(err))
	}
	obs.SetReady(status == healthpb.HealthCheckResponse_SERVING)
	s.SetServingStatus("", status)
	s.SetServingStatus(serviceName, status)
	return status
}

// Run refreshes the status every interval until ctx ends, keeping Watch
// streams current. On return every service is reported NOT_SERVING.
func (s *GRPCServer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		s.Refresh(probeCtx)
		cancel()
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
