package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name probes ask about
const HealthServiceName = "socialbets.Worker"

// GRPCHealthServer serves the standard gRPC health protocol for orchestrator probes
type GRPCHealthServer struct {
	addr     string
	server   *grpc.Server
	health   *health.Server
	check    HealthFunc
	interval time.Duration
	stop     chan struct{}
}

// NewGRPCHealthServer creates a health server that re-runs check on every interval
func NewGRPCHealthServer(addr string, check HealthFunc, interval time.Duration) *GRPCHealthServer {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	return &GRPCHealthServer{
		addr:     addr,
		server:   server,
		health:   healthServer,
		check:    check,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start listens and begins probing dependencies
func (s *GRPCHealthServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.refresh(ctx)
	go s.probe(ctx)

	go func() {
		log.WithField("addr", s.addr).Info("gRPC health server listening")
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Error("gRPC health server stopped")
		}
	}()
	return nil
}

func (s *GRPCHealthServer) probe(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *GRPCHealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, time.Second)
		err := s.check(checkCtx)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(HealthServiceName, status)
}

// Shutdown reports NOT_SERVING to probes, then stops the server
func (s *GRPCHealthServer) Shutdown() {
	close(s.stop)
	s.health.Shutdown()
	s.server.GracefulStop()
}
