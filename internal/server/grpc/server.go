// Package grpc serves the standard gRPC health service for orchestration
// probes.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/rechub/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc reports whether the server's dependencies are usable.
type CheckFunc func(ctx context.Context) error

type GRPCServer struct {
	address       string
	logger        logging.Logger
	health        *health.Server
	check         CheckFunc
	checkInterval time.Duration
	listen        func(network, address string) (net.Listener, error)
}

func NewGRPCServer(address string, l logging.Logger, check CheckFunc) *GRPCServer {
	return &GRPCServer{
		address:       address,
		logger:        l.With("module", "grpc_server"),
		health:        health.NewServer(),
		check:         check,
		checkInterval: 10 * time.Second,
		listen:        net.Listen,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := s.listen("tcp", s.address)
	if err != nil {
		return err
	}

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers service
	healthpb.RegisterHealthServer(srv, s.health)
	s.updateStatus(ctx)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

// watch re-runs the dependency check until ctx is done.
func (s *GRPCServer) watch(ctx context.Context) {
	t := time.NewTicker(s.checkInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.updateStatus(ctx)
		}
	}
}

func (s *GRPCServer) updateStatus(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.check(checkCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}
