package health

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/minimart/storefront/internal/logging"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probes can ask for besides the empty overall name.
const ServiceName = "minimart.storefront"

// GRPCServer serves grpc.health.v1.Health, refreshing the serving status from
// a Checker on a fixed interval.
type GRPCServer struct {
	address  string
	checker  *Checker
	interval time.Duration
	logger   logging.Logger
}

func NewGRPCServer(address string, checker *Checker, interval time.Duration, l logging.Logger) *GRPCServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GRPCServer{
		address:  address,
		checker:  checker,
		interval: interval,
		logger:   l.With("module", "grpc_health"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on an existing listener until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s.update(ctx, hs)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC health server...")
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.update(ctx, hs)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *GRPCServer) update(ctx context.Context, hs *grpchealth.Server) {
	checkCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if !s.checker.Ready(checkCtx) {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}
