package grpcserver

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/orders"
	"foodDelivery/repository"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// NewServer builds a gRPC server with the tracking and health services and the
// session interceptor installed. Track and the health checks are public.
func NewServer(sessions *auth.Sessions, svc *orders.Service, admins repository.AdminRepositoryI) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(sessions,
		healthCheckMethod, healthWatchMethod, trackMethod)))

	RegisterOrderTrackingServer(srv, &TrackingServer{Orders: svc, Admins: admins})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(trackingServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC listens on addr and serves in the background. The returned function
// stops the server gracefully, forcing a stop when ctx expires first.
func StartGRPC(addr string, srv *grpc.Server) (func(context.Context) error, error) {
	if addr == "" {
		addr = ":50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(lis); err != nil {
			logrus.WithError(err).Error("grpc serve")
		}
	}()
	logrus.WithField("addr", lis.Addr().String()).Info("grpc listening")

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
