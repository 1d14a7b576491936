// Package grpc exposes the reconciler's liveness over the standard gRPC
// health protocol.
package grpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const Service = "storefront.StockReconciler"

type Server struct {
	log    *slog.Logger
	gs     *grpc.Server
	health *health.Server
}

func NewServer(log *slog.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{log: log, gs: gs, health: hs}
}

// Run starts serving on addr in the background.
func (s *Server) Run(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	go func() {
		if err := s.gs.Serve(lis); err != nil {
			s.log.Error("grpc server stopped", "err", err)
		}
	}()
	s.log.Info("grpc health listening", "addr", lis.Addr().String())
	return nil
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(Service, status)
	s.health.SetServingStatus("", status)
}

// Close marks the server not serving and drains in-flight RPCs.
func (s *Server) Close() error {
	s.health.Shutdown()
	s.gs.GracefulStop()
	return nil
}
