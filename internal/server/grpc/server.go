// Package grpc exposes the account service over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	pb "github.com/dmitrijs2005/weatherdash/internal/proto"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/observability"
	"github.com/dmitrijs2005/weatherdash/internal/server/services"
	"google.golang.org/grpc"
)

// Accounts is implemented by *services.AccountService.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// GateMetrics is implemented by *observability.Metrics.
type GateMetrics interface {
	ObserveGateRejection(reason string)
}

type GRPCServer struct {
	address  string
	accounts Accounts
	gate     *auth.Gate
	metrics  GateMetrics
	logger   logging.Logger
}

// NewGRPCServer returns a server for accounts. metrics may be nil.
func NewGRPCServer(address string, l logging.Logger, accounts Accounts, gate *auth.Gate, metrics GateMetrics) *GRPCServer {
	if metrics == nil {
		metrics = (*observability.Metrics)(nil)
	}
	return &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		gate:     gate,
		metrics:  metrics,
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

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.authInterceptor))
	pb.RegisterAccountServiceServer(srv, s)

	served := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-served:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	err := srv.Serve(lis)
	close(served)
	<-stopped
	return err
}
