package grpc

import (
	"context"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	pb "github.com/dmitrijs2005/weatherdash/internal/proto"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// protectedMethods require a bearer token in the authorization metadata.
var protectedMethods = map[string]bool{
	pb.FullMethodWhoAmI: true,
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}

	authCtx, err := s.gate.Authenticate(ctx, header)
	if err != nil {
		reason, _ := auth.ReasonOf(err)
		s.logger.Debug(ctx, "call rejected by auth gate", "reason", string(reason), "method", info.FullMethod)
		s.metrics.ObserveGateRejection(string(reason))
		return nil, status.Error(codes.Unauthenticated, common.MessageUnauthenticated)
	}

	return handler(authCtx, req)
}
