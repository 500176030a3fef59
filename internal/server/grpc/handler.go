package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	pb "github.com/dmitrijs2005/weatherdash/internal/proto"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	"github.com/dmitrijs2005/weatherdash/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.Register(ctx, services.RegisterInput{
		FirstName: pb.String(req, pb.KeyFirstName),
		LastName:  pb.String(req, pb.KeyLastName),
		Email:     pb.String(req, pb.KeyEmail),
		Password:  pb.String(req, pb.KeyPassword),
	})
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			return nil, status.Error(codes.InvalidArgument, verrs.Error())
		case errors.Is(err, common.ErrValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, common.ErrAccountExists):
			return nil, status.Error(codes.AlreadyExists, common.MessageAccountExists)
		}
		return nil, status.Error(codes.Internal, common.MessageServerError)
	}

	return authResponse(common.MessageSignupSuccessful, res), nil
}

func (s *GRPCServer) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.accounts.Authenticate(ctx, pb.String(req, pb.KeyEmail), pb.String(req, pb.KeyPassword))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, status.Error(codes.Unauthenticated, common.MessageInvalidCredentials)
		}
		return nil, status.Error(codes.Internal, common.MessageServerError)
	}

	return authResponse("", res), nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.MessageUnauthenticated)
	}

	p, err := s.accounts.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			return nil, status.Error(codes.Unauthenticated, common.MessageUnauthenticated)
		}
		return nil, status.Error(codes.Internal, common.MessageServerError)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		pb.KeyUser: structpb.NewStructValue(profileStruct(p)),
	}}, nil
}

func authResponse(message string, res *services.AuthResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		pb.KeyToken: structpb.NewStringValue(res.Token),
		pb.KeyUser:  structpb.NewStructValue(profileStruct(res.User)),
	}
	if message != "" {
		fields[pb.KeyMessage] = structpb.NewStringValue(message)
	}
	return &structpb.Struct{Fields: fields}
}

func profileStruct(p *models.Profile) *structpb.Struct {
	return pb.Strings(map[string]string{
		pb.KeyID:        p.ID,
		pb.KeyFirstName: p.FirstName,
		pb.KeyLastName:  p.LastName,
		pb.KeyEmail:     p.Email,
	})
}
