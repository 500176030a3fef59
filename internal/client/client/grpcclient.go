// Package client talks to the weatherdash account service over gRPC.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	pb "github.com/dmitrijs2005/weatherdash/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const callTimeout = 15 * time.Second

// Profile is the public account view returned by the server.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Session is a token together with the account it belongs to.
type Session struct {
	Token   string
	Profile Profile
	Message string
}

type GRPCClient struct {
	conn   *grpc.ClientConn
	client pb.AccountServiceClient
	token  string
}

func withToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.token != "" {
		ctx = withToken(ctx, s.token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewAccountClient connects lazily to endpoint (host:port).
func NewAccountClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.tokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewAccountServiceClient(conn)
	return c, nil
}

// SetToken sets the bearer token sent with every call.
func (s *GRPCClient) SetToken(token string) {
	s.token = token
}

func (s *GRPCClient) Register(ctx context.Context, firstName, lastName, email string, password []byte) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := pb.Strings(map[string]string{
		pb.KeyFirstName: firstName,
		pb.KeyLastName:  lastName,
		pb.KeyEmail:     email,
		pb.KeyPassword:  string(password),
	})

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.session(resp), nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := pb.Strings(map[string]string{
		pb.KeyEmail:    email,
		pb.KeyPassword: string(password),
	})

	resp, err := s.client.Authenticate(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.session(resp), nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := s.client.WhoAmI(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}
	p := profile(pb.Struct(resp, pb.KeyUser))
	return &p, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// session stores the returned token for subsequent calls.
func (s *GRPCClient) session(resp *structpb.Struct) *Session {
	out := &Session{
		Token:   pb.String(resp, pb.KeyToken),
		Profile: profile(pb.Struct(resp, pb.KeyUser)),
		Message: pb.String(resp, pb.KeyMessage),
	}
	s.token = out.Token
	return out
}

func profile(u *structpb.Struct) Profile {
	return Profile{
		ID:        pb.String(u, pb.KeyID),
		FirstName: pb.String(u, pb.KeyFirstName),
		LastName:  pb.String(u, pb.KeyLastName),
		Email:     pb.String(u, pb.KeyEmail),
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.MessageInvalidCredentials {
			return ErrInvalidCredentials
		}
		return ErrUnauthenticated
	case codes.AlreadyExists:
		return ErrAccountExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
