package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/dmitrijs2005/teamspace/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// stub is the generated-client surface GRPCClient depends on; *rpc.Client
// implements it.
type stub interface {
	Ping(ctx context.Context, opts ...grpc.CallOption) (string, error)
	Mutate(ctx context.Context, p models.Payload, opts ...grpc.CallOption) (models.Entity, error)
	Fetch(ctx context.Context, workspaceID string, opts ...grpc.CallOption) (*models.Snapshot, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      stub
	accessToken string
	dialOpts    []grpc.DialOption
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults (insecure transport, token interceptor).
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, dialOpts: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	st, err := s.client.Ping(ctx)
	if err != nil {
		return s.mapError(err)
	}
	if st != rpc.PingOK {
		return &StatusError{Status: http.StatusServiceUnavailable, Message: "server status " + st}
	}
	return nil
}

func (s *GRPCClient) Apply(ctx context.Context, p models.Payload) (models.Entity, error) {
	e, err := s.client.Mutate(ctx, p)
	if err != nil {
		return nil, s.mapError(err)
	}
	return e, nil
}

func (s *GRPCClient) Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error) {
	snap, err := s.client.Fetch(ctx, workspaceID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return snap, nil
}

var httpStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusUnprocessableEntity,
	codes.FailedPrecondition: http.StatusConflict,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.NotFound:           http.StatusNotFound,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           http.StatusRequestTimeout,
	codes.Unimplemented:      http.StatusNotImplemented,
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &StatusError{Status: http.StatusGatewayTimeout, Message: err.Error()}
	}
	st, _ := status.FromError(err)
	code, ok := httpStatus[st.Code()]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &StatusError{Status: code, Message: st.Message()}
}
