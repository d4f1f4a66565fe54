package rpc

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "teamspace.v1.SyncService"

const (
	MethodPing           = "Ping"
	MethodFetchWorkspace = "FetchWorkspace"
)

// PingOK is the status a healthy server answers Ping with.
const PingOK = "OK"

var methodNames = map[models.Kind]string{
	models.KindWorkspaceCreate:  "CreateWorkspace",
	models.KindWorkspaceUpdate:  "UpdateWorkspace",
	models.KindWorkspaceDelete:  "DeleteWorkspace",
	models.KindProjectCreate:    "CreateProject",
	models.KindProjectUpdate:    "UpdateProject",
	models.KindProjectDelete:    "DeleteProject",
	models.KindTaskCreate:       "CreateTask",
	models.KindTaskUpdate:       "UpdateTask",
	models.KindTaskDelete:       "DeleteTask",
	models.KindMessageSend:      "SendMessage",
	models.KindMessageUpdate:    "UpdateMessage",
	models.KindMessageDelete:    "DeleteMessage",
	models.KindCommentAdd:       "AddComment",
	models.KindCommentUpdate:    "UpdateComment",
	models.KindCommentDelete:    "DeleteComment",
	models.KindMembershipCreate: "CreateMembership",
	models.KindMembershipUpdate: "UpdateMembership",
	models.KindMembershipDelete: "DeleteMembership",
}

// MethodName is the RPC that replays kind k.
func MethodName(k models.Kind) string { return methodNames[k] }

// FullMethod is the path gRPC routes and interceptors see.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// Handler is implemented by the server.
type Handler interface {
	Ping(ctx context.Context) error
	// Mutate applies p and returns the stored entity, or nil for deletes.
	Mutate(ctx context.Context, p models.Payload) (models.Entity, error)
	Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error)
}

func unary(ctx context.Context, srv any, method string, req any, interceptor grpc.UnaryServerInterceptor, call grpc.UnaryHandler) (any, error) {
	if interceptor == nil {
		return call(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
	return interceptor(ctx, req, info, call)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodPing, in, interceptor, func(ctx context.Context, _ any) (any, error) {
		if err := srv.(Handler).Ping(ctx); err != nil {
			return nil, err
		}
		return wrapperspb.String(PingOK), nil
	})
}

func fetchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	return unary(ctx, srv, MethodFetchWorkspace, in, interceptor, func(ctx context.Context, req any) (any, error) {
		snap, err := srv.(Handler).Fetch(ctx, req.(*wrapperspb.StringValue).GetValue())
		if err != nil {
			return nil, err
		}
		return snap, nil
	})
}

func mutateHandler(kind models.Kind) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var body json.RawMessage
		if err := dec(&body); err != nil {
			return nil, err
		}
		return unary(ctx, srv, MethodName(kind), &body, interceptor, func(ctx context.Context, req any) (any, error) {
			p, err := models.DecodePayload(kind, *req.(*json.RawMessage))
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			e, err := srv.(Handler).Mutate(ctx, p)
			if err != nil {
				return nil, err
			}
			if e == nil {
				return &emptypb.Empty{}, nil
			}
			return e, nil
		})
	}
}

// ServiceDesc describes the sync service; there is no .proto behind it.
func ServiceDesc() grpc.ServiceDesc {
	methods := []grpc.MethodDesc{
		{MethodName: MethodPing, Handler: pingHandler},
		{MethodName: MethodFetchWorkspace, Handler: fetchHandler},
	}
	for _, k := range models.Kinds() {
		methods = append(methods, grpc.MethodDesc{MethodName: MethodName(k), Handler: mutateHandler(k)})
	}
	return grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Handler)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "teamspace/v1/sync",
	}
}

// Register attaches h to s.
func Register(s grpc.ServiceRegistrar, h Handler) {
	desc := ServiceDesc()
	s.RegisterService(&desc, h)
}
