package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the typed stub over a connection, in the shape protoc would
// generate it.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

// Ping returns the server status string.
func (c *Client) Ping(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, MethodPing, &emptypb.Empty{}, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Mutate replays p. Creates and updates return the entity as stored by the
// server; deletes return nil.
func (c *Client) Mutate(ctx context.Context, p models.Payload, opts ...grpc.CallOption) (models.Entity, error) {
	method := MethodName(p.Kind())
	if method == "" {
		return nil, fmt.Errorf("no rpc for %q", p.Kind())
	}
	body, err := models.EncodePayload(p)
	if err != nil {
		return nil, err
	}
	in := json.RawMessage(body)

	if p.Action() == models.ActionDelete {
		return nil, c.invoke(ctx, method, &in, &emptypb.Empty{}, opts...)
	}

	out := models.NewEntity(p.Family())
	if err := c.invoke(ctx, method, &in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Fetch(ctx context.Context, workspaceID string, opts ...grpc.CallOption) (*models.Snapshot, error) {
	out := new(models.Snapshot)
	if err := c.invoke(ctx, MethodFetchWorkspace, wrapperspb.String(workspaceID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
