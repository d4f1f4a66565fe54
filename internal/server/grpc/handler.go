package grpc

import (
	"context"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

func (s *GRPCServer) Ping(ctx context.Context) error {
	return toStatus(s.service.Ping(ctx))
}

func (s *GRPCServer) Mutate(ctx context.Context, p models.Payload) (models.Entity, error) {
	e, err := s.service.Mutate(ctx, p)
	if err != nil {
		s.logger.Warn(ctx, "Mutation rejected", "kind", p.Kind(), "id", p.TargetID(), "error", err)
		return nil, toStatus(err)
	}
	return e, nil
}

func (s *GRPCServer) Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error) {
	snap, err := s.service.Fetch(ctx, workspaceID)
	if err != nil {
		s.logger.Warn(ctx, "Fetch failed", "workspace", workspaceID, "error", err)
		return nil, toStatus(err)
	}
	return snap, nil
}
