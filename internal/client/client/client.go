package client

import (
	"context"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	// Apply replays p and returns the entity as stored by the server (nil for deletes).
	Apply(ctx context.Context, p models.Payload) (models.Entity, error)
	Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error)
}
