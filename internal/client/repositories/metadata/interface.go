package metadata

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Repository keeps one sync_metadata row per workspace.
type Repository interface {
	// Get returns (nil, nil) when the workspace was never pulled.
	Get(ctx context.Context, workspaceID string) (*models.SyncMetadata, error)
	SetLastPull(ctx context.Context, workspaceID string, at time.Time) error
	Delete(ctx context.Context, workspaceID string) error
	List(ctx context.Context) ([]*models.SyncMetadata, error)
}
