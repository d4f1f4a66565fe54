package failures

import (
	"context"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Repository records operations evicted from the queue until the user
// dismisses them.
type Repository interface {
	Add(ctx context.Context, f *models.SyncFailure) error
	List(ctx context.Context) ([]*models.SyncFailure, error)
	Count(ctx context.Context) (int, error)
	Dismiss(ctx context.Context, id int64) error
	DismissAll(ctx context.Context) (int, error)
}
