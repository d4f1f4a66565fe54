package queue

import (
	"context"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Repository is the durable FIFO of pending operations. Order is the order of
// Seq; nothing reorders or merges entries.
type Repository interface {
	// Enqueue appends op and sets op.Seq.
	Enqueue(ctx context.Context, op *models.PendingOperation) error
	// Get returns common.ErrorNotFound when seq is no longer queued.
	Get(ctx context.Context, seq int64) (*models.PendingOperation, error)
	List(ctx context.Context) ([]*models.PendingOperation, error)
	Seqs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
	CountByTarget(ctx context.Context, targetID string) (int, error)
	Remove(ctx context.Context, seq int64) error
	RemoveByTargets(ctx context.Context, targetIDs []string) (int, error)
	SetRetry(ctx context.Context, seq int64, retryCount int, lastError string) error
	// Remap rewrites oldID to newID in target ids and payloads, returning the
	// number of operations touched.
	Remap(ctx context.Context, oldID, newID string) (int, error)
}
