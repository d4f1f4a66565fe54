package engine

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Status is the aggregate sync state shown to the user.
type Status struct {
	Online     bool
	Syncing    bool
	Pending    int
	Failed     int
	LastError  string
	LastSyncAt *time.Time
}

func (e *SyncEngine) Status(ctx context.Context) (Status, error) {
	pending, err := e.store.Queue.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	failed, err := e.store.Failures.Count(ctx)
	if err != nil {
		return Status{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Online:     e.reach.Online(),
		Syncing:    e.syncing.Load(),
		Pending:    pending,
		Failed:     failed,
		LastError:  e.lastError,
		LastSyncAt: e.lastSyncAt,
	}, nil
}

func (e *SyncEngine) PendingCount(ctx context.Context) (int, error) {
	return e.store.Queue.Count(ctx)
}

// Pending lists queued operations in the order they will be replayed.
func (e *SyncEngine) Pending(ctx context.Context) ([]*models.PendingOperation, error) {
	return e.store.Queue.List(ctx)
}

func (e *SyncEngine) Failures(ctx context.Context) ([]*models.SyncFailure, error) {
	return e.store.Failures.List(ctx)
}

// DismissFailures removes the given failures, or all of them when no id is
// given, and returns how many were removed.
func (e *SyncEngine) DismissFailures(ctx context.Context, ids ...int64) (int, error) {
	if len(ids) == 0 {
		return e.store.Failures.DismissAll(ctx)
	}
	for _, id := range ids {
		if err := e.store.Failures.Dismiss(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
