package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/entities"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/dmitrijs2005/teamspace/internal/common"
)

// ErrNotSynced is returned when pulling a workspace that only exists locally.
var ErrNotSynced = errors.New("workspace has not been synced yet")

// PullReport summarizes one cache refresh.
type PullReport struct {
	WorkspaceID string
	// Applied counts server records written to the local store.
	Applied int
	// Kept counts server records ignored because the local copy has
	// unsynced changes.
	Kept int
	// Removed counts clean local records the server no longer has.
	Removed  int
	PulledAt time.Time
	// Skipped is set when a drain pass was running and nothing was fetched.
	Skipped bool
}

// Pull fetches the workspace snapshot and merges it into the local store in a
// single transaction. Records that are dirty, have a temporary id or are the
// target of a queued operation are left untouched.
//
// Pull shares the drain lock: a create the server has acknowledged but the
// pass has not yet remapped would otherwise come back as a second, clean
// record. While a pass runs, Pull returns a skipped report at once.
func (e *SyncEngine) Pull(ctx context.Context, workspaceID string) (PullReport, error) {
	rep := PullReport{WorkspaceID: workspaceID}
	if models.IsTempID(workspaceID) {
		return rep, ErrNotSynced
	}

	if !e.drainMu.TryLock() {
		rep.Skipped = true
		e.logger.Debug(ctx, "Pull skipped, sync in progress", "workspace", workspaceID)
		return rep, nil
	}
	defer e.drainMu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	snap, err := e.remote.Fetch(fctx, workspaceID)
	cancel()
	if err != nil {
		return rep, fmt.Errorf("fetch workspace %s: %w", workspaceID, err)
	}
	if snap == nil || snap.Workspace == nil {
		return rep, fmt.Errorf("fetch workspace %s: %w", workspaceID, common.ErrorNotFound)
	}

	now := e.clock.Now()
	err = e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		seen := make(map[entities.Ref]bool)
		for _, rec := range snap.Entities() {
			ref := entities.Ref{Family: rec.Family(), ID: rec.GetID()}
			seen[ref] = true

			keep, err := protected(ctx, r, ref)
			if err != nil {
				return err
			}
			if keep {
				rep.Kept++
				continue
			}

			st := rec.State()
			st.IsDirty = false
			st.UpdatedAt = now
			st.SyncedAt = &now
			if err := r.Entities.Upsert(ctx, rec); err != nil {
				return err
			}
			rep.Applied++
		}

		local, err := r.Entities.WorkspaceRefs(ctx, workspaceID)
		if err != nil {
			return err
		}
		for _, ref := range local {
			if seen[ref] {
				continue
			}
			keep, err := protected(ctx, r, ref)
			if err != nil {
				return err
			}
			if keep {
				continue
			}
			ok, err := r.Entities.Delete(ctx, ref.Family, ref.ID)
			if err != nil {
				return err
			}
			if ok {
				rep.Removed++
			}
		}

		return r.Metadata.SetLastPull(ctx, workspaceID, now)
	})
	if err != nil {
		return rep, err
	}

	rep.PulledAt = now
	e.logger.Info(ctx, "Pulled workspace",
		"workspace", workspaceID, "applied", rep.Applied, "kept", rep.Kept, "removed", rep.Removed)
	return rep, nil
}

// protected reports whether the local copy of ref must survive a pull.
func protected(ctx context.Context, r store.Repositories, ref entities.Ref) (bool, error) {
	if models.IsTempID(ref.ID) {
		return true, nil
	}
	n, err := r.Queue.CountByTarget(ctx, ref.ID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	cur, err := r.Entities.Get(ctx, ref.Family, ref.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cur.State().IsDirty, nil
}

// LastPull returns when the workspace was last refreshed, or nil if never.
func (e *SyncEngine) LastPull(ctx context.Context, workspaceID string) (*time.Time, error) {
	m, err := e.store.Metadata.Get(ctx, workspaceID)
	if err != nil || m == nil {
		return nil, err
	}
	return &m.LastPullAt, nil
}
