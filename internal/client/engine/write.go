package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/entities"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/dmitrijs2005/teamspace/internal/common"
)

// Write applies p to the local store and queues it for the server. It returns
// the stored entity (nil for deletes) and never waits on the network.
//
// Creates always get a fresh temporary id, whatever id the payload carried.
func (e *SyncEngine) Write(ctx context.Context, p models.Payload) (models.Entity, error) {
	switch p.Action() {
	case models.ActionCreate:
		return e.create(ctx, p)
	case models.ActionUpdate:
		return e.update(ctx, p)
	case models.ActionDelete:
		return nil, e.delete(ctx, p)
	}
	return nil, fmt.Errorf("unsupported action %q", p.Action())
}

func enqueue(ctx context.Context, r store.Repositories, p models.Payload, now time.Time) error {
	return r.Queue.Enqueue(ctx, &models.PendingOperation{
		Kind:       p.Kind(),
		TargetID:   p.TargetID(),
		Payload:    p,
		EnqueuedAt: now,
	})
}

func markDirty(rec models.Entity, now time.Time) {
	st := rec.State()
	st.IsDirty = true
	st.UpdatedAt = now
}

func (e *SyncEngine) create(ctx context.Context, p models.Payload) (models.Entity, error) {
	rec := p.Record()
	if d, ok := rec.(models.Defaulter); ok {
		d.ApplyDefaults()
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.SetID(models.NewTempID())
	now := e.clock.Now()
	markDirty(rec, now)
	rec.State().SyncedAt = nil

	err := e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if rel, ok := models.ParentOf(rec.Family()); ok {
			found, err := r.Entities.Exists(ctx, rel.Parent, rec.ParentID())
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %s %s", common.ErrorNotFound, rel.Parent, rec.ParentID())
			}
		}
		if err := r.Entities.Upsert(ctx, rec); err != nil {
			return err
		}
		return enqueue(ctx, r, p, now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug(ctx, "queued", "kind", p.Kind(), "id", rec.GetID())
	return rec, nil
}

// update keeps the record's current parent: moving a record to another
// parent is not supported.
func (e *SyncEngine) update(ctx context.Context, p models.Payload) (models.Entity, error) {
	rec := p.Record()
	now := e.clock.Now()

	err := e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		cur, err := r.Entities.Get(ctx, rec.Family(), rec.GetID())
		if err != nil {
			return fmt.Errorf("%s %s: %w", rec.Family(), rec.GetID(), err)
		}
		rec.SetParentID(cur.ParentID())
		if err := rec.Validate(); err != nil {
			return err
		}
		markDirty(rec, now)
		rec.State().SyncedAt = cur.State().SyncedAt

		if err := r.Entities.Upsert(ctx, rec); err != nil {
			return err
		}
		return enqueue(ctx, r, p, now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug(ctx, "queued", "kind", p.Kind(), "id", rec.GetID())
	return rec, nil
}

// delete removes the record and its local descendants. Deleting a record that
// is already gone is a no-op. A record the server never saw is simply
// forgotten, together with every queued operation that targeted it or its
// descendants.
func (e *SyncEngine) delete(ctx context.Context, p models.Payload) error {
	f, id := p.Family(), p.TargetID()
	now := e.clock.Now()

	return e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		found, err := r.Entities.Exists(ctx, f, id)
		if err != nil {
			return err
		}
		if !found {
			e.logger.Debug(ctx, "already deleted", "family", f, "id", id)
			return nil
		}

		removed, err := r.Entities.CascadeDelete(ctx, f, id)
		if err != nil {
			return err
		}
		dropped, err := r.Queue.RemoveByTargets(ctx, tempIDs(removed))
		if err != nil {
			return err
		}
		if dropped > 0 {
			e.logger.Debug(ctx, "dropped unsynced operations", "count", dropped, "root", id)
		}

		if models.IsTempID(id) {
			return nil
		}
		return enqueue(ctx, r, p, now)
	})
}

func tempIDs(refs []entities.Ref) []string {
	var ids []string
	for _, ref := range refs {
		if models.IsTempID(ref.ID) {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

func refIDs(refs []entities.Ref) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
