package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/client"
	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/dmitrijs2005/teamspace/internal/common"
)

// SyncReport summarizes one drain pass.
type SyncReport struct {
	Synced    int
	Failed    int
	Remaining int
	// Skipped is set when the pass did not run: another pass was in
	// progress or the server was unreachable.
	Skipped bool
	// FailedKinds lists the kinds of the operations evicted in this pass.
	FailedKinds []models.Kind
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeEvicted
	outcomeStopped
)

// TriggerSync drains the queue on demand and tells the user when that is not
// possible because the server is unreachable.
func (e *SyncEngine) TriggerSync(ctx context.Context) (SyncReport, error) {
	if !e.reach.Online() {
		e.NotifyOffline(ctx)
	}
	return e.Drain(ctx)
}

// Drain replays queued operations against the server in FIFO order. At most
// one pass runs at a time; a concurrent call returns a skipped report at once.
//
// The pass stops at the first operation that can neither be applied nor
// evicted (context cancelled or server lost), leaving it at the head of the
// queue. Remote errors never escape; the returned error is always local.
func (e *SyncEngine) Drain(ctx context.Context) (SyncReport, error) {
	var rep SyncReport

	if !e.drainMu.TryLock() {
		rep.Skipped = true
		return rep, nil
	}
	defer e.drainMu.Unlock()

	if !e.reach.Online() {
		n, err := e.store.Queue.Count(ctx)
		rep.Skipped = true
		rep.Remaining = n
		return rep, err
	}

	e.syncing.Store(true)
	defer e.syncing.Store(false)

	seqs, err := e.store.Queue.Seqs(ctx)
	if err != nil {
		return rep, err
	}
	if len(seqs) == 0 {
		return rep, nil
	}

	e.logger.Info(ctx, "Sync started", "pending", len(seqs))
	e.notify(Notice{Level: NoticeInfo, Message: fmt.Sprintf("Syncing %d pending %s", len(seqs), plural(len(seqs), "change"))})

	err = e.drain(ctx, seqs, &rep)

	n, cerr := e.store.Queue.Count(context.WithoutCancel(ctx))
	if err == nil {
		err = cerr
	}
	rep.Remaining = n

	e.finishPass(ctx, rep, err)
	return rep, err
}

func (e *SyncEngine) drain(ctx context.Context, seqs []int64, rep *SyncReport) error {
	for _, seq := range seqs {
		if ctx.Err() != nil {
			return nil
		}

		// Re-read: remaps performed earlier in the pass rewrite later entries.
		op, err := e.store.Queue.Get(ctx, seq)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		res, err := e.process(ctx, op)
		if err != nil {
			return err
		}
		switch res {
		case outcomeSynced:
			rep.Synced++
		case outcomeEvicted:
			rep.Failed++
			rep.FailedKinds = append(rep.FailedKinds, op.Kind)
		case outcomeStopped:
			e.logger.Info(ctx, "Sync paused", "seq", op.Seq, "kind", op.Kind)
			return nil
		}
	}
	return nil
}

func (e *SyncEngine) finishPass(ctx context.Context, rep SyncReport, err error) {
	lastError := ""
	if err != nil {
		lastError = err.Error()
		e.logger.Error(ctx, "Sync failed", "error", err)
	} else if rep.Failed > 0 {
		lastError = fmt.Sprintf("%d %s failed to sync", rep.Failed, plural(rep.Failed, "change"))
	}
	e.setLastSync(e.clock.Now(), lastError)

	e.logger.Info(ctx, "Sync finished",
		"synced", rep.Synced, "failed", rep.Failed, "remaining", rep.Remaining)

	if rep.Synced > 0 {
		e.notify(Notice{Level: NoticeInfo, Message: fmt.Sprintf("Synced %d %s", rep.Synced, plural(rep.Synced, "change"))})
	}
	if rep.Failed > 0 {
		e.notify(Notice{Level: NoticeError, Message: failureMessage(rep.Failed, rep.FailedKinds)})
	}
}

// unresolvedRef returns a temporary id the operation still depends on. Once
// the operation reaches the head of the queue, the create that would have
// replaced such an id has already been evicted.
func unresolvedRef(op *models.PendingOperation) string {
	for _, id := range op.Payload.Refs() {
		if models.IsTempID(id) {
			return id
		}
	}
	return ""
}

// process runs one operation to completion, eviction or a stop. Local
// bookkeeping after a remote call uses a context detached from cancellation
// so that an acknowledged mutation is always recorded.
func (e *SyncEngine) process(ctx context.Context, op *models.PendingOperation) (outcome, error) {
	local := context.WithoutCancel(ctx)

	if ref := unresolvedRef(op); ref != "" {
		return e.evict(local, op, fmt.Sprintf("depends on unsynced record %s", ref))
	}

	for {
		res, err := e.call(ctx, op.Payload)
		if err == nil {
			return outcomeSynced, e.applied(local, op, res)
		}
		if errors.Is(err, client.ErrNotFound) && op.Payload.Action() != models.ActionCreate {
			e.logger.Debug(ctx, "record already gone on server", "kind", op.Kind, "id", op.TargetID)
			return outcomeSynced, e.gone(local, op)
		}
		if ctx.Err() != nil {
			return outcomeStopped, nil
		}

		op.RetryCount++
		op.LastError = err.Error()
		if err := e.store.Queue.SetRetry(local, op.Seq, op.RetryCount, op.LastError); err != nil {
			return outcomeStopped, err
		}
		e.setLastError(op.LastError)
		e.logger.Warn(ctx, "Operation failed",
			"seq", op.Seq, "kind", op.Kind, "attempt", op.RetryCount, "error", err)

		if op.RetryCount >= e.cfg.MaxRetries {
			return e.evict(local, op, op.LastError)
		}
		if !e.reach.Online() {
			return outcomeStopped, nil
		}
		if err := e.sleep(ctx, e.backoff(op.RetryCount)); err != nil {
			return outcomeStopped, nil
		}
		if !e.reach.Online() {
			return outcomeStopped, nil
		}
	}
}

// backoff is the delay before the attempt following the retries-th failure.
func (e *SyncEngine) backoff(retries int) time.Duration {
	return e.cfg.RetryBaseDelay * time.Duration(1<<uint(retries))
}

func (e *SyncEngine) call(ctx context.Context, p models.Payload) (models.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	return e.remote.Apply(ctx, p)
}

func (e *SyncEngine) evict(ctx context.Context, op *models.PendingOperation, reason string) (outcome, error) {
	failure := &models.SyncFailure{
		Kind:     op.Kind,
		TargetID: op.TargetID,
		Attempts: op.RetryCount,
		Error:    reason,
		FailedAt: e.clock.Now(),
	}
	err := e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if err := r.Queue.Remove(ctx, op.Seq); err != nil {
			return err
		}
		return r.Failures.Add(ctx, failure)
	})
	if err != nil {
		return outcomeStopped, err
	}
	e.logger.Warn(ctx, "Operation evicted", "seq", op.Seq, "kind", op.Kind, "id", op.TargetID, "reason", reason)
	return outcomeEvicted, nil
}

// applied records a successful remote call. For a create, the temporary id is
// replaced by the server's everywhere (row, child foreign keys, queued
// payloads) in the same transaction that dequeues the operation.
func (e *SyncEngine) applied(ctx context.Context, op *models.PendingOperation, res models.Entity) error {
	p := op.Payload
	f := p.Family()
	now := e.clock.Now()

	tempID, remappedTo := p.TargetID(), ""
	err := e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		_, err := r.Queue.Get(ctx, op.Seq)
		stillQueued := err == nil
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if err := r.Queue.Remove(ctx, op.Seq); err != nil {
			return err
		}

		switch p.Action() {
		case models.ActionCreate:
			id := tempID
			if res != nil && res.GetID() != "" && res.GetID() != id {
				// A refresh may already hold a clean copy under the server id.
				if _, err := r.Entities.Delete(ctx, f, res.GetID()); err != nil {
					return err
				}
				if err := r.Entities.RemapID(ctx, f, id, res.GetID()); err != nil {
					return err
				}
				if _, err := r.Queue.Remap(ctx, id, res.GetID()); err != nil {
					return err
				}
				e.logger.Debug(ctx, "remapped", "family", f, "from", id, "to", res.GetID())
				id = res.GetID()
				remappedTo = id
			}
			if !stillQueued {
				// Deleted locally while the create was in flight.
				del, err := models.DeleteOf(f, id)
				if err != nil {
					return err
				}
				return enqueue(ctx, r, del, now)
			}
			return settle(ctx, r, f, id, res, now)

		case models.ActionUpdate:
			// The local fields already are what the server accepted.
			return settle(ctx, r, f, p.TargetID(), nil, now)

		default:
			_, err := r.Entities.CascadeDelete(ctx, f, p.TargetID())
			return err
		}
	})
	if err == nil && remappedTo != "" {
		e.recordRemap(tempID, remappedTo)
	}
	return err
}

// settle marks the record clean unless a later queued operation still
// targets it. A non-nil res replaces the local fields with the server's.
func settle(ctx context.Context, r store.Repositories, f models.Family, id string, res models.Entity, now time.Time) error {
	n, err := r.Queue.CountByTarget(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	found, err := r.Entities.Exists(ctx, f, id)
	if err != nil || !found {
		return err
	}
	if res == nil || res.Family() != f {
		return r.Entities.MarkClean(ctx, f, id, now)
	}

	res.SetID(id)
	st := res.State()
	st.IsDirty = false
	st.UpdatedAt = now
	st.SyncedAt = &now
	return r.Entities.Upsert(ctx, res)
}

// gone handles a server that no longer has the target of an update or delete:
// the local row and its descendants are removed along with queued operations
// that could only fail the same way.
func (e *SyncEngine) gone(ctx context.Context, op *models.PendingOperation) error {
	return e.store.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if err := r.Queue.Remove(ctx, op.Seq); err != nil {
			return err
		}
		removed, err := r.Entities.CascadeDelete(ctx, op.Payload.Family(), op.TargetID)
		if err != nil {
			return err
		}
		_, err = r.Queue.RemoveByTargets(ctx, refIDs(removed))
		return err
	})
}
