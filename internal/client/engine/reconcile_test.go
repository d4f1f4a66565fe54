package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/client"
	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unavailable(models.Payload) error {
	return &client.StatusError{Status: http.StatusServiceUnavailable, Message: "try later"}
}

func TestDrain_ReplaysInEnqueueOrder(t *testing.T) {
	h := newHarness(t)
	h.reach.online.Store(false)
	ctx := context.Background()

	ws := h.write(t, models.NewCreate(newWorkspace("Acme")))
	h.write(t, models.NewCreate(newProject(ws.GetID(), "Launch")))
	ren := newWorkspace("Acme Inc")
	ren.ID = ws.GetID()
	h.write(t, models.NewUpdate(ren))
	h.write(t, models.NewCreate(&models.Message{WorkspaceID: ws.GetID(), MessageFields: models.MessageFields{Body: "hello"}}))

	h.reach.online.Store(true)
	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Synced: 4}, rep)

	calls := h.remote.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, []models.Kind{
		models.KindWorkspaceCreate,
		models.KindProjectCreate,
		models.KindWorkspaceUpdate,
		models.KindMessageSend,
	}, []models.Kind{calls[0].Kind, calls[1].Kind, calls[2].Kind, calls[3].Kind})

	assert.Equal(t, "srv-1", calls[1].ParentID)
	assert.Equal(t, "srv-1", calls[2].TargetID)
	assert.Equal(t, "srv-1", calls[3].ParentID)

	got, err := h.engine.Workspace(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", got.Name)
	assert.False(t, got.IsDirty)
}

func TestDrain_RemapsWholeChain(t *testing.T) {
	h := newHarness(t)
	h.reach.online.Store(false)
	ctx := context.Background()

	ws := h.write(t, models.NewCreate(newWorkspace("Acme")))
	p := h.write(t, models.NewCreate(newProject(ws.GetID(), "Launch")))
	task := h.write(t, models.NewCreate(newTask(p.GetID(), "Ship v1")))
	tempIDs := []string{ws.GetID(), p.GetID(), task.GetID()}

	h.reach.online.Store(true)
	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Synced)
	assert.Equal(t, 0, h.pending(t))

	workspaces, err := h.engine.Workspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	w := workspaces[0]

	projects, err := h.engine.Projects(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	pr := projects[0]

	tasks, err := h.engine.Tasks(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	tk := tasks[0]

	for _, id := range []string{w.ID, pr.ID, tk.ID, pr.WorkspaceID, tk.ProjectID} {
		assert.False(t, models.IsTempID(id), id)
		assert.NotContains(t, tempIDs, id)
	}
	assert.Equal(t, w.ID, pr.WorkspaceID)
	assert.Equal(t, pr.ID, tk.ProjectID)
	for _, e := range []models.Entity{w, pr, tk} {
		assert.False(t, e.State().IsDirty)
		require.NotNil(t, e.State().SyncedAt)
	}

	for i, f := range []models.Family{models.FamilyWorkspace, models.FamilyProject, models.FamilyTask} {
		_, err := h.engine.Get(ctx, f, tempIDs[i])
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}
}

func TestDrain_BackoffCeiling(t *testing.T) {
	h := newHarness(t)
	h.remote.setFail(unavailable)
	ctx := context.Background()

	h.write(t, models.NewCreate(newWorkspace("Acme")))

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Synced)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 0, rep.Remaining)
	assert.Equal(t, []models.Kind{models.KindWorkspaceCreate}, rep.FailedKinds)

	assert.Len(t, h.remote.recorded(), 5)
	assert.Equal(t, []time.Duration{2 * baseDelay, 4 * baseDelay, 8 * baseDelay, 16 * baseDelay}, h.sleeper.delays)

	failures, err := h.engine.Failures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, models.KindWorkspaceCreate, failures[0].Kind)
	assert.Equal(t, 5, failures[0].Attempts)
	assert.Contains(t, failures[0].Error, "503")

	_, err = h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Len(t, h.remote.recorded(), 5, "evicted operation is never retried")
}

func TestDrain_EvictsDependentsOfEvictedCreate(t *testing.T) {
	h := newHarness(t)
	h.remote.setFail(func(p models.Payload) error {
		if p.Kind() == models.KindWorkspaceCreate {
			return &client.StatusError{Status: http.StatusUnprocessableEntity, Message: "name taken"}
		}
		return nil
	})
	ctx := context.Background()

	ws := h.write(t, models.NewCreate(newWorkspace("Acme")))
	h.write(t, models.NewCreate(newProject(ws.GetID(), "Launch")))

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, []models.Kind{models.KindWorkspaceCreate, models.KindProjectCreate}, rep.FailedKinds)

	for _, c := range h.remote.recorded() {
		assert.Equal(t, models.KindWorkspaceCreate, c.Kind)
	}

	st, err := h.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Failed)
	assert.Equal(t, "2 changes failed to sync", st.LastError)
	assert.Contains(t, h.messages(), "2 changes failed to sync (workspace.create, project.create)")

	n, err := h.engine.DismissFailures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	failures, err := h.engine.Failures(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestDrain_StopsWhenServerIsLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.write(t, models.NewCreate(newWorkspace("Acme")))
	h.remote.setFail(func(p models.Payload) error {
		h.reach.online.Store(false)
		return unavailable(p)
	})

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Remaining: 1}, rep)

	ops, err := h.engine.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Contains(t, ops[0].LastError, "503")

	rep, err = h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Skipped, "never drains offline")

	h.remote.setFail(nil)
	h.reach.online.Store(true)
	rep, err = h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)
	assert.Len(t, h.remote.recorded(), 2)
}

func TestDrain_CancelledKeepsOperationUncounted(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.write(t, models.NewCreate(newWorkspace("Acme")))
	h.remote.setFail(func(models.Payload) error {
		cancel()
		return context.Canceled
	})

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Synced)

	ops, err := h.engine.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 0, ops[0].RetryCount)
}

func TestDrain_ConcurrentPassIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.remote.started = make(chan struct{}, 1)
	h.remote.release = make(chan struct{})
	ctx := context.Background()

	h.write(t, models.NewCreate(newWorkspace("Acme")))

	done := make(chan SyncReport)
	go func() {
		rep, _ := h.engine.Drain(ctx)
		done <- rep
	}()
	<-h.remote.started

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)

	st, err := h.engine.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Syncing)

	close(h.remote.release)
	first := <-done
	assert.Equal(t, 1, first.Synced)
}

func TestDrain_DeleteWhileCreateInFlight(t *testing.T) {
	h := newHarness(t)
	h.remote.started = make(chan struct{}, 1)
	h.remote.release = make(chan struct{})
	ctx := context.Background()

	ws := h.write(t, models.NewCreate(newWorkspace("Acme")))

	done := make(chan SyncReport)
	go func() {
		rep, _ := h.engine.Drain(ctx)
		done <- rep
	}()
	<-h.remote.started

	h.write(t, models.NewDelete[*models.Workspace](ws.GetID()))
	close(h.remote.release)
	rep := <-done
	assert.Equal(t, 1, rep.Remaining)
	require.True(t, h.remote.has("srv-1"))

	h.remote.started = nil
	h.remote.release = nil
	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)
	assert.False(t, h.remote.has("srv-1"))

	_, err = h.engine.Workspace(ctx, "srv-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDrain_UpdateOfRecordGoneOnServer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w",
		&models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}},
		&models.Project{ID: "srv-p", WorkspaceID: "srv-w", ProjectFields: models.ProjectFields{Name: "Launch"}},
	)
	h.remote.remove("srv-p")

	upd := newProject("", "Renamed")
	upd.ID = "srv-p"
	h.write(t, models.NewUpdate(upd))

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)
	assert.Equal(t, 0, rep.Failed)

	_, err = h.engine.Project(ctx, "srv-p")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTriggerSync_Notices(t *testing.T) {
	h := newHarness(t)
	h.reach.online.Store(false)
	ctx := context.Background()

	h.write(t, models.NewCreate(newWorkspace("Acme")))

	rep, err := h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Equal(t, 1, rep.Remaining)

	h.reach.online.Store(true)
	rep, err = h.engine.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)

	assert.Equal(t, []string{
		"You are offline. 1 change will sync when the connection returns",
		"Syncing 1 pending change",
		"Synced 1 change",
	}, h.messages())
}

func TestBackoff(t *testing.T) {
	e := &SyncEngine{cfg: Config{RetryBaseDelay: time.Second}}
	assert.Equal(t, 2*time.Second, e.backoff(1))
	assert.Equal(t, 16*time.Second, e.backoff(4))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepContext(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

func TestResolveID_FollowsRemap(t *testing.T) {
	h := newHarness(t)

	ws := h.write(t, models.NewCreate(newWorkspace("Acme")))
	assert.Equal(t, ws.GetID(), h.engine.ResolveID(ws.GetID()))

	_, err := h.engine.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "srv-1", h.engine.ResolveID(ws.GetID()))
	assert.Equal(t, "srv-1", h.engine.ResolveID("srv-1"))
}

func TestDrain_CreateReplacesCleanCopyUnderServerID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w", &models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}})
	tmp := h.write(t, models.NewCreate(newProject("srv-w", "Launch")))

	// The server's row reaches the cache before the pass records the create.
	h.remote.onAck = func(p models.Payload, rec models.Entity) {
		if p.Action() != models.ActionCreate {
			return
		}
		cp := clone(rec)
		synced := h.now
		cp.State().SyncedAt = &synced
		cp.State().UpdatedAt = h.now
		require.NoError(t, h.store.Entities.Upsert(ctx, cp))
	}

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Synced: 1}, rep)
	assert.Equal(t, 0, h.pending(t))

	projects, err := h.engine.Projects(ctx, "srv-w")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "srv-1", projects[0].ID)
	assert.Equal(t, "Launch", projects[0].Name)
	assert.False(t, projects[0].IsDirty)

	_, err = h.engine.Project(ctx, tmp.GetID())
	assert.ErrorIs(t, err, common.ErrorNotFound)

	h.remote.onAck = nil
	rep, err = h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Synced)
	assert.Len(t, h.remote.recorded(), 1)
}

func TestDrain_UpdateKeepsLocalFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w",
		&models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}},
		&models.Project{ID: "srv-p", WorkspaceID: "srv-w", ProjectFields: models.ProjectFields{Name: "Launch"}},
	)
	upd := newProject("srv-w", "Renamed")
	upd.ID = "srv-p"
	h.write(t, models.NewUpdate(upd))

	h.remote.onAck = func(p models.Payload, rec models.Entity) {
		if p.Action() == models.ActionUpdate {
			rec.(*models.Project).Name = "Server name"
		}
	}

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)

	got, err := h.engine.Project(ctx, "srv-p")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.IsDirty)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, h.now.Equal(*got.SyncedAt))
}
