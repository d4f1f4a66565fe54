package engine

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(id, name string) *models.Project {
	return &models.Project{ID: id, WorkspaceID: "srv-w", ProjectFields: models.ProjectFields{Name: name}}
}

func TestPull_DoesNotClobberLocalChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w",
		&models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}},
		project("srv-p1", "one"),
		project("srv-p2", "two"),
		project("srv-p3", "three"),
		project("srv-p4", "four"),
	)

	h.reach.online.Store(false)
	h.write(t, models.NewUpdate(project("srv-p1", "one (local)")))
	h.write(t, models.NewDelete[*models.Project]("srv-p4"))
	local := h.write(t, models.NewCreate(newProject("srv-w", "draft")))

	h.remote.put(&models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme Inc"}})
	h.remote.put(project("srv-p1", "one (server)"))
	h.remote.put(project("srv-p2", "two (server)"))
	h.remote.remove("srv-p3")

	rep, err := h.engine.Pull(ctx, "srv-w")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Applied)
	assert.Equal(t, 2, rep.Kept)
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, h.now, rep.PulledAt)

	ws, err := h.engine.Workspace(ctx, "srv-w")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", ws.Name)
	assert.False(t, ws.IsDirty)

	p1, err := h.engine.Project(ctx, "srv-p1")
	require.NoError(t, err)
	assert.Equal(t, "one (local)", p1.Name)
	assert.True(t, p1.IsDirty)

	p2, err := h.engine.Project(ctx, "srv-p2")
	require.NoError(t, err)
	assert.Equal(t, "two (server)", p2.Name)

	_, err = h.engine.Project(ctx, "srv-p3")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = h.engine.Project(ctx, "srv-p4")
	assert.ErrorIs(t, err, common.ErrorNotFound, "pending delete is not resurrected")

	_, err = h.engine.Project(ctx, local.GetID())
	assert.NoError(t, err)

	last, err := h.engine.LastPull(ctx, "srv-w")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, h.now.Equal(*last))
	assert.Equal(t, 3, h.pending(t))
}

func TestPull_UnsyncedWorkspace(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Pull(context.Background(), models.NewTempID())
	require.ErrorIs(t, err, ErrNotSynced)
}

func TestPull_UnknownWorkspace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.Pull(ctx, "srv-nope")
	require.Error(t, err)

	last, err := h.engine.LastPull(ctx, "srv-nope")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestOfflineRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w",
		&models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}},
		project("srv-p", "Launch"),
	)
	require.Equal(t, 0, h.pending(t))

	h.reach.online.Store(false)
	task := &models.Task{ProjectID: "srv-p", TaskFields: models.TaskFields{Name: "Ship v1", DueDate: "2025-01-01"}}
	rec := h.write(t, models.NewCreate(task))
	assert.True(t, models.IsTempID(rec.GetID()))
	assert.True(t, rec.State().IsDirty)
	assert.Equal(t, 1, h.pending(t))

	h.reach.online.Store(true)
	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Synced)
	assert.Equal(t, 0, h.pending(t))

	tasks, err := h.engine.Tasks(ctx, "srv-p")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.NotEqual(t, rec.GetID(), got.ID)
	assert.False(t, models.IsTempID(got.ID))
	assert.False(t, got.IsDirty)
	assert.Equal(t, "Ship v1", got.Name)
	assert.Equal(t, "2025-01-01", got.DueDate)
	assert.Equal(t, models.TaskTodo, got.Status)
}

func TestPull_SkippedWhileCreateAwaitsRemap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seed(t, "srv-w", &models.Workspace{ID: "srv-w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}})
	tmp := h.write(t, models.NewCreate(newProject("srv-w", "Launch")))

	var pulled PullReport
	var pullErr error
	h.remote.onAck = func(p models.Payload, _ models.Entity) {
		if p.Action() == models.ActionCreate {
			pulled, pullErr = h.engine.Pull(ctx, "srv-w")
		}
	}

	rep, err := h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Synced: 1}, rep)
	require.NoError(t, pullErr)
	assert.True(t, pulled.Skipped)
	assert.Zero(t, pulled.Applied)

	h.remote.onAck = nil
	rep, err = h.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Synced)
	assert.Len(t, h.remote.recorded(), 1, "the create is sent once")

	after, err := h.engine.Pull(ctx, "srv-w")
	require.NoError(t, err)
	assert.False(t, after.Skipped)
	assert.Equal(t, 2, after.Applied)

	projects, err := h.engine.Projects(ctx, "srv-w")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "srv-1", projects[0].ID)
	assert.False(t, projects[0].IsDirty)

	_, err = h.engine.Project(ctx, tmp.GetID())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
