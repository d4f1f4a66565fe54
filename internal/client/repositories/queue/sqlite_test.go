package queue

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/migrations"
	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)
	return db
}

func enqueue(t *testing.T, r *SQLiteRepository, p models.Payload) *models.PendingOperation {
	t.Helper()
	op := &models.PendingOperation{
		Kind:       p.Kind(),
		TargetID:   p.TargetID(),
		Payload:    p,
		EnqueuedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.Enqueue(context.Background(), op))
	return op
}

func TestEnqueue_AssignsIncreasingSeqAndKeepsOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := enqueue(t, r, models.NewCreate(&models.Workspace{ID: "tmp_w", WorkspaceFields: models.WorkspaceFields{Name: "Acme"}}))
	b := enqueue(t, r, models.NewCreate(&models.Project{ID: "tmp_p", WorkspaceID: "tmp_w", ProjectFields: models.ProjectFields{Name: "Launch"}}))
	c := enqueue(t, r, models.NewDelete[*models.Project]("tmp_p"))

	assert.Less(t, a.Seq, b.Seq)
	assert.Less(t, b.Seq, c.Seq)

	ops, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, []models.Kind{models.KindWorkspaceCreate, models.KindProjectCreate, models.KindProjectDelete},
		[]models.Kind{ops[0].Kind, ops[1].Kind, ops[2].Kind})

	proj := ops[1].Payload.Record().(*models.Project)
	assert.Equal(t, "Launch", proj.Name)
	assert.Equal(t, "tmp_w", proj.WorkspaceID)

	seqs, err := r.Seqs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.Seq, b.Seq, c.Seq}, seqs)
}

func TestRemap_RewritesTargetsAndPayloadReferences(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	enqueue(t, r, models.NewCreate(&models.Project{ID: "tmp_p", WorkspaceID: "tmp_w", ProjectFields: models.ProjectFields{Name: "Launch"}}))
	enqueue(t, r, models.NewUpdate(&models.Workspace{ID: "tmp_w", WorkspaceFields: models.WorkspaceFields{Name: "Acme 2"}}))
	enqueue(t, r, models.NewDelete[*models.Message]("m1"))

	n, err := r.Remap(ctx, "tmp_w", "W")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ops, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "W", ops[0].Payload.Record().ParentID())
	assert.Equal(t, "tmp_p", ops[0].TargetID)
	assert.Equal(t, "W", ops[1].TargetID)
	assert.Equal(t, "W", ops[1].Payload.TargetID())
	assert.Equal(t, "m1", ops[2].TargetID)

	cnt, err := r.CountByTarget(ctx, "tmp_w")
	require.NoError(t, err)
	assert.Zero(t, cnt)
}

func TestSetRetryRemoveAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	op := enqueue(t, r, models.NewDelete[*models.Task]("t1"))
	require.NoError(t, r.SetRetry(ctx, op.Seq, 2, "503 busy"))

	got, err := r.Get(ctx, op.Seq)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "503 busy", got.LastError)

	require.NoError(t, r.Remove(ctx, op.Seq))
	_, err = r.Get(ctx, op.Seq)
	require.ErrorIs(t, err, common.ErrorNotFound)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveByTargets(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	enqueue(t, r, models.NewDelete[*models.Task]("a"))
	enqueue(t, r, models.NewDelete[*models.Task]("b"))
	enqueue(t, r, models.NewDelete[*models.Task]("c"))

	n, err := r.RemoveByTargets(ctx, []string{"a", "c", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.RemoveByTargets(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].TargetID)
}

func TestList_UnknownKindIsAnError(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := db.Exec(`INSERT INTO pending_operations (kind, target_id, payload, enqueued_at) VALUES ('board.create', 'x', '{}', 0)`)
	require.NoError(t, err)

	_, err = r.List(context.Background())
	require.Error(t, err)
}
