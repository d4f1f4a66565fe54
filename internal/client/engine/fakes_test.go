package engine

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/client"
	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/client/store"
	"github.com/stretchr/testify/require"
)

type call struct {
	Kind     models.Kind
	TargetID string
	ParentID string
}

func clone(e models.Entity) models.Entity {
	p, err := models.CreateOf(e)
	if err != nil {
		panic(err)
	}
	data, err := models.EncodePayload(p)
	if err != nil {
		panic(err)
	}
	out, err := models.DecodePayload(p.Kind(), data)
	if err != nil {
		panic(err)
	}
	return out.Record()
}

// fakeRemote is an in-memory server holding a single workspace.
type fakeRemote struct {
	mu      sync.Mutex
	seq     int
	records map[string]models.Entity
	calls   []call
	failFn  func(p models.Payload) error

	// onAck runs after the server has applied p and before the engine sees
	// the result; it may alter rec.
	onAck func(p models.Payload, rec models.Entity)

	started chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]models.Entity)}
}

func notFound(id string) error {
	return &client.StatusError{Status: http.StatusNotFound, Message: id + " not found"}
}

func (f *fakeRemote) put(e models.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[e.GetID()] = clone(e)
}

func (f *fakeRemote) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
}

func (f *fakeRemote) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

func (f *fakeRemote) setFail(fn func(p models.Payload) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFn = fn
}

func (f *fakeRemote) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

func (f *fakeRemote) Apply(ctx context.Context, p models.Payload) (models.Entity, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	rec, err := f.apply(p)
	if err == nil && f.onAck != nil {
		f.onAck(p, rec)
	}
	return rec, err
}

func (f *fakeRemote) apply(p models.Payload) (models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{Kind: p.Kind(), TargetID: p.TargetID()}
	if rec := p.Record(); rec != nil {
		c.ParentID = rec.ParentID()
	}
	f.calls = append(f.calls, c)

	if f.failFn != nil {
		if err := f.failFn(p); err != nil {
			return nil, err
		}
	}

	id := p.TargetID()
	switch p.Action() {
	case models.ActionCreate:
		rec := clone(p.Record())
		if parent := rec.ParentID(); parent != "" {
			if models.IsTempID(parent) {
				return nil, &client.StatusError{Status: http.StatusUnprocessableEntity, Message: "temporary parent id"}
			}
			if _, ok := f.records[parent]; !ok {
				return nil, notFound(parent)
			}
		}
		f.seq++
		rec.SetID(fmt.Sprintf("srv-%d", f.seq))
		f.records[rec.GetID()] = rec
		return clone(rec), nil
	case models.ActionUpdate:
		if _, ok := f.records[id]; !ok {
			return nil, notFound(id)
		}
		rec := clone(p.Record())
		f.records[id] = rec
		return clone(rec), nil
	default:
		if _, ok := f.records[id]; !ok {
			return nil, notFound(id)
		}
		delete(f.records, id)
		return nil, nil
	}
}

func (f *fakeRemote) Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[workspaceID]; !ok {
		return nil, notFound(workspaceID)
	}
	snap := &models.Snapshot{}
	for _, rec := range f.records {
		snap.Add(clone(rec))
	}
	return snap, nil
}

type fakeReach struct {
	online atomic.Bool
}

func (r *fakeReach) Online() bool { return r.online.Load() }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type harness struct {
	engine  *SyncEngine
	store   *store.Store
	remote  *fakeRemote
	reach   *fakeReach
	sleeper *recordingSleeper
	now     time.Time

	mu      sync.Mutex
	notices []Notice
}

const baseDelay = 10 * time.Millisecond

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		store:   st,
		remote:  newFakeRemote(),
		reach:   &fakeReach{},
		sleeper: &recordingSleeper{},
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.reach.online.Store(true)

	h.engine = New(st, h.remote, h.reach,
		Config{MaxRetries: 5, RetryBaseDelay: baseDelay, RequestTimeout: time.Second},
		WithClock(fixedClock{now: h.now}),
		WithSleeper(h.sleeper.Sleep),
		WithNotifier(func(n Notice) {
			h.mu.Lock()
			h.notices = append(h.notices, n)
			h.mu.Unlock()
		}),
	)
	return h
}

func (h *harness) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.notices))
	for _, n := range h.notices {
		out = append(out, n.Message)
	}
	return out
}

func (h *harness) write(t *testing.T, p models.Payload) models.Entity {
	t.Helper()
	rec, err := h.engine.Write(context.Background(), p)
	require.NoError(t, err)
	return rec
}

func (h *harness) pending(t *testing.T) int {
	t.Helper()
	n, err := h.engine.PendingCount(context.Background())
	require.NoError(t, err)
	return n
}

// seed makes the records known to both the server and the local cache.
func (h *harness) seed(t *testing.T, workspaceID string, recs ...models.Entity) {
	t.Helper()
	for _, r := range recs {
		h.remote.put(r)
	}
	_, err := h.engine.Pull(context.Background(), workspaceID)
	require.NoError(t, err)
}

func newWorkspace(name string) *models.Workspace {
	return &models.Workspace{WorkspaceFields: models.WorkspaceFields{Name: name}}
}

func newProject(workspaceID, name string) *models.Project {
	return &models.Project{WorkspaceID: workspaceID, ProjectFields: models.ProjectFields{Name: name}}
}

func newTask(projectID, name string) *models.Task {
	return &models.Task{ProjectID: projectID, TaskFields: models.TaskFields{Name: name}}
}
