package engine

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Read accessors only consult the local store.

func get[E models.Entity](ctx context.Context, e *SyncEngine, f models.Family, id string) (E, error) {
	var zero E
	rec, err := e.store.Entities.Get(ctx, f, id)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", f, id, err)
	}
	v, ok := rec.(E)
	if !ok {
		return zero, fmt.Errorf("unexpected %T for %s", rec, f)
	}
	return v, nil
}

func cast[E models.Entity](recs []models.Entity, err error) ([]E, error) {
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		if v, ok := rec.(E); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (e *SyncEngine) Workspace(ctx context.Context, id string) (*models.Workspace, error) {
	return get[*models.Workspace](ctx, e, models.FamilyWorkspace, id)
}

func (e *SyncEngine) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	return cast[*models.Workspace](e.store.Entities.List(ctx, models.FamilyWorkspace))
}

func (e *SyncEngine) Project(ctx context.Context, id string) (*models.Project, error) {
	return get[*models.Project](ctx, e, models.FamilyProject, id)
}

func (e *SyncEngine) Projects(ctx context.Context, workspaceID string) ([]*models.Project, error) {
	return cast[*models.Project](e.store.Entities.ListByParent(ctx, models.FamilyProject, workspaceID))
}

func (e *SyncEngine) Task(ctx context.Context, id string) (*models.Task, error) {
	return get[*models.Task](ctx, e, models.FamilyTask, id)
}

func (e *SyncEngine) Tasks(ctx context.Context, projectID string) ([]*models.Task, error) {
	return cast[*models.Task](e.store.Entities.ListByParent(ctx, models.FamilyTask, projectID))
}

func (e *SyncEngine) Messages(ctx context.Context, workspaceID string) ([]*models.Message, error) {
	return cast[*models.Message](e.store.Entities.ListByParent(ctx, models.FamilyMessage, workspaceID))
}

func (e *SyncEngine) Comments(ctx context.Context, taskID string) ([]*models.Comment, error) {
	return cast[*models.Comment](e.store.Entities.ListByParent(ctx, models.FamilyComment, taskID))
}

func (e *SyncEngine) Memberships(ctx context.Context, workspaceID string) ([]*models.Membership, error) {
	return cast[*models.Membership](e.store.Entities.ListByParent(ctx, models.FamilyMembership, workspaceID))
}

// Get returns any record by family and id.
func (e *SyncEngine) Get(ctx context.Context, f models.Family, id string) (models.Entity, error) {
	rec, err := e.store.Entities.Get(ctx, f, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", f, id, err)
	}
	return rec, nil
}
