package entities

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Ref points at one stored row.
type Ref struct {
	Family models.Family
	ID     string
}

type Repository interface {
	// Upsert writes e including its sync bookkeeping.
	Upsert(ctx context.Context, e models.Entity) error
	// Get returns common.ErrorNotFound when the row does not exist.
	Get(ctx context.Context, f models.Family, id string) (models.Entity, error)
	Exists(ctx context.Context, f models.Family, id string) (bool, error)
	List(ctx context.Context, f models.Family) ([]models.Entity, error)
	ListByParent(ctx context.Context, f models.Family, parentID string) ([]models.Entity, error)
	// Delete removes a single row and reports whether it existed.
	Delete(ctx context.Context, f models.Family, id string) (bool, error)
	// CascadeDelete removes the row and every descendant, returning what was removed.
	CascadeDelete(ctx context.Context, f models.Family, id string) ([]Ref, error)
	// RemapID renames a row and rewrites the foreign keys of its children.
	RemapID(ctx context.Context, f models.Family, oldID, newID string) error
	MarkClean(ctx context.Context, f models.Family, id string, syncedAt time.Time) error
	// WorkspaceRefs lists the workspace row and everything below it.
	WorkspaceRefs(ctx context.Context, workspaceID string) ([]Ref, error)
}
