package records

import (
	"context"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

// Repository persists records. Lookups are scoped by family so that an id of
// one family never resolves to a record of another.
type Repository interface {
	Insert(ctx context.Context, r *Record) error
	// Update replaces Data and UpdatedAt. Returns common.ErrorNotFound when
	// no such record exists.
	Update(ctx context.Context, r *Record) error
	Get(ctx context.Context, f models.Family, id string) (*Record, error)
	// Delete removes the record and all of its descendants.
	Delete(ctx context.Context, f models.Family, id string) error
	// ListWorkspace returns every record of the workspace, oldest first.
	ListWorkspace(ctx context.Context, workspaceID string) ([]*Record, error)
}
