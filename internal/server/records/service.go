package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/dmitrijs2005/teamspace/internal/logging"
	"github.com/dmitrijs2005/teamspace/internal/server/auth"
	"github.com/google/uuid"
)

// ErrParentNotFound rejects a create whose parent the server does not have.
var ErrParentNotFound = errors.New("parent record not found")

// Service applies replayed mutations and serves workspace snapshots.
// Server ids are UUIDs; anything else is reported as not found.
type Service struct {
	repo   Repository
	logger logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("module", "records"), now: time.Now}
}

func (s *Service) Ping(ctx context.Context) error { return nil }

func (s *Service) lookup(ctx context.Context, f models.Family, id string) (*Record, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%s %s: %w", f, id, common.ErrorNotFound)
	}
	rec, err := s.repo.Get(ctx, f, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", f, id, err)
	}
	return rec, nil
}

// Mutate applies p and returns the stored entity, or nil for a delete.
func (s *Service) Mutate(ctx context.Context, p models.Payload) (models.Entity, error) {
	switch p.Action() {
	case models.ActionCreate:
		return s.create(ctx, p.Record())
	case models.ActionUpdate:
		return s.update(ctx, p.Record())
	case models.ActionDelete:
		return nil, s.delete(ctx, p.Family(), p.TargetID())
	}
	return nil, fmt.Errorf("%w: unsupported action %q", common.ErrorValidation, p.Action())
}

func (s *Service) create(ctx context.Context, e models.Entity) (models.Entity, error) {
	if d, ok := e.(models.Defaulter); ok {
		d.ApplyDefaults()
	}
	setAuthor(e, auth.UserIDFromContext(ctx))
	if err := e.Validate(); err != nil {
		return nil, err
	}

	workspaceID := ""
	if rel, ok := models.ParentOf(e.Family()); ok {
		parent, err := s.lookup(ctx, rel.Parent, e.ParentID())
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrParentNotFound, rel.Parent, e.ParentID())
		}
		if err != nil {
			return nil, err
		}
		workspaceID = parent.WorkspaceID
	}

	e.SetID(uuid.NewString())
	if workspaceID == "" {
		workspaceID = e.GetID()
	}

	rec, err := NewRecord(e, workspaceID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Record created", "family", e.Family(), "id", e.GetID(), "workspace", workspaceID)
	return e, nil
}

func (s *Service) update(ctx context.Context, e models.Entity) (models.Entity, error) {
	rec, err := s.lookup(ctx, e.Family(), e.GetID())
	if err != nil {
		return nil, err
	}
	cur, err := rec.Entity()
	if err != nil {
		return nil, err
	}

	// Records never move and keep their original author.
	e.SetParentID(rec.ParentID)
	setAuthor(e, authorOf(cur))
	if err := e.Validate(); err != nil {
		return nil, err
	}

	next, err := NewRecord(e, rec.WorkspaceID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("%s %s: %w", e.Family(), e.GetID(), err)
	}
	s.logger.Info(ctx, "Record updated", "family", e.Family(), "id", e.GetID())
	return e, nil
}

func (s *Service) delete(ctx context.Context, f models.Family, id string) error {
	if _, err := s.lookup(ctx, f, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, f, id); err != nil {
		return fmt.Errorf("%s %s: %w", f, id, err)
	}
	s.logger.Info(ctx, "Record deleted", "family", f, "id", id)
	return nil
}

// Fetch returns every record of the workspace.
func (s *Service) Fetch(ctx context.Context, workspaceID string) (*models.Snapshot, error) {
	if _, err := s.lookup(ctx, models.FamilyWorkspace, workspaceID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{}
	for _, rec := range list {
		e, err := rec.Entity()
		if err != nil {
			return nil, err
		}
		snap.Add(e)
	}
	return snap, nil
}

func setAuthor(e models.Entity, userID string) {
	if userID == "" {
		return
	}
	switch v := e.(type) {
	case *models.Message:
		v.AuthorID = userID
	case *models.Comment:
		v.AuthorID = userID
	}
}

func authorOf(e models.Entity) string {
	switch v := e.(type) {
	case *models.Message:
		return v.AuthorID
	case *models.Comment:
		return v.AuthorID
	}
	return ""
}
