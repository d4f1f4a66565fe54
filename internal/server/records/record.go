// Package records stores workspace entities on the server and implements the
// sync service on top of them.
//
// Every entity family shares one table. A record's workspace id is the id of
// the workspace at the root of its parent chain; a workspace points at itself.
package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

type Record struct {
	ID          string
	Family      models.Family
	ParentID    string
	WorkspaceID string
	// Data is the JSON encoding of the entity's domain fields.
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord flattens e into a record belonging to workspaceID.
func NewRecord(e models.Entity, workspaceID string, now time.Time) (*Record, error) {
	data, err := json.Marshal(e.Fields())
	if err != nil {
		return nil, fmt.Errorf("encode %s fields: %w", e.Family(), err)
	}
	return &Record{
		ID:          e.GetID(),
		Family:      e.Family(),
		ParentID:    e.ParentID(),
		WorkspaceID: workspaceID,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Entity rebuilds the typed entity stored in r.
func (r *Record) Entity() (models.Entity, error) {
	e := models.NewEntity(r.Family)
	if e == nil {
		return nil, fmt.Errorf("record %s has unknown family %q", r.ID, r.Family)
	}
	e.SetID(r.ID)
	e.SetParentID(r.ParentID)
	if err := json.Unmarshal(r.Data, e.Fields()); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", r.Family, r.ID, err)
	}
	return e, nil
}

func (r *Record) clone() *Record {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}
