package models

import (
	"encoding/json"
	"fmt"
)

// Payload is the closed union of queued mutations. The only implementations
// are *Create[E], *Update[E] and *Delete[E] for the six entity types.
type Payload interface {
	Kind() Kind
	Family() Family
	Action() Action
	// TargetID is the id of the record the mutation applies to.
	TargetID() string
	// Record is the full entity carried by creates and updates; nil for deletes.
	Record() Entity
	// Refs lists ids of other records the mutation depends on: the parent of
	// a create, the target and parent of an update, the target of a delete.
	Refs() []string
	// Remap rewrites every occurrence of oldID and reports whether anything changed.
	Remap(oldID, newID string) bool

	body() any
}

func familyOf[E Entity]() Family {
	var e E
	return e.Family()
}

func remapEntity(e Entity, oldID, newID string) bool {
	changed := false
	if e.GetID() == oldID {
		e.SetID(newID)
		changed = true
	}
	if p := e.ParentID(); p != "" && p == oldID {
		e.SetParentID(newID)
		changed = true
	}
	return changed
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Create inserts a new record.
type Create[E Entity] struct {
	Entity E
}

func NewCreate[E Entity](e E) *Create[E] { return &Create[E]{Entity: e} }

func (p *Create[E]) Kind() Kind { return KindFor(p.Family(), ActionCreate) }
func (p *Create[E]) Family() Family { return familyOf[E]() }
func (p *Create[E]) Action() Action { return ActionCreate }
func (p *Create[E]) TargetID() string { return p.Entity.GetID() }
func (p *Create[E]) Record() Entity { return p.Entity }
func (p *Create[E]) Refs() []string { return nonEmpty(p.Entity.ParentID()) }
func (p *Create[E]) body() any { return p.Entity }

func (p *Create[E]) Remap(oldID, newID string) bool {
	return remapEntity(p.Entity, oldID, newID)
}

// Update replaces the domain fields of an existing record.
type Update[E Entity] struct {
	Entity E
}

func NewUpdate[E Entity](e E) *Update[E] { return &Update[E]{Entity: e} }

func (p *Update[E]) Kind() Kind { return KindFor(p.Family(), ActionUpdate) }
func (p *Update[E]) Family() Family { return familyOf[E]() }
func (p *Update[E]) Action() Action { return ActionUpdate }
func (p *Update[E]) TargetID() string { return p.Entity.GetID() }
func (p *Update[E]) Record() Entity { return p.Entity }
func (p *Update[E]) body() any { return p.Entity }

func (p *Update[E]) Refs() []string {
	return nonEmpty(p.Entity.GetID(), p.Entity.ParentID())
}

func (p *Update[E]) Remap(oldID, newID string) bool {
	return remapEntity(p.Entity, oldID, newID)
}

// Delete removes a record and, transitively, its children.
type Delete[E Entity] struct {
	ID string `json:"id"`
}

func NewDelete[E Entity](id string) *Delete[E] { return &Delete[E]{ID: id} }

func (p *Delete[E]) Kind() Kind { return KindFor(p.Family(), ActionDelete) }
func (p *Delete[E]) Family() Family { return familyOf[E]() }
func (p *Delete[E]) Action() Action { return ActionDelete }
func (p *Delete[E]) TargetID() string { return p.ID }
func (p *Delete[E]) Record() Entity { return nil }
func (p *Delete[E]) Refs() []string { return nonEmpty(p.ID) }
func (p *Delete[E]) body() any { return p }

func (p *Delete[E]) Remap(oldID, newID string) bool {
	if p.ID != oldID {
		return false
	}
	p.ID = newID
	return true
}

// CreateOf wraps an entity whose concrete type is only known at run time.
func CreateOf(e Entity) (Payload, error) {
	switch v := e.(type) {
	case *Workspace:
		return NewCreate(v), nil
	case *Project:
		return NewCreate(v), nil
	case *Task:
		return NewCreate(v), nil
	case *Message:
		return NewCreate(v), nil
	case *Comment:
		return NewCreate(v), nil
	case *Membership:
		return NewCreate(v), nil
	}
	return nil, fmt.Errorf("unsupported entity %T", e)
}

// UpdateOf is the update counterpart of CreateOf.
func UpdateOf(e Entity) (Payload, error) {
	switch v := e.(type) {
	case *Workspace:
		return NewUpdate(v), nil
	case *Project:
		return NewUpdate(v), nil
	case *Task:
		return NewUpdate(v), nil
	case *Message:
		return NewUpdate(v), nil
	case *Comment:
		return NewUpdate(v), nil
	case *Membership:
		return NewUpdate(v), nil
	}
	return nil, fmt.Errorf("unsupported entity %T", e)
}

// DeleteOf builds a delete for a family known only at run time.
func DeleteOf(f Family, id string) (Payload, error) {
	switch f {
	case FamilyWorkspace:
		return NewDelete[*Workspace](id), nil
	case FamilyProject:
		return NewDelete[*Project](id), nil
	case FamilyTask:
		return NewDelete[*Task](id), nil
	case FamilyMessage:
		return NewDelete[*Message](id), nil
	case FamilyComment:
		return NewDelete[*Comment](id), nil
	case FamilyMembership:
		return NewDelete[*Membership](id), nil
	}
	return nil, fmt.Errorf("unknown family %q", f)
}

// EncodePayload returns the JSON body stored in the queue and sent on the wire.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p.body())
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return data, nil
}

// DecodePayload is the inverse of EncodePayload for a given kind.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindWorkspaceCreate:
		return decodeCreate(data, &Workspace{})
	case KindWorkspaceUpdate:
		return decodeUpdate(data, &Workspace{})
	case KindWorkspaceDelete:
		return decodeDelete[*Workspace](data)
	case KindProjectCreate:
		return decodeCreate(data, &Project{})
	case KindProjectUpdate:
		return decodeUpdate(data, &Project{})
	case KindProjectDelete:
		return decodeDelete[*Project](data)
	case KindTaskCreate:
		return decodeCreate(data, &Task{})
	case KindTaskUpdate:
		return decodeUpdate(data, &Task{})
	case KindTaskDelete:
		return decodeDelete[*Task](data)
	case KindMessageSend:
		return decodeCreate(data, &Message{})
	case KindMessageUpdate:
		return decodeUpdate(data, &Message{})
	case KindMessageDelete:
		return decodeDelete[*Message](data)
	case KindCommentAdd:
		return decodeCreate(data, &Comment{})
	case KindCommentUpdate:
		return decodeUpdate(data, &Comment{})
	case KindCommentDelete:
		return decodeDelete[*Comment](data)
	case KindMembershipCreate:
		return decodeCreate(data, &Membership{})
	case KindMembershipUpdate:
		return decodeUpdate(data, &Membership{})
	case KindMembershipDelete:
		return decodeDelete[*Membership](data)
	}
	return nil, fmt.Errorf("unknown operation kind %q", kind)
}

func decodeCreate[E Entity](data []byte, e E) (Payload, error) {
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s create: %w", e.Family(), err)
	}
	return &Create[E]{Entity: e}, nil
}

func decodeUpdate[E Entity](data []byte, e E) (Payload, error) {
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s update: %w", e.Family(), err)
	}
	return &Update[E]{Entity: e}, nil
}

func decodeDelete[E Entity](data []byte) (Payload, error) {
	p := &Delete[E]{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s delete: %w", familyOf[E](), err)
	}
	return p, nil
}
