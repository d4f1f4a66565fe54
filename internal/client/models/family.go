// Package models defines the workspace entities kept in the local store,
// the pending-operation payloads that replay them against the server, and the
// static parent/child relation table used for remapping and cascades.
package models

// Family names one kind of entity. Each family has its own table locally and
// its own set of mutation kinds on the wire.
type Family string

const (
	FamilyWorkspace  Family = "workspace"
	FamilyProject    Family = "project"
	FamilyTask       Family = "task"
	FamilyMessage    Family = "message"
	FamilyComment    Family = "comment"
	FamilyMembership Family = "membership"
)

// Families lists every family parent-first.
var Families = []Family{
	FamilyWorkspace,
	FamilyProject,
	FamilyMembership,
	FamilyMessage,
	FamilyTask,
	FamilyComment,
}

// Table returns the local table name of the family.
func (f Family) Table() string {
	switch f {
	case FamilyWorkspace:
		return "workspaces"
	case FamilyProject:
		return "projects"
	case FamilyTask:
		return "tasks"
	case FamilyMessage:
		return "messages"
	case FamilyComment:
		return "comments"
	case FamilyMembership:
		return "memberships"
	}
	return ""
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f.Table() != ""
}

// Relation is one edge of the parent/child graph: rows of Child point at a
// row of Parent through Column.
type Relation struct {
	Child  Family
	Column string
	Parent Family
}

// Relations is the full, static relation table.
var Relations = []Relation{
	{Child: FamilyProject, Column: "workspace_id", Parent: FamilyWorkspace},
	{Child: FamilyMembership, Column: "workspace_id", Parent: FamilyWorkspace},
	{Child: FamilyMessage, Column: "workspace_id", Parent: FamilyWorkspace},
	{Child: FamilyTask, Column: "project_id", Parent: FamilyProject},
	{Child: FamilyComment, Column: "task_id", Parent: FamilyTask},
}

// ChildrenOf returns the relations whose parent is f.
func ChildrenOf(f Family) []Relation {
	var out []Relation
	for _, r := range Relations {
		if r.Parent == f {
			out = append(out, r)
		}
	}
	return out
}

// ParentOf returns the relation in which f is the child. ok is false for
// root families.
func ParentOf(f Family) (rel Relation, ok bool) {
	for _, r := range Relations {
		if r.Child == f {
			return r, true
		}
	}
	return Relation{}, false
}
