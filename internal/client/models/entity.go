package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/common"
)

// SyncState is the local bookkeeping carried by every entity. It never
// travels over the wire.
type SyncState struct {
	IsDirty   bool       `json:"-"`
	UpdatedAt time.Time  `json:"-"`
	SyncedAt  *time.Time `json:"-"`
}

// State gives access to the embedded bookkeeping.
func (s *SyncState) State() *SyncState { return s }

// Entity is implemented by pointers to the six entity structs.
//
// Family must not dereference the receiver: it is called on typed nil
// pointers to learn the family of a generic payload.
type Entity interface {
	Family() Family
	GetID() string
	SetID(id string)
	// ParentID is the value of the family's foreign key column, or "" for
	// root families.
	ParentID() string
	SetParentID(id string)
	State() *SyncState
	// Fields returns a pointer to the domain fields stored in the data column.
	Fields() any
	Validate() error
}

// Defaulter is implemented by entities with optional fields that get a value
// on creation.
type Defaulter interface {
	ApplyDefaults()
}

// NewEntity returns an empty entity of family f, or nil for an unknown family.
func NewEntity(f Family) Entity {
	switch f {
	case FamilyWorkspace:
		return &Workspace{}
	case FamilyProject:
		return &Project{}
	case FamilyTask:
		return &Task{}
	case FamilyMessage:
		return &Message{}
	case FamilyComment:
		return &Comment{}
	case FamilyMembership:
		return &Membership{}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

type WorkspaceFields struct {
	Name string `json:"name"`
}

type Workspace struct {
	ID string `json:"id"`
	WorkspaceFields
	SyncState
}

func (w *Workspace) Family() Family { return FamilyWorkspace }
func (w *Workspace) GetID() string { return w.ID }
func (w *Workspace) SetID(id string) { w.ID = id }
func (w *Workspace) ParentID() string { return "" }
func (w *Workspace) SetParentID(string) {}
func (w *Workspace) Fields() any { return &w.WorkspaceFields }
func (w *Workspace) Validate() error {
	if blank(w.Name) {
		return invalid("workspace name is required")
	}
	return nil
}

type ProjectFields struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	ProjectFields
	SyncState
}

func (p *Project) Family() Family { return FamilyProject }
func (p *Project) GetID() string { return p.ID }
func (p *Project) SetID(id string) { p.ID = id }
func (p *Project) ParentID() string { return p.WorkspaceID }
func (p *Project) SetParentID(id string) { p.WorkspaceID = id }
func (p *Project) Fields() any { return &p.ProjectFields }
func (p *Project) Validate() error {
	if blank(p.WorkspaceID) {
		return invalid("project must belong to a workspace")
	}
	if blank(p.Name) {
		return invalid("project name is required")
	}
	return nil
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// DueDateLayout is the calendar-date format of Task.DueDate.
const DueDateLayout = "2006-01-02"

type TaskFields struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     string     `json:"due_date,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
}

type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	TaskFields
	SyncState
}

func (t *Task) Family() Family { return FamilyTask }
func (t *Task) GetID() string { return t.ID }
func (t *Task) SetID(id string) { t.ID = id }
func (t *Task) ParentID() string { return t.ProjectID }
func (t *Task) SetParentID(id string) { t.ProjectID = id }
func (t *Task) Fields() any { return &t.TaskFields }

// ApplyDefaults fills fields a new task may omit.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskTodo
	}
}

func (t *Task) Validate() error {
	if blank(t.ProjectID) {
		return invalid("task must belong to a project")
	}
	if blank(t.Name) {
		return invalid("task name is required")
	}
	switch t.Status {
	case TaskTodo, TaskInProgress, TaskDone:
	default:
		return invalid("unknown task status %q", t.Status)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DueDateLayout, t.DueDate); err != nil {
			return invalid("due date %q is not YYYY-MM-DD", t.DueDate)
		}
	}
	return nil
}

type MessageFields struct {
	Body     string `json:"body"`
	AuthorID string `json:"author_id,omitempty"`
}

// Message is a chat message posted to a workspace channel.
type Message struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	MessageFields
	SyncState
}

func (m *Message) Family() Family { return FamilyMessage }
func (m *Message) GetID() string { return m.ID }
func (m *Message) SetID(id string) { m.ID = id }
func (m *Message) ParentID() string { return m.WorkspaceID }
func (m *Message) SetParentID(id string) { m.WorkspaceID = id }
func (m *Message) Fields() any { return &m.MessageFields }
func (m *Message) Validate() error {
	if blank(m.WorkspaceID) {
		return invalid("message must belong to a workspace")
	}
	if blank(m.Body) {
		return invalid("message body is required")
	}
	return nil
}

type CommentFields struct {
	Body     string `json:"body"`
	AuthorID string `json:"author_id,omitempty"`
}

type Comment struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	CommentFields
	SyncState
}

func (c *Comment) Family() Family { return FamilyComment }
func (c *Comment) GetID() string { return c.ID }
func (c *Comment) SetID(id string) { c.ID = id }
func (c *Comment) ParentID() string { return c.TaskID }
func (c *Comment) SetParentID(id string) { c.TaskID = id }
func (c *Comment) Fields() any { return &c.CommentFields }
func (c *Comment) Validate() error {
	if blank(c.TaskID) {
		return invalid("comment must belong to a task")
	}
	if blank(c.Body) {
		return invalid("comment body is required")
	}
	return nil
}

// Role is a member's permission level inside a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type MembershipFields struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

type Membership struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	MembershipFields
	SyncState
}

func (m *Membership) Family() Family { return FamilyMembership }
func (m *Membership) GetID() string { return m.ID }
func (m *Membership) SetID(id string) { m.ID = id }
func (m *Membership) ParentID() string { return m.WorkspaceID }
func (m *Membership) SetParentID(id string) { m.WorkspaceID = id }
func (m *Membership) Fields() any { return &m.MembershipFields }

func (m *Membership) ApplyDefaults() {
	if m.Role == "" {
		m.Role = RoleMember
	}
}

func (m *Membership) Validate() error {
	if blank(m.WorkspaceID) {
		return invalid("membership must belong to a workspace")
	}
	if blank(m.UserID) {
		return invalid("membership user is required")
	}
	switch m.Role {
	case RoleOwner, RoleAdmin, RoleMember:
	default:
		return invalid("unknown role %q", m.Role)
	}
	return nil
}
