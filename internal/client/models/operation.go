package models

import "time"

// PendingOperation is one queued mutation awaiting replay against the server.
// Seq is assigned by the store and is strictly increasing.
type PendingOperation struct {
	Seq        int64
	Kind       Kind
	TargetID   string
	Payload    Payload
	EnqueuedAt time.Time
	RetryCount int
	LastError  string
}

// SyncMetadata records when a workspace was last refreshed from the server.
type SyncMetadata struct {
	WorkspaceID string
	LastPullAt  time.Time
}

// SyncFailure is an operation that was evicted from the queue after it
// could not be applied.
type SyncFailure struct {
	ID       int64
	Kind     Kind
	TargetID string
	Attempts int
	Error    string
	FailedAt time.Time
}

// Snapshot is the server-side state of one workspace.
type Snapshot struct {
	Workspace   *Workspace    `json:"workspace"`
	Projects    []*Project    `json:"projects,omitempty"`
	Memberships []*Membership `json:"memberships,omitempty"`
	Messages    []*Message    `json:"messages,omitempty"`
	Tasks       []*Task       `json:"tasks,omitempty"`
	Comments    []*Comment    `json:"comments,omitempty"`
}

// Entities flattens the snapshot so that every parent precedes its children.
func (s *Snapshot) Entities() []Entity {
	var out []Entity
	if s.Workspace != nil {
		out = append(out, s.Workspace)
	}
	for _, e := range s.Projects {
		out = append(out, e)
	}
	for _, e := range s.Memberships {
		out = append(out, e)
	}
	for _, e := range s.Messages {
		out = append(out, e)
	}
	for _, e := range s.Tasks {
		out = append(out, e)
	}
	for _, e := range s.Comments {
		out = append(out, e)
	}
	return out
}

// Add places e into the matching slice of the snapshot.
func (s *Snapshot) Add(e Entity) {
	switch v := e.(type) {
	case *Workspace:
		s.Workspace = v
	case *Project:
		s.Projects = append(s.Projects, v)
	case *Membership:
		s.Memberships = append(s.Memberships, v)
	case *Message:
		s.Messages = append(s.Messages, v)
	case *Task:
		s.Tasks = append(s.Tasks, v)
	case *Comment:
		s.Comments = append(s.Comments, v)
	}
}
