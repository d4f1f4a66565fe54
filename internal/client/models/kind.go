package models

// Action is the mutation a pending operation replays.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Kind identifies one of the closed set of queued mutations.
type Kind string

const (
	KindWorkspaceCreate Kind = "workspace.create"
	KindWorkspaceUpdate Kind = "workspace.update"
	KindWorkspaceDelete Kind = "workspace.delete"

	KindProjectCreate Kind = "project.create"
	KindProjectUpdate Kind = "project.update"
	KindProjectDelete Kind = "project.delete"

	KindTaskCreate Kind = "task.create"
	KindTaskUpdate Kind = "task.update"
	KindTaskDelete Kind = "task.delete"

	KindMessageSend   Kind = "message.send"
	KindMessageUpdate Kind = "message.update"
	KindMessageDelete Kind = "message.delete"

	KindCommentAdd    Kind = "comment.add"
	KindCommentUpdate Kind = "comment.update"
	KindCommentDelete Kind = "comment.delete"

	KindMembershipCreate Kind = "membership.create"
	KindMembershipUpdate Kind = "membership.update"
	KindMembershipDelete Kind = "membership.delete"
)

type kindInfo struct {
	family Family
	action Action
}

var kinds = map[Kind]kindInfo{
	KindWorkspaceCreate:  {FamilyWorkspace, ActionCreate},
	KindWorkspaceUpdate:  {FamilyWorkspace, ActionUpdate},
	KindWorkspaceDelete:  {FamilyWorkspace, ActionDelete},
	KindProjectCreate:    {FamilyProject, ActionCreate},
	KindProjectUpdate:    {FamilyProject, ActionUpdate},
	KindProjectDelete:    {FamilyProject, ActionDelete},
	KindTaskCreate:       {FamilyTask, ActionCreate},
	KindTaskUpdate:       {FamilyTask, ActionUpdate},
	KindTaskDelete:       {FamilyTask, ActionDelete},
	KindMessageSend:      {FamilyMessage, ActionCreate},
	KindMessageUpdate:    {FamilyMessage, ActionUpdate},
	KindMessageDelete:    {FamilyMessage, ActionDelete},
	KindCommentAdd:       {FamilyComment, ActionCreate},
	KindCommentUpdate:    {FamilyComment, ActionUpdate},
	KindCommentDelete:    {FamilyComment, ActionDelete},
	KindMembershipCreate: {FamilyMembership, ActionCreate},
	KindMembershipUpdate: {FamilyMembership, ActionUpdate},
	KindMembershipDelete: {FamilyMembership, ActionDelete},
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, f := range Families {
		for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			out = append(out, KindFor(f, a))
		}
	}
	return out
}

// KindFor returns the kind that performs action a on family f.
func KindFor(f Family, a Action) Kind {
	for k, info := range kinds {
		if info.family == f && info.action == a {
			return k
		}
	}
	return ""
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) Family() Family { return kinds[k].family }

func (k Kind) Action() Action { return kinds[k].action }
