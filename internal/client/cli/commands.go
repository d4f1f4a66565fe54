package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

type command struct {
	usage string
	// args is the minimum number of positional arguments.
	args int
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"workspaces":   {usage: "workspaces", run: (*App).listWorkspaces},
	"use":          {usage: "use <workspace-id>", args: 1, run: (*App).use},
	"addworkspace": {usage: "addworkspace", run: (*App).addWorkspace},
	"addproject":   {usage: "addproject", run: (*App).addProject},
	"projects":     {usage: "projects", run: (*App).listProjects},
	"addtask":      {usage: "addtask <project-id>", args: 1, run: (*App).addTask},
	"tasks":        {usage: "tasks <project-id>", args: 1, run: (*App).listTasks},
	"move":         {usage: "move <task-id> <todo|in_progress|done>", args: 2, run: (*App).moveTask},
	"send":         {usage: "send [text]", run: (*App).sendMessage},
	"messages":     {usage: "messages", run: (*App).listMessages},
	"comment":      {usage: "comment <task-id> [text]", args: 1, run: (*App).addComment},
	"comments":     {usage: "comments <task-id>", args: 1, run: (*App).listComments},
	"addmember":    {usage: "addmember", run: (*App).addMember},
	"members":      {usage: "members", run: (*App).listMembers},
	"edit":         {usage: "edit <family> <id>", args: 2, run: (*App).edit},
	"delete":       {usage: "delete <family> <id>", args: 2, run: (*App).delete},
	"sync":         {usage: "sync", run: (*App).sync},
	"pull":         {usage: "pull", run: (*App).pull},
	"status":       {usage: "status", run: (*App).status},
	"pending":      {usage: "pending", run: (*App).pending},
	"failures":     {usage: "failures", run: (*App).failures},
	"dismiss":      {usage: "dismiss [failure-id...]", run: (*App).dismiss},
	"online":       {usage: "online", run: (*App).goOnline},
	"offline":      {usage: "offline", run: (*App).goOffline},
}

func helpText() string {
	usages := make([]string, 0, len(commands))
	for _, c := range commands {
		usages = append(usages, "  "+c.usage)
	}
	sort.Strings(usages)
	return "Available commands:\n" + strings.Join(usages, "\n") + "\n  help\n  exit"
}

// Exec runs a single REPL command.
func (a *App) Exec(ctx context.Context, cmd string, args []string) error {
	c, ok := commands[cmd]
	if !ok {
		return errUnknownCommand
	}
	if len(args) < c.args {
		return fmt.Errorf("usage: %s", c.usage)
	}
	return c.run(a, ctx, args)
}

var errNoWorkspace = errors.New("no active workspace, select one with 'use <workspace-id>'")

// activeWorkspace returns the selected workspace, following an id change made
// by a sync since it was selected.
func (a *App) activeWorkspace() (string, error) {
	id := a.scheduler.Workspace()
	if id == "" {
		return "", errNoWorkspace
	}
	if resolved := a.engine.ResolveID(id); resolved != id {
		a.scheduler.SetWorkspace(resolved)
		id = resolved
	}
	return id, nil
}

func (a *App) write(ctx context.Context, p models.Payload) (models.Entity, error) {
	rec, err := a.engine.Write(ctx, p)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		fmt.Fprintf(a.out, "Saved %s %s\n", rec.Family(), rec.GetID())
	} else {
		fmt.Fprintf(a.out, "Deleted %s %s\n", p.Family(), p.TargetID())
	}
	return rec, nil
}

func (a *App) use(ctx context.Context, args []string) error {
	id := a.engine.ResolveID(args[0])
	a.scheduler.SetWorkspace(id)
	fmt.Fprintf(a.out, "Active workspace: %s\n", id)
	if a.monitor.Online() && !models.IsTempID(id) {
		return a.pull(ctx, nil)
	}
	return nil
}

func (a *App) addWorkspace(ctx context.Context, _ []string) error {
	ws := &models.Workspace{}
	if err := a.fill(ws); err != nil {
		return err
	}
	rec, err := a.write(ctx, models.NewCreate(ws))
	if err != nil {
		return err
	}
	if a.scheduler.Workspace() == "" {
		a.scheduler.SetWorkspace(rec.GetID())
	}
	return nil
}

func (a *App) addProject(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	p := &models.Project{WorkspaceID: wsID}
	if err := a.fill(p); err != nil {
		return err
	}
	_, err = a.write(ctx, models.NewCreate(p))
	return err
}

func (a *App) addTask(ctx context.Context, args []string) error {
	t := &models.Task{ProjectID: a.engine.ResolveID(args[0])}
	if err := a.fill(t); err != nil {
		return err
	}
	_, err := a.write(ctx, models.NewCreate(t))
	return err
}

func (a *App) moveTask(ctx context.Context, args []string) error {
	t, err := a.engine.Task(ctx, a.engine.ResolveID(args[0]))
	if err != nil {
		return err
	}
	t.Status = models.TaskStatus(args[1])
	_, err = a.write(ctx, models.NewUpdate(t))
	return err
}

func (a *App) sendMessage(ctx context.Context, args []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	m := &models.Message{WorkspaceID: wsID}
	m.Body = strings.Join(args, " ")
	if m.Body == "" {
		if err := a.fill(m); err != nil {
			return err
		}
	}
	_, err = a.write(ctx, models.NewCreate(m))
	return err
}

func (a *App) addComment(ctx context.Context, args []string) error {
	c := &models.Comment{TaskID: a.engine.ResolveID(args[0])}
	c.Body = strings.Join(args[1:], " ")
	if c.Body == "" {
		if err := a.fill(c); err != nil {
			return err
		}
	}
	_, err := a.write(ctx, models.NewCreate(c))
	return err
}

func (a *App) addMember(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	m := &models.Membership{WorkspaceID: wsID}
	if err := a.fill(m); err != nil {
		return err
	}
	_, err = a.write(ctx, models.NewCreate(m))
	return err
}

func parseFamily(s string) (models.Family, error) {
	f := models.Family(strings.ToLower(s))
	if !f.Valid() {
		return "", fmt.Errorf("unknown family %q", s)
	}
	return f, nil
}

func (a *App) edit(ctx context.Context, args []string) error {
	f, err := parseFamily(args[0])
	if err != nil {
		return err
	}
	rec, err := a.engine.Get(ctx, f, a.engine.ResolveID(args[1]))
	if err != nil {
		return err
	}
	if err := a.fill(rec); err != nil {
		return err
	}
	p, err := models.UpdateOf(rec)
	if err != nil {
		return err
	}
	_, err = a.write(ctx, p)
	return err
}

func (a *App) delete(ctx context.Context, args []string) error {
	f, err := parseFamily(args[0])
	if err != nil {
		return err
	}
	p, err := models.DeleteOf(f, a.engine.ResolveID(args[1]))
	if err != nil {
		return err
	}
	_, err = a.write(ctx, p)
	return err
}

// fill prompts for the user-editable fields of rec, offering current values.
func (a *App) fill(rec models.Entity) error {
	ask := func(dst *string, prompt string) error {
		v, err := GetWithDefault(a.reader, prompt, *dst, a.out)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	switch v := rec.(type) {
	case *models.Workspace:
		return ask(&v.Name, "Workspace name")
	case *models.Project:
		if err := ask(&v.Name, "Project name"); err != nil {
			return err
		}
		return ask(&v.Description, "Description")
	case *models.Task:
		status := string(v.Status)
		for _, q := range []struct {
			dst    *string
			prompt string
		}{
			{&v.Name, "Task name"},
			{&v.Description, "Description"},
			{&status, "Status (todo, in_progress, done)"},
			{&v.DueDate, "Due date (YYYY-MM-DD)"},
			{&v.AssigneeID, "Assignee user id"},
		} {
			if err := ask(q.dst, q.prompt); err != nil {
				return err
			}
		}
		v.Status = models.TaskStatus(status)
		return nil
	case *models.Message:
		return ask(&v.Body, "Message")
	case *models.Comment:
		return ask(&v.Body, "Comment")
	case *models.Membership:
		if err := ask(&v.UserID, "User id"); err != nil {
			return err
		}
		role := string(v.Role)
		if err := ask(&role, "Role (owner, admin, member)"); err != nil {
			return err
		}
		v.Role = models.Role(role)
		return nil
	}
	return fmt.Errorf("cannot edit %s", rec.Family())
}

func (a *App) sync(ctx context.Context, _ []string) error {
	rep, err := a.engine.TriggerSync(ctx)
	if err != nil {
		return err
	}
	if rep.Skipped {
		return nil
	}
	fmt.Fprintf(a.out, "Synced %d, failed %d, remaining %d\n", rep.Synced, rep.Failed, rep.Remaining)
	return nil
}

func (a *App) pull(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	rep, err := a.engine.Pull(ctx, wsID)
	if err != nil {
		return err
	}
	if rep.Skipped {
		fmt.Fprintln(a.out, "Sync in progress, try 'pull' again when it finishes")
		return nil
	}
	fmt.Fprintf(a.out, "Pulled %s: %d updated, %d kept local, %d removed\n",
		wsID, rep.Applied, rep.Kept, rep.Removed)
	return nil
}

func (a *App) dismiss(ctx context.Context, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid failure id %q", s)
		}
		ids = append(ids, id)
	}
	n, err := a.engine.DismissFailures(ctx, ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Dismissed %d\n", n)
	return nil
}

func (a *App) goOnline(ctx context.Context, _ []string) error {
	a.prober.offline.Store(false)
	if !a.monitor.Probe(ctx, a.prober, probeTimeout) {
		fmt.Fprintln(a.out, "Server is not reachable")
	}
	return nil
}

func (a *App) goOffline(ctx context.Context, _ []string) error {
	a.prober.offline.Store(true)
	a.monitor.Set(false)
	return nil
}
