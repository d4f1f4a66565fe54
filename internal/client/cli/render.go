package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

func table(w io.Writer, header string, rows func(tw io.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

// mark flags records with changes the server has not acknowledged.
func mark(e models.Entity) string {
	if e.State().IsDirty {
		return "*"
	}
	return ""
}

func (a *App) listWorkspaces(ctx context.Context, _ []string) error {
	list, err := a.engine.Workspaces(ctx)
	if err != nil {
		return err
	}
	active := a.engine.ResolveID(a.scheduler.Workspace())
	return table(a.out, "\tID\tNAME\t", func(tw io.Writer) {
		for _, w := range list {
			cur := ""
			if w.ID == active {
				cur = "> "
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\t\n", cur, mark(w), w.ID, w.Name)
		}
	})
}

func (a *App) listProjects(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	list, err := a.engine.Projects(ctx, wsID)
	if err != nil {
		return err
	}
	return table(a.out, "\tID\tNAME\tDESCRIPTION\t", func(tw io.Writer) {
		for _, p := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", mark(p), p.ID, p.Name, p.Description)
		}
	})
}

func (a *App) listTasks(ctx context.Context, args []string) error {
	list, err := a.engine.Tasks(ctx, a.engine.ResolveID(args[0]))
	if err != nil {
		return err
	}
	return table(a.out, "\tID\tNAME\tSTATUS\tDUE\tASSIGNEE\t", func(tw io.Writer) {
		for _, t := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", mark(t), t.ID, t.Name, t.Status, t.DueDate, t.AssigneeID)
		}
	})
}

func (a *App) listMessages(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	list, err := a.engine.Messages(ctx, wsID)
	if err != nil {
		return err
	}
	return table(a.out, "\tID\tAUTHOR\tMESSAGE\t", func(tw io.Writer) {
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", mark(m), m.ID, m.AuthorID, m.Body)
		}
	})
}

func (a *App) listComments(ctx context.Context, args []string) error {
	list, err := a.engine.Comments(ctx, a.engine.ResolveID(args[0]))
	if err != nil {
		return err
	}
	return table(a.out, "\tID\tAUTHOR\tCOMMENT\t", func(tw io.Writer) {
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", mark(c), c.ID, c.AuthorID, c.Body)
		}
	})
}

func (a *App) listMembers(ctx context.Context, _ []string) error {
	wsID, err := a.activeWorkspace()
	if err != nil {
		return err
	}
	list, err := a.engine.Memberships(ctx, wsID)
	if err != nil {
		return err
	}
	return table(a.out, "\tID\tUSER\tROLE\t", func(tw io.Writer) {
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", mark(m), m.ID, m.UserID, m.Role)
		}
	})
}

func (a *App) status(ctx context.Context, _ []string) error {
	st, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}
	mode := "offline"
	if st.Online {
		mode = "online"
	}
	fmt.Fprintf(a.out, "Mode: %s\n", mode)
	fmt.Fprintf(a.out, "Pending: %d\n", st.Pending)
	if st.Syncing {
		fmt.Fprintln(a.out, "Syncing: yes")
	}
	if st.LastSyncAt != nil {
		fmt.Fprintf(a.out, "Last sync: %s\n", st.LastSyncAt.Local().Format(time.DateTime))
	}
	if wsID, err := a.activeWorkspace(); err == nil {
		fmt.Fprintf(a.out, "Workspace: %s\n", wsID)
		at, err := a.engine.LastPull(ctx, wsID)
		if err != nil {
			return err
		}
		if at == nil {
			fmt.Fprintln(a.out, "Last pull: never")
		} else {
			fmt.Fprintf(a.out, "Last pull: %s\n", at.Local().Format(time.DateTime))
		}
	}
	if st.Failed > 0 {
		fmt.Fprintf(a.out, "Failed: %d (see 'failures')\n", st.Failed)
	}
	if st.LastError != "" {
		fmt.Fprintf(a.out, "Last error: %s\n", st.LastError)
	}
	return nil
}

func (a *App) pending(ctx context.Context, _ []string) error {
	ops, err := a.engine.Pending(ctx)
	if err != nil {
		return err
	}
	return table(a.out, "SEQ\tKIND\tTARGET\tRETRIES\tLAST ERROR\t", func(tw io.Writer) {
		for _, op := range ops {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t\n", op.Seq, op.Kind, op.TargetID, op.RetryCount, op.LastError)
		}
	})
}

func (a *App) failures(ctx context.Context, _ []string) error {
	list, err := a.engine.Failures(ctx)
	if err != nil {
		return err
	}
	return table(a.out, "ID\tKIND\tTARGET\tATTEMPTS\tERROR\t", func(tw io.Writer) {
		for _, f := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t\n", f.ID, f.Kind, f.TargetID, f.Attempts, f.Error)
		}
	})
}
