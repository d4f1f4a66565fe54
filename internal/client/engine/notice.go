package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message about sync progress.
type Notice struct {
	Level   NoticeLevel
	Message string
}

func (n Notice) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Message)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func failureMessage(n int, kinds []models.Kind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !slices.Contains(names, string(k)) {
			names = append(names, string(k))
		}
	}
	return fmt.Sprintf("%d %s failed to sync (%s)", n, plural(n, "change"), strings.Join(names, ", "))
}

// NotifyOffline tells the user they are working offline and how many changes
// are waiting.
func (e *SyncEngine) NotifyOffline(ctx context.Context) {
	n, err := e.store.Queue.Count(ctx)
	if err != nil {
		e.logger.Error(ctx, "failed to count pending operations", "error", err)
		return
	}
	msg := "You are offline"
	if n > 0 {
		msg = fmt.Sprintf("You are offline. %d %s will sync when the connection returns", n, plural(n, "change"))
	}
	e.notify(Notice{Level: NoticeWarning, Message: msg})
}
