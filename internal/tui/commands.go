package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/mailboard/internal/model"
)

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refreshCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(src.Snapshot())
	}
}

// waitForNotificationCmd blocks on the feed. It is re-queued after every
// record until the feed closes.
func waitForNotificationCmd(feed <-chan model.NotificationRecord) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return notificationMsg(rec)
	}
}

func fetchCmd(src Source, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return fetchDoneMsg{ID: id, Err: src.FetchFull(ctx, id)}
	}
}

func reconnectCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		src.Reconnect()
		return reconnectMsg{}
	}
}
