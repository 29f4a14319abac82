package tui

import (
	"time"

	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/session"
)

// snapshotMsg carries a fresh session snapshot.
type snapshotMsg session.Snapshot

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// notificationMsg is a record delivered on the notification feed.
type notificationMsg model.NotificationRecord

// feedClosedMsg reports that the notification feed was closed.
type feedClosedMsg struct{}

// fetchDoneMsg reports the end of a full-body fetch.
type fetchDoneMsg struct {
	ID  string
	Err error
}

// reconnectMsg reports that a reconnect was requested.
type reconnectMsg struct{}
