package session

import (
	"time"

	"github.com/rickgao/mailboard/internal/connection"
	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/notify"
	"github.com/rickgao/mailboard/internal/router"
	"github.com/rickgao/mailboard/internal/state"
)

// Stats aggregates component statistics.
type Stats struct {
	Connection connection.Stats `json:"connection"`
	Router     router.Stats     `json:"router"`
	Store      state.Counts     `json:"store"`
	Notify     notify.Stats     `json:"notify"`
	Merges     int64            `json:"merges"`
}

// Snapshot is a consistent copy of everything a view needs.
type Snapshot struct {
	TakenAt       time.Time                  `json:"taken_at"`
	Connected     bool                       `json:"connected"`
	Attempt       int                        `json:"attempt"`
	State         string                     `json:"state"`
	NextRetryAt   time.Time                  `json:"next_retry_at,omitzero"`
	Emails        []model.EmailSummary       `json:"emails"`
	Upcoming      []model.CalendarEvent      `json:"upcoming"`
	Today         []model.CalendarEvent      `json:"today"`
	History       []router.HistoryEntry      `json:"history"`       // Newest first
	Notifications []model.NotificationRecord `json:"notifications"` // Newest first
	Stats         Stats                      `json:"stats"`
}

// Snapshot copies the current state. Safe to call from any goroutine.
func (s *Session) Snapshot() Snapshot {
	now := s.now().In(s.cfg.Location)
	conn := s.manager.Stats()

	notifications := s.notifications.Snapshot()
	for i, j := 0, len(notifications)-1; i < j; i, j = i+1, j-1 {
		notifications[i], notifications[j] = notifications[j], notifications[i]
	}

	return Snapshot{
		TakenAt:       now,
		Connected:     conn.Connected,
		Attempt:       conn.Attempt,
		State:         conn.StateName,
		NextRetryAt:   conn.NextRetryAt,
		Emails:        s.store.Emails(),
		Upcoming:      s.store.Upcoming(now),
		Today:         s.store.Today(now),
		History:       s.router.Recent(0),
		Notifications: notifications,
		Stats:         s.Stats(),
	}
}

// Stats returns statistics for every component.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	merges := s.applied
	s.mu.RUnlock()

	return Stats{
		Connection: s.manager.Stats(),
		Router:     s.router.Stats(),
		Store:      s.store.Counts(),
		Notify:     s.trigger.Stats(),
		Merges:     merges,
	}
}

// History returns up to n of the newest inbound messages, newest first.
func (s *Session) History(n int) []router.HistoryEntry {
	return s.router.Recent(n)
}
