package state

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/mailboard/internal/model"
)

// Store holds the canonical email and event collections.
//
// Mutations are expected from a single goroutine (the session); the lock
// lets HTTP and dashboard readers take consistent copies concurrently.
type Store struct {
	mu sync.RWMutex

	// All known emails indexed by id. Never shrinks.
	emails map[string]*model.EmailSummary

	// Ids shown by Emails(). Nil until the first email_update, meaning all.
	viewable map[string]struct{}

	// Events indexed by (email id, timestamp).
	events map[model.EventKey]model.CalendarEvent

	lastMergeAt time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		emails: make(map[string]*model.EmailSummary),
		events: make(map[model.EventKey]model.CalendarEvent),
	}
}

// MergeEmails inserts unknown ids and upgrades existing ones only when the
// incoming record is fuller. It returns the inserted or upgraded emails,
// each id at most once, in first-seen order.
func (s *Store) MergeEmails(in []model.EmailSummary) []model.EmailSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mergeEmailsLocked(in)
}

// ReplaceEmails merges in with the same rule as MergeEmails, then restricts
// the viewable list to exactly the ids in in. Nothing is deleted.
func (s *Store) ReplaceEmails(in []model.EmailSummary) []model.EmailSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := s.mergeEmailsLocked(in)

	s.viewable = make(map[string]struct{}, len(in))
	for _, e := range in {
		if e.ID != "" {
			s.viewable[e.ID] = struct{}{}
		}
	}
	return delta
}

// mergeEmailsLocked implements the fuller-wins merge (caller must hold write lock).
func (s *Store) mergeEmailsLocked(in []model.EmailSummary) []model.EmailSummary {
	var delta []model.EmailSummary
	pos := make(map[string]int)

	for _, e := range in {
		if e.ID == "" {
			continue
		}

		existing, ok := s.emails[e.ID]
		if ok && !e.Fuller(*existing) {
			continue
		}

		stored := cloneEmail(e)
		s.emails[e.ID] = &stored
		if s.viewable != nil {
			s.viewable[e.ID] = struct{}{}
		}

		if i, seen := pos[e.ID]; seen {
			delta[i] = cloneEmail(stored)
			continue
		}
		pos[e.ID] = len(delta)
		delta = append(delta, cloneEmail(stored))
	}

	if len(delta) > 0 {
		s.lastMergeAt = time.Now()
	}
	return delta
}

// MergeEvents adds events not seen before. Undated events are dropped, the
// first event for a key wins, and missing importance is inherited from the
// parent email when known. It returns only newly added events.
func (s *Store) MergeEvents(in []model.CalendarEvent) []model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []model.CalendarEvent
	for _, ev := range in {
		if !ev.Dated() {
			continue
		}

		key := ev.Key()
		if _, ok := s.events[key]; ok {
			continue
		}

		if ev.Importance == model.ImportanceUnknown {
			if parent, ok := s.emails[ev.EmailID]; ok {
				ev.Importance = parent.Importance
			}
		}

		s.events[key] = ev
		added = append(added, ev)
	}

	if len(added) > 0 {
		s.lastMergeAt = time.Now()
	}
	return added
}

// Emails returns the viewable emails ordered by importance descending, then
// timestamp descending.
func (s *Store) Emails() []model.EmailSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.EmailSummary, 0, len(s.emails))
	for id, e := range s.emails {
		if s.viewable != nil {
			if _, ok := s.viewable[id]; !ok {
				continue
			}
		}
		result = append(result, cloneEmail(*e))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})
	return result
}

// Email returns a single email by id, viewable or not.
func (s *Store) Email(id string) (model.EmailSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.emails[id]
	if !ok {
		return model.EmailSummary{}, false
	}
	return cloneEmail(*e), true
}

// Events returns all events ordered by timestamp ascending.
func (s *Store) Events() []model.CalendarEvent {
	return s.filterEvents(func(model.CalendarEvent) bool { return true })
}

// Upcoming returns events at or after now, ordered by timestamp ascending.
func (s *Store) Upcoming(now time.Time) []model.CalendarEvent {
	return s.filterEvents(func(ev model.CalendarEvent) bool {
		return !ev.Timestamp.Before(now)
	})
}

// Today returns events on the same calendar day as now, in now's location.
func (s *Store) Today(now time.Time) []model.CalendarEvent {
	return s.filterEvents(func(ev model.CalendarEvent) bool {
		return model.SameDay(ev.Timestamp, now, now.Location())
	})
}

func (s *Store) filterEvents(keep func(model.CalendarEvent) bool) []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.CalendarEvent, 0, len(s.events))
	for _, ev := range s.events {
		if keep(ev) {
			result = append(result, ev)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.EmailID != b.EmailID {
			return a.EmailID < b.EmailID
		}
		return a.Description < b.Description
	})
	return result
}

// Counts summarizes the collections.
type Counts struct {
	Emails      int       `json:"emails"`
	Viewable    int       `json:"viewable"`
	Full        int       `json:"full"`
	Important   int       `json:"important"`
	Events      int       `json:"events"`
	LastMergeAt time.Time `json:"last_merge_at,omitzero"`
}

// Counts returns collection sizes.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{
		Emails:      len(s.emails),
		Viewable:    len(s.emails),
		Events:      len(s.events),
		LastMergeAt: s.lastMergeAt,
	}
	if s.viewable != nil {
		c.Viewable = len(s.viewable)
	}
	for _, e := range s.emails {
		if e.IsFull {
			c.Full++
		}
		if e.Importance >= model.ImportanceMedium {
			c.Important++
		}
	}
	return c
}

// EventsFrom collects the events embedded in emails, filling in the parent
// id and importance where the event lacks them.
func EventsFrom(emails []model.EmailSummary) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, e := range emails {
		for _, ev := range e.Events {
			if ev.EmailID == "" {
				ev.EmailID = e.ID
			}
			if ev.Importance == model.ImportanceUnknown {
				ev.Importance = e.Importance
			}
			out = append(out, ev)
		}
	}
	return out
}

// cloneEmail copies e so callers never share the stored events slice.
func cloneEmail(e model.EmailSummary) model.EmailSummary {
	if e.Events != nil {
		e.Events = append([]model.CalendarEvent(nil), e.Events...)
	}
	return e
}
