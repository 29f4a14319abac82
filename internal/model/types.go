package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Emails
// -----------------------------------------------------------------------------

// EmailSummary is a summarized email as produced by the backend.
type EmailSummary struct {
	ID           string          `json:"id"`                      // Server-assigned, stable
	ThreadID     string          `json:"threadId,omitempty"`      // Gmail thread
	Sender       string          `json:"sender"`                  // Display sender
	Subject      string          `json:"subject"`                 // Subject line
	Snippet      string          `json:"snippet,omitempty"`       // Provider snippet
	Summary      string          `json:"summary,omitempty"`       // Generated summary text
	Body         string          `json:"body,omitempty"`          // Full body (only when IsFull)
	Category     string          `json:"category,omitempty"`      // Classifier category
	Importance   Importance      `json:"importance"`              // low < medium < high
	Timestamp    time.Time       `json:"-"`                       // Wire field "date"
	Events       []CalendarEvent `json:"events,omitempty"`        // Events derived from this email
	IsFull       bool            `json:"is_full"`                 // Full body has been fetched
	OriginalLink string          `json:"original_link,omitempty"` // Link back to the mail client
}

// Fuller reports whether e carries a full body where other does not.
func (e EmailSummary) Fuller(other EmailSummary) bool {
	return e.IsFull && !other.IsFull
}

// UnmarshalJSON decodes the wire form, accepting "from" as an alias for
// "sender" and any layout understood by ParseTime for "date".
func (e *EmailSummary) UnmarshalJSON(data []byte) error {
	type plain EmailSummary
	aux := struct {
		*plain
		Date string `json:"date"`
		From string `json:"from"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.Sender == "" {
		e.Sender = aux.From
	}
	e.Timestamp, _ = ParseTime(aux.Date)
	return nil
}

// MarshalJSON encodes the wire form with "date" in RFC 3339.
func (e EmailSummary) MarshalJSON() ([]byte, error) {
	type plain EmailSummary
	aux := struct {
		plain
		Date string `json:"date,omitempty"`
	}{plain: plain(e)}

	if !e.Timestamp.IsZero() {
		aux.Date = e.Timestamp.Format(time.RFC3339)
	}
	return json.Marshal(aux)
}

// -----------------------------------------------------------------------------
// Calendar events
// -----------------------------------------------------------------------------

// CalendarEvent is an event extracted from an email.
// The server may resend the same logical event without a stable id, so the
// identity is the (EmailID, Timestamp) pair.
type CalendarEvent struct {
	EmailID     string     `json:"email_id"`
	EventType   string     `json:"event_type,omitempty"` // meeting, deadline, other
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"-"`                    // Wire fields "date", "formatted_date", "date_str"
	Importance  Importance `json:"importance,omitempty"` // Inherited from the parent email when absent
	Confidence  float64    `json:"confidence,omitempty"`
}

// EventKey is the de-duplication key for calendar events.
type EventKey struct {
	EmailID string
	At      int64 // Unix nanoseconds
}

// Key returns the de-duplication key.
func (e CalendarEvent) Key() EventKey {
	return EventKey{EmailID: e.EmailID, At: e.Timestamp.UnixNano()}
}

// Dated reports whether the event has a usable timestamp.
func (e CalendarEvent) Dated() bool {
	return !e.Timestamp.IsZero()
}

// UnmarshalJSON decodes the wire form. The first parseable of "date",
// "formatted_date" and "date_str" becomes the timestamp.
func (e *CalendarEvent) UnmarshalJSON(data []byte) error {
	type plain CalendarEvent
	aux := struct {
		*plain
		Date          string `json:"date"`
		FormattedDate string `json:"formatted_date"`
		DateStr       string `json:"date_str"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.Timestamp = time.Time{}
	for _, s := range []string{aux.Date, aux.FormattedDate, aux.DateStr} {
		if t, err := ParseTime(s); err == nil {
			e.Timestamp = t
			break
		}
	}
	return nil
}

// MarshalJSON encodes the wire form with "date" in RFC 3339.
func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	type plain CalendarEvent
	aux := struct {
		plain
		Date          string `json:"date,omitempty"`
		FormattedDate string `json:"formatted_date,omitempty"`
	}{plain: plain(e)}

	if !e.Timestamp.IsZero() {
		aux.Date = e.Timestamp.Format(time.RFC3339)
		aux.FormattedDate = e.Timestamp.Format(FormattedDateLayout)
	}
	return json.Marshal(aux)
}

// EventBatch is a non-authoritative collection pushed by "new_events".
// Today and Tomorrow are server-derived subsets of All.
type EventBatch struct {
	All      []CalendarEvent `json:"all_events"`
	Today    []CalendarEvent `json:"today_events"`
	Tomorrow []CalendarEvent `json:"tomorrow_events,omitempty"`
}

// Events returns every event in the batch. Duplicates across the subsets are
// left for the merger to collapse.
func (b EventBatch) Events() []CalendarEvent {
	out := make([]CalendarEvent, 0, len(b.All)+len(b.Today)+len(b.Tomorrow))
	out = append(out, b.All...)
	out = append(out, b.Today...)
	out = append(out, b.Tomorrow...)
	return out
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

// Notice is a pass-through alert from a "notification" frame.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotificationKind identifies why a notification was raised.
type NotificationKind string

const (
	KindImportantEmails NotificationKind = "important_emails"
	KindEventsToday     NotificationKind = "events_today"
	KindServer          NotificationKind = "server"
)

// NotificationRecord is a user-facing alert. Only the notification trigger
// creates these.
type NotificationRecord struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Count     int              `json:"count,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
