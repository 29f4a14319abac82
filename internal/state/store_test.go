package state

import (
	"testing"
	"time"

	"github.com/rickgao/mailboard/internal/model"
)

var base = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func email(id string, imp model.Importance, full bool) model.EmailSummary {
	return model.EmailSummary{
		ID:         id,
		Subject:    "subject " + id,
		Importance: imp,
		IsFull:     full,
		Timestamp:  base,
	}
}

func event(emailID string, at time.Time, desc string) model.CalendarEvent {
	return model.CalendarEvent{EmailID: emailID, Timestamp: at, Description: desc}
}

func TestMergeEmails_InsertsAndIsIdempotent(t *testing.T) {
	s := New()
	batch := []model.EmailSummary{
		email("1", model.ImportanceHigh, false),
		email("2", model.ImportanceLow, false),
	}

	delta := s.MergeEmails(batch)
	if len(delta) != 2 {
		t.Fatalf("first delta len = %d, want 2", len(delta))
	}

	delta = s.MergeEmails(batch)
	if len(delta) != 0 {
		t.Errorf("second delta len = %d, want 0", len(delta))
	}
	if got := len(s.Emails()); got != 2 {
		t.Errorf("len(Emails()) = %d, want 2", got)
	}
}

func TestMergeEmails_FullerWins(t *testing.T) {
	tests := []struct {
		name       string
		existing   model.EmailSummary
		incoming   model.EmailSummary
		wantDelta  int
		wantFull   bool
		wantSubjct string
	}{
		{
			name:       "partial then full upgrades",
			existing:   email("1", model.ImportanceMedium, false),
			incoming:   model.EmailSummary{ID: "1", Subject: "full", IsFull: true, Body: "body"},
			wantDelta:  1,
			wantFull:   true,
			wantSubjct: "full",
		},
		{
			name:       "full then partial keeps full",
			existing:   model.EmailSummary{ID: "1", Subject: "full", IsFull: true, Body: "body"},
			incoming:   email("1", model.ImportanceMedium, false),
			wantDelta:  0,
			wantFull:   true,
			wantSubjct: "full",
		},
		{
			name:       "partial then partial keeps existing",
			existing:   email("1", model.ImportanceMedium, false),
			incoming:   model.EmailSummary{ID: "1", Subject: "changed"},
			wantDelta:  0,
			wantFull:   false,
			wantSubjct: "subject 1",
		},
		{
			name:       "full then full keeps existing",
			existing:   model.EmailSummary{ID: "1", Subject: "first", IsFull: true},
			incoming:   model.EmailSummary{ID: "1", Subject: "second", IsFull: true},
			wantDelta:  0,
			wantFull:   true,
			wantSubjct: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.MergeEmails([]model.EmailSummary{tt.existing})

			delta := s.MergeEmails([]model.EmailSummary{tt.incoming})
			if len(delta) != tt.wantDelta {
				t.Errorf("delta len = %d, want %d", len(delta), tt.wantDelta)
			}

			got, ok := s.Email("1")
			if !ok {
				t.Fatal("email 1 missing")
			}
			if got.IsFull != tt.wantFull {
				t.Errorf("IsFull = %v, want %v", got.IsFull, tt.wantFull)
			}
			if got.Subject != tt.wantSubjct {
				t.Errorf("Subject = %q, want %q", got.Subject, tt.wantSubjct)
			}
		})
	}
}

func TestMergeEmails_DuplicateIdsInOneBatch(t *testing.T) {
	s := New()
	delta := s.MergeEmails([]model.EmailSummary{
		email("42", model.ImportanceHigh, false),
		email("42", model.ImportanceHigh, false),
		{ID: "42", IsFull: true, Importance: model.ImportanceHigh},
	})

	if len(delta) != 1 {
		t.Fatalf("delta len = %d, want 1", len(delta))
	}
	if !delta[0].IsFull {
		t.Error("delta should carry the upgraded record")
	}
	if got := len(s.Emails()); got != 1 {
		t.Errorf("len(Emails()) = %d, want 1", got)
	}
}

func TestMergeEmails_SkipsEmptyID(t *testing.T) {
	s := New()
	if delta := s.MergeEmails([]model.EmailSummary{{Subject: "no id"}}); len(delta) != 0 {
		t.Errorf("delta len = %d, want 0", len(delta))
	}
}

func TestReplaceEmails_RestrictsViewable(t *testing.T) {
	s := New()
	s.MergeEmails([]model.EmailSummary{
		email("1", model.ImportanceLow, false),
		email("2", model.ImportanceLow, false),
		email("3", model.ImportanceLow, false),
	})

	delta := s.ReplaceEmails([]model.EmailSummary{
		email("2", model.ImportanceLow, false),
		email("4", model.ImportanceHigh, false),
	})
	if len(delta) != 1 || delta[0].ID != "4" {
		t.Errorf("delta = %v, want only id 4", delta)
	}

	got := s.Emails()
	if len(got) != 2 {
		t.Fatalf("len(Emails()) = %d, want 2", len(got))
	}
	if got[0].ID != "4" || got[1].ID != "2" {
		t.Errorf("Emails() ids = %s,%s, want 4,2", got[0].ID, got[1].ID)
	}

	// Hidden emails are still known.
	if _, ok := s.Email("1"); !ok {
		t.Error("email 1 should not be deleted")
	}

	// New emails after a replace become viewable.
	s.MergeEmails([]model.EmailSummary{email("5", model.ImportanceLow, false)})
	if got := len(s.Emails()); got != 3 {
		t.Errorf("len(Emails()) = %d, want 3", got)
	}

	counts := s.Counts()
	if counts.Emails != 5 || counts.Viewable != 3 {
		t.Errorf("Counts() = %+v, want 5 emails, 3 viewable", counts)
	}
}

func TestEmails_Ordering(t *testing.T) {
	s := New()
	older := email("a", model.ImportanceHigh, false)
	older.Timestamp = base.Add(-time.Hour)
	newer := email("b", model.ImportanceHigh, false)
	newer.Timestamp = base
	low := email("c", model.ImportanceLow, false)
	low.Timestamp = base.Add(time.Hour)
	medium := email("d", model.ImportanceMedium, false)

	s.MergeEmails([]model.EmailSummary{low, older, medium, newer})

	want := []string{"b", "a", "d", "c"}
	got := s.Emails()
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Emails()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestMergeEvents_DedupKeepsFirst(t *testing.T) {
	s := New()
	at := base.Add(2 * time.Hour)

	added := s.MergeEvents([]model.CalendarEvent{event("1", at, "first")})
	if len(added) != 1 {
		t.Fatalf("added = %d, want 1", len(added))
	}

	added = s.MergeEvents([]model.CalendarEvent{event("1", at, "second")})
	if len(added) != 0 {
		t.Errorf("added = %d, want 0 for duplicate key", len(added))
	}

	events := s.Events()
	if len(events) != 1 {
		t.Fatalf("len(Events()) = %d, want 1", len(events))
	}
	if events[0].Description != "first" {
		t.Errorf("Description = %q, want %q", events[0].Description, "first")
	}
}

func TestMergeEvents_DropsUndated(t *testing.T) {
	s := New()
	added := s.MergeEvents([]model.CalendarEvent{
		{EmailID: "1", Description: "no date"},
		event("1", base, "dated"),
	})
	if len(added) != 1 {
		t.Errorf("added = %d, want 1", len(added))
	}
	if got := s.Counts().Events; got != 1 {
		t.Errorf("Counts().Events = %d, want 1", got)
	}
}

func TestMergeEvents_InheritsImportance(t *testing.T) {
	s := New()
	s.MergeEmails([]model.EmailSummary{email("1", model.ImportanceHigh, false)})

	added := s.MergeEvents([]model.CalendarEvent{
		event("1", base, "inherits"),
		{EmailID: "1", Timestamp: base.Add(time.Hour), Importance: model.ImportanceLow},
		event("unknown", base, "orphan"),
	})

	if len(added) != 3 {
		t.Fatalf("added = %d, want 3", len(added))
	}
	if added[0].Importance != model.ImportanceHigh {
		t.Errorf("inherited Importance = %v, want high", added[0].Importance)
	}
	if added[1].Importance != model.ImportanceLow {
		t.Errorf("explicit Importance = %v, want low", added[1].Importance)
	}
	if added[2].Importance != model.ImportanceUnknown {
		t.Errorf("orphan Importance = %v, want unknown", added[2].Importance)
	}
}

func TestEventViews(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2025, 4, 15, 12, 0, 0, 0, loc)

	s := New()
	s.MergeEvents([]model.CalendarEvent{
		event("1", now.Add(-3*time.Hour), "earlier today"),
		event("2", now.Add(3*time.Hour), "later today"),
		event("3", now.Add(24*time.Hour), "tomorrow"),
		event("4", now.Add(-24*time.Hour), "yesterday"),
	})

	all := s.Events()
	if len(all) != 4 {
		t.Fatalf("len(Events()) = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Error("Events() not in ascending order")
		}
	}

	upcoming := s.Upcoming(now)
	if len(upcoming) != 2 || upcoming[0].EmailID != "2" || upcoming[1].EmailID != "3" {
		t.Errorf("Upcoming() = %v, want events 2 and 3", upcoming)
	}

	today := s.Today(now)
	if len(today) != 2 || today[0].EmailID != "1" || today[1].EmailID != "2" {
		t.Errorf("Today() = %v, want events 1 and 2", today)
	}
}

func TestEventsFrom(t *testing.T) {
	e := email("9", model.ImportanceMedium, false)
	e.Events = []model.CalendarEvent{
		{Timestamp: base, Description: "no parent"},
		{EmailID: "other", Timestamp: base, Importance: model.ImportanceHigh},
	}

	got := EventsFrom([]model.EmailSummary{e})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].EmailID != "9" || got[0].Importance != model.ImportanceMedium {
		t.Errorf("got[0] = %+v, want parent id and importance filled", got[0])
	}
	if got[1].EmailID != "other" || got[1].Importance != model.ImportanceHigh {
		t.Errorf("got[1] = %+v, want explicit values kept", got[1])
	}
}

func TestReturnedEmailsAreCopies(t *testing.T) {
	s := New()
	e := email("1", model.ImportanceHigh, false)
	e.Events = []model.CalendarEvent{event("1", base, "x")}
	s.MergeEmails([]model.EmailSummary{e})

	got, _ := s.Email("1")
	got.Events[0].Description = "mutated"
	got.Subject = "mutated"

	again, _ := s.Email("1")
	if again.Subject == "mutated" || again.Events[0].Description == "mutated" {
		t.Error("caller mutation leaked into the store")
	}
}
