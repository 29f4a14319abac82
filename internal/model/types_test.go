package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEmailSummary_UnmarshalJSON(t *testing.T) {
	data := []byte(`{
		"id": "42",
		"subject": "Project deadline moved",
		"from": "boss@example.com",
		"date": "2025-04-15T09:30:00Z",
		"summary": "The deadline is now Friday.",
		"category": "deadline",
		"importance": 3,
		"events": [
			{"email_id": "42", "description": "Deadline", "formatted_date": "2025-04-18 17:00"}
		]
	}`)

	var e EmailSummary
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if e.ID != "42" {
		t.Errorf("ID = %q, want %q", e.ID, "42")
	}
	if e.Sender != "boss@example.com" {
		t.Errorf("Sender = %q, want %q", e.Sender, "boss@example.com")
	}
	if e.Importance != ImportanceHigh {
		t.Errorf("Importance = %v, want %v", e.Importance, ImportanceHigh)
	}
	want := time.Date(2025, 4, 15, 9, 30, 0, 0, time.UTC)
	if !e.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, want)
	}
	if e.IsFull {
		t.Error("IsFull = true, want false")
	}
	if len(e.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(e.Events))
	}
	if !e.Events[0].Dated() {
		t.Error("expected embedded event to carry a timestamp")
	}
}

func TestEmailSummary_SenderWinsOverFrom(t *testing.T) {
	var e EmailSummary
	if err := json.Unmarshal([]byte(`{"id":"1","sender":"a@x","from":"b@x"}`), &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if e.Sender != "a@x" {
		t.Errorf("Sender = %q, want %q", e.Sender, "a@x")
	}
}

func TestEmailSummary_MarshalKeepsDate(t *testing.T) {
	e := EmailSummary{
		ID:        "7",
		Subject:   "hello",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw failed: %v", err)
	}
	if raw["date"] != "2025-01-02T03:04:05Z" {
		t.Errorf("date = %v, want 2025-01-02T03:04:05Z", raw["date"])
	}
	if _, ok := raw["Timestamp"]; ok {
		t.Error("Timestamp should not be serialized directly")
	}
}

func TestEmailSummary_Fuller(t *testing.T) {
	partial := EmailSummary{ID: "1"}
	full := EmailSummary{ID: "1", IsFull: true, Body: "body"}

	if !full.Fuller(partial) {
		t.Error("full.Fuller(partial) = false, want true")
	}
	if partial.Fuller(full) {
		t.Error("partial.Fuller(full) = true, want false")
	}
	if full.Fuller(full) {
		t.Error("full.Fuller(full) = true, want false")
	}
}

func TestCalendarEvent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantDated bool
	}{
		{"rfc3339 date", `{"email_id":"1","description":"x","date":"2025-04-15T10:00:00Z"}`, true},
		{"formatted date", `{"email_id":"1","description":"x","formatted_date":"2025-04-15 10:00"}`, true},
		{"date_str fallback", `{"email_id":"1","description":"x","date_str":"2025-04-15"}`, true},
		{"unparseable", `{"email_id":"1","description":"x","date_str":"next Tuesday-ish"}`, false},
		{"missing", `{"email_id":"1","description":"x"}`, false},
		{"null formatted date", `{"email_id":"1","description":"x","formatted_date":null}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev CalendarEvent
			if err := json.Unmarshal([]byte(tt.data), &ev); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if ev.Dated() != tt.wantDated {
				t.Errorf("Dated() = %v, want %v", ev.Dated(), tt.wantDated)
			}
		})
	}
}

func TestCalendarEvent_Key(t *testing.T) {
	at := time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
	a := CalendarEvent{EmailID: "1", Description: "first", Timestamp: at}
	b := CalendarEvent{EmailID: "1", Description: "second", Timestamp: at.In(time.FixedZone("X", 3600))}
	c := CalendarEvent{EmailID: "2", Description: "first", Timestamp: at}

	if a.Key() != b.Key() {
		t.Error("same email and instant should share a key regardless of zone or description")
	}
	if a.Key() == c.Key() {
		t.Error("different emails should not share a key")
	}
}

func TestEventBatch_Events(t *testing.T) {
	at := time.Now()
	b := EventBatch{
		All:      []CalendarEvent{{EmailID: "1", Timestamp: at}, {EmailID: "2", Timestamp: at}},
		Today:    []CalendarEvent{{EmailID: "1", Timestamp: at}},
		Tomorrow: nil,
	}
	if got := len(b.Events()); got != 3 {
		t.Errorf("len(Events()) = %d, want 3", got)
	}
}

func TestImportance_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		data string
		want Importance
	}{
		{`1`, ImportanceLow},
		{`2`, ImportanceMedium},
		{`3`, ImportanceHigh},
		{`7`, ImportanceHigh},
		{`0`, ImportanceUnknown},
		{`0.5`, ImportanceUnknown},
		{`2.9`, ImportanceMedium},
		{`1e20`, ImportanceHigh},
		{`-1e20`, ImportanceUnknown},
		{`"high"`, ImportanceHigh},
		{`"Medium"`, ImportanceMedium},
		{`"2"`, ImportanceMedium},
		{`null`, ImportanceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			var got Importance
			if err := json.Unmarshal([]byte(tt.data), &got); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Importance = %v, want %v", got, tt.want)
			}
		})
	}

	var bad Importance
	if err := json.Unmarshal([]byte(`"urgent!!"`), &bad); err == nil {
		t.Error("expected error for unknown level name")
	}
}

func TestImportance_Ordering(t *testing.T) {
	if !(ImportanceLow < ImportanceMedium && ImportanceMedium < ImportanceHigh) {
		t.Error("importance levels must be ordered low < medium < high")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2025-04-15T10:00:00Z", false},
		{"2025-04-15T10:00:00.123+02:00", false},
		{"Tue, 15 Apr 2025 10:00:00 +0000", false},
		{"Tue, 15 Apr 2025 10:00:00 +0000 (UTC)", false},
		{"2025-04-15 10:00", false},
		{"2025-04-15", false},
		{"04/15/2025", false},
		{"", true},
		{"tomorrow", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	a := time.Date(2025, 4, 15, 10, 0, 0, 0, loc) // 2025-04-15 01:00 UTC
	b := time.Date(2025, 4, 15, 23, 0, 0, 0, loc)
	c := time.Date(2025, 4, 14, 15, 30, 0, 0, time.UTC) // 2025-04-15 00:30 KST

	if !SameDay(a, b, loc) {
		t.Error("expected same day")
	}
	if !SameDay(a, c, loc) {
		t.Error("expected same day once converted to loc")
	}
	if SameDay(a, c, time.UTC) {
		t.Error("expected different days in UTC")
	}
}
