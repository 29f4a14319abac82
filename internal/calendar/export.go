package calendar

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/rickgao/mailboard/internal/model"
)

// DefaultDuration is the length given to events, which carry only a start.
const DefaultDuration = time.Hour

// ProductID identifies the generator in PRODID.
const ProductID = "-//mailboard//calendar export//EN"

// UID returns the stable iCalendar UID of an event.
func UID(ev model.CalendarEvent) string {
	return fmt.Sprintf("%s-%d@mailboard", ev.EmailID, ev.Timestamp.Unix())
}

// Build creates a calendar holding every dated event. stamp is used for
// DTSTAMP.
func Build(events []model.CalendarEvent, name string, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		if !ev.Dated() {
			continue
		}

		vev := cal.AddEvent(UID(ev))
		vev.SetDtStampTime(stamp.UTC())
		vev.SetStartAt(ev.Timestamp.UTC())
		vev.SetEndAt(ev.Timestamp.Add(DefaultDuration).UTC())
		vev.SetSummary(summary(ev))
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.EventType != "" {
			vev.SetProperty(ical.ComponentPropertyCategories, ev.EventType)
		}
		if p := priority(ev.Importance); p > 0 {
			vev.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(p))
		}
	}
	return cal
}

// Export renders events as an iCalendar document.
func Export(events []model.CalendarEvent, name string) string {
	return Build(events, name, time.Now()).Serialize()
}

// Write renders events to w.
func Write(w io.Writer, events []model.CalendarEvent, name string) error {
	return Build(events, name, time.Now()).SerializeTo(w)
}

func summary(ev model.CalendarEvent) string {
	const maxLen = 80
	s := ev.Description
	if s == "" {
		s = ev.EventType
	}
	if s == "" {
		s = "Event"
	}
	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen-1]) + "…"
	}
	return s
}

// priority maps importance onto RFC 5545 PRIORITY (1 highest, 9 lowest).
func priority(i model.Importance) int {
	switch i {
	case model.ImportanceHigh:
		return 1
	case model.ImportanceMedium:
		return 5
	case model.ImportanceLow:
		return 9
	}
	return 0
}
