package model

import (
	"errors"
	"strings"
	"time"
)

// FormattedDateLayout is the layout of the backend's "formatted_date" field.
const FormattedDateLayout = "2006-01-02 15:04"

// Layouts carrying a zone offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 -0700",
}

// Layouts without a zone, interpreted in the local zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	FormattedDateLayout,
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ErrNoTimestamp is returned by ParseTime for empty or unparseable input.
var ErrNoTimestamp = errors.New("no parseable timestamp")

// ParseTime parses the date formats the backend emits.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoTimestamp
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrNoTimestamp
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
