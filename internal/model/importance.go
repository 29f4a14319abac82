package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Importance is the classifier's importance level.
type Importance int

const (
	ImportanceUnknown Importance = 0
	ImportanceLow     Importance = 1
	ImportanceMedium  Importance = 2
	ImportanceHigh    Importance = 3
)

// String returns the lowercase level name.
func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceMedium:
		return "medium"
	case ImportanceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseImportance parses "low", "medium", "high" or the numeric levels 1-3.
func ParseImportance(s string) (Importance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return ImportanceUnknown, nil
	case "low":
		return ImportanceLow, nil
	case "medium":
		return ImportanceMedium, nil
	case "high":
		return ImportanceHigh, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return ImportanceUnknown, fmt.Errorf("invalid importance %q", s)
	}
	return clampImportance(float64(n)), nil
}

// UnmarshalJSON accepts either a number or a level name.
func (i *Importance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = ImportanceUnknown
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*i = clampImportance(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("importance: %w", err)
	}
	v, err := ParseImportance(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// clampImportance maps out-of-range numbers onto the nearest level.
func clampImportance(n float64) Importance {
	switch {
	case n < float64(ImportanceLow):
		return ImportanceUnknown
	case n >= float64(ImportanceHigh):
		return ImportanceHigh
	default:
		return Importance(int(n))
	}
}
