package api

import (
	"bytes"
	"encoding/json"

	"github.com/rickgao/mailboard/internal/model"
)

// DefaultEmailLimit is used when ListEmails is called with max <= 0.
const DefaultEmailLimit = 20

// DefaultDaysAhead is used when ListEvents is called with daysAhead <= 0.
const DefaultDaysAhead = 7

// emailList accepts a bare array or an {"emails": [...]} envelope.
type emailList []model.EmailSummary

func (l *emailList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var env struct {
			Emails []model.EmailSummary `json:"emails"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		*l = env.Emails
		return nil
	}

	var list []model.EmailSummary
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// eventList accepts a bare array or an {"events": [...]} envelope.
type eventList []model.CalendarEvent

func (l *eventList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var env struct {
			Events []model.CalendarEvent `json:"events"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		*l = env.Events
		return nil
	}

	var list []model.CalendarEvent
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}
