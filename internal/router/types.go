package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/mailboard/internal/model"
)

// MessageType is the "type" discriminator of an inbound frame.
type MessageType string

const (
	TypeEmailUpdate  MessageType = "email_update"
	TypeNewEmails    MessageType = "new_emails"
	TypeNewEvents    MessageType = "new_events"
	TypeNotification MessageType = "notification"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

// Known reports whether t is a recognized discriminator.
func (t MessageType) Known() bool {
	switch t {
	case TypeEmailUpdate, TypeNewEmails, TypeNewEvents, TypeNotification, TypePing, TypePong:
		return true
	}
	return false
}

// Config holds configuration for the Message Router.
type Config struct {
	HistorySize int // Default: 200
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		HistorySize: 200,
	}
}

// Message is a decoded inbound frame. Exactly one payload field is set for
// known types; Raw holds the frame for unknown ones.
type Message struct {
	Type       MessageType
	ReceivedAt time.Time

	Emails  []model.EmailSummary // email_update, new_emails
	Events  model.EventBatch     // new_events
	Notices []model.Notice       // notification
	Raw     json.RawMessage      // unknown types
}

// Len returns the number of payload items carried by the message.
func (m Message) Len() int {
	switch m.Type {
	case TypeEmailUpdate, TypeNewEmails:
		return len(m.Emails)
	case TypeNewEvents:
		return len(m.Events.All) + len(m.Events.Today) + len(m.Events.Tomorrow)
	case TypeNotification:
		return len(m.Notices)
	}
	return 0
}

// ErrMissingType is wrapped by DecodeError when a frame has no "type".
var ErrMissingType = errors.New("missing type")

// DecodeError reports a frame that could not be decoded. The frame is dropped.
type DecodeError struct {
	Type MessageType // Empty if the envelope itself failed
	Size int         // Frame length in bytes
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode frame (%d bytes): %v", e.Size, e.Err)
	}
	return fmt.Sprintf("decode %s payload (%d bytes): %v", e.Type, e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Handler receives routed payloads. Calls happen on the routing goroutine.
type Handler interface {
	HandleEmailUpdate(emails []model.EmailSummary)
	HandleNewEmails(emails []model.EmailSummary)
	HandleNewEvents(batch model.EventBatch)
	HandleNotifications(notices []model.Notice)
}

// HistoryEntry is one recorded inbound message.
type HistoryEntry struct {
	Type       MessageType     `json:"type"`
	ReceivedAt time.Time       `json:"received_at"`
	Known      bool            `json:"known"`
	Items      int             `json:"items"`
	Frame      json.RawMessage `json:"frame"`
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64        `json:"messages_received"`
	MessagesRouted   int64        `json:"messages_routed"`
	DecodeErrors     int64        `json:"decode_errors"`
	UnknownMessages  int64        `json:"unknown_messages"`
	Pings            int64        `json:"pings"`
	Pongs            int64        `json:"pongs"`
	History          HistoryStats `json:"history"`
}
