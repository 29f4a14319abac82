package router

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rickgao/mailboard/internal/model"
)

// messageEnvelope is used to extract the type and payload of a frame.
type messageEnvelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a frame and classifies it by its "type" field. Unknown types
// decode successfully with Raw set. Malformed frames return *DecodeError.
func Decode(frame []byte, receivedAt time.Time) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, &DecodeError{Size: len(frame), Err: err}
	}
	if env.Type == "" {
		return Message{}, &DecodeError{Size: len(frame), Err: ErrMissingType}
	}

	msg := Message{Type: env.Type, ReceivedAt: receivedAt}

	var err error
	switch env.Type {
	case TypeEmailUpdate, TypeNewEmails:
		msg.Emails, err = decodeList[model.EmailSummary](env.Data)
	case TypeNewEvents:
		msg.Events, err = decodeEventBatch(env.Data)
	case TypeNotification:
		msg.Notices, err = decodeList[model.Notice](env.Data)
	case TypePing, TypePong:
	default:
		msg.Raw = json.RawMessage(frame)
	}
	if err != nil {
		return Message{}, &DecodeError{Type: env.Type, Size: len(frame), Err: err}
	}

	return msg, nil
}

// decodeList accepts an array, a single object or null.
func decodeList[T any](data json.RawMessage) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '{' {
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// decodeEventBatch accepts the batch object or a bare event array.
func decodeEventBatch(data json.RawMessage) (model.EventBatch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return model.EventBatch{}, nil
	}

	if data[0] == '[' {
		var all []model.CalendarEvent
		if err := json.Unmarshal(data, &all); err != nil {
			return model.EventBatch{}, err
		}
		return model.EventBatch{All: all}, nil
	}

	var batch model.EventBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return model.EventBatch{}, err
	}
	return batch, nil
}
