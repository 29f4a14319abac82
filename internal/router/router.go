package router

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/mailboard/internal/connection"
)

// Router decodes inbound frames, records them in a bounded history and
// dispatches typed payloads to a Handler.
type Router struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	history *Ring[HistoryEntry]

	mu              sync.RWMutex
	received        int64
	routed          int64
	decodeErrors    int64
	unknownMessages int64
	pings           int64
	pongs           int64
}

// New creates a new Message Router.
func New(cfg Config, handler Handler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}

	return &Router{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		history: NewRing[HistoryEntry](cfg.HistorySize),
	}
}

// Route decodes and dispatches a single frame. Decode errors are logged,
// counted and returned; the frame is dropped.
func (r *Router) Route(f connection.Frame) error {
	r.count(&r.received)

	msg, err := Decode(f.Data, f.ReceivedAt)
	if err != nil {
		r.count(&r.decodeErrors)
		r.logger.Warn("dropping malformed message", "error", err)
		return err
	}

	r.history.Push(HistoryEntry{
		Type:       msg.Type,
		ReceivedAt: msg.ReceivedAt,
		Known:      msg.Type.Known(),
		Items:      msg.Len(),
		Frame:      append([]byte(nil), f.Data...),
	})

	switch msg.Type {
	case TypeEmailUpdate:
		r.handler.HandleEmailUpdate(msg.Emails)
	case TypeNewEmails:
		r.handler.HandleNewEmails(msg.Emails)
	case TypeNewEvents:
		r.handler.HandleNewEvents(msg.Events)
	case TypeNotification:
		r.handler.HandleNotifications(msg.Notices)
	case TypePing:
		r.count(&r.pings)
		return nil
	case TypePong:
		r.count(&r.pongs)
		return nil
	default:
		r.count(&r.unknownMessages)
		r.logger.Debug("skipping message type", "type", msg.Type)
		return nil
	}

	r.count(&r.routed)
	r.logger.Debug("routed message", "type", msg.Type, "items", msg.Len())
	return nil
}

// History returns recorded messages, oldest first.
func (r *Router) History() []HistoryEntry {
	return r.history.Snapshot()
}

// Recent returns up to n of the newest recorded messages, newest first.
func (r *Router) Recent(n int) []HistoryEntry {
	return r.history.Last(n)
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		DecodeErrors:     r.decodeErrors,
		UnknownMessages:  r.unknownMessages,
		Pings:            r.pings,
		Pongs:            r.pongs,
		History:          r.history.Stats(),
	}
}

func (r *Router) count(n *int64) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}

// IsDecodeError reports whether err is a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
