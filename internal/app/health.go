package app

import (
	"context"
	"time"

	"github.com/rickgao/mailboard/internal/version"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health is the /health document.
type Health struct {
	Status     string         `json:"status"`
	Version    version.Info   `json:"version"`
	Components map[string]any `json:"components"`
}

// Health checks every component. A closed push stream degrades the service;
// an unreachable archive database makes it unhealthy.
func (a *App) Health(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	h := Health{
		Status:     StatusHealthy,
		Version:    version.Get(),
		Components: make(map[string]any),
	}

	conn := a.Session.Stats().Connection
	stream := map[string]any{
		"state":     conn.StateName,
		"connected": conn.Connected,
		"attempt":   conn.Attempt,
	}
	if !conn.Connected {
		h.Status = StatusDegraded
		if !conn.NextRetryAt.IsZero() {
			stream["next_retry_at"] = conn.NextRetryAt
		}
		if conn.LastError != "" {
			stream["last_error"] = conn.LastError
		}
	}
	h.Components["stream"] = stream

	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			h.Status = StatusUnhealthy
			h.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			h.Components["database"] = "connected"
		}
		h.Components["archive"] = a.Archive.Stats()
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			if h.Status == StatusHealthy {
				h.Status = StatusDegraded
			}
			h.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			h.Components["redis"] = "connected"
		}
	}

	if a.cfg.Poller.Interval > 0 {
		h.Components["reconciler"] = a.Poller.Stats()
	}
	return h
}
