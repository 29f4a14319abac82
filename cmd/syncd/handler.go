package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rickgao/mailboard/internal/app"
	"github.com/rickgao/mailboard/internal/calendar"
	"github.com/rickgao/mailboard/internal/session"
)

const defaultHistoryLimit = 50

// healthFunc reports component health.
type healthFunc func(ctx context.Context) app.Health

// createHandler creates the HTTP handler for health, debug and export
// endpoints.
func createHandler(sess *session.Session, health healthFunc, calendarName string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		h := health(r.Context())
		status := http.StatusOK
		if h.Status == app.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h, logger)
	})

	mux.HandleFunc("GET /debug/emails", func(w http.ResponseWriter, r *http.Request) {
		emails := sess.Store().Emails()
		writeJSON(w, http.StatusOK, map[string]any{
			"count":  len(emails),
			"emails": emails,
		}, logger)
	})

	mux.HandleFunc("GET /debug/events", func(w http.ResponseWriter, r *http.Request) {
		snap := sess.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(snap.Upcoming),
			"upcoming": snap.Upcoming,
			"today":    snap.Today,
		}, logger)
	})

	mux.HandleFunc("GET /debug/history", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		history := sess.History(limit)
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(history),
			"history": history,
		}, logger)
	})

	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sess.Stats(), logger)
	})

	mux.HandleFunc("GET /calendar.ics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="mailboard.ics"`)
		if err := calendar.Write(w, sess.Store().Events(), calendarName); err != nil {
			logger.Warn("failed to write calendar", "error", err)
		}
	})

	mux.HandleFunc("POST /reconnect", func(w http.ResponseWriter, r *http.Request) {
		sess.Reconnect()
		logger.Info("manual reconnect requested", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnecting"}, logger)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}
