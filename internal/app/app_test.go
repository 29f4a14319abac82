package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mailboard/internal/config"
	"github.com/rickgao/mailboard/internal/connection"
	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/notify"
)

// pushServer writes frames to every client and holds the connection open.
func pushServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		<-done
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})
	return srv
}

// restServer serves one email and no events.
func restServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/emails":
			json.NewEncoder(w).Encode([]map[string]any{{"id": "r1", "subject": "from rest", "importance": 1}})
		case "/events":
			w.Write([]byte("[]"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(streamURL, restURL string) *config.Config {
	cfg := config.Default()
	cfg.Stream.URL = streamURL
	cfg.Stream.HandshakeTimeout = time.Second
	cfg.Stream.ReconnectBaseDelay = time.Hour
	cfg.Stream.ReconnectMaxDelay = time.Hour
	cfg.API.RestURL = restURL
	cfg.API.Timeout = 2 * time.Second
	cfg.API.MaxRetries = 0
	cfg.Notifications.Timezone = "UTC"
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestApp_EndToEnd(t *testing.T) {
	push := pushServer(t, `{"type":"new_emails","data":[{"id":"42","subject":"Quarterly review","importance":3}]}`)
	rest := restServer(t)

	feed := notify.NewChanSink(8)
	cfg := testConfig("ws"+strings.TrimPrefix(push.URL, "http")+"/ws", rest.URL)

	a, err := New(context.Background(), cfg, nil, Options{Sinks: []notify.Sink{feed}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.Archive != nil {
		t.Error("Archive should be nil with the database disabled")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop(context.Background())

	store := a.Session.Store()
	waitFor(t, "push and rest emails", func() bool {
		_, pushed := store.Email("42")
		_, loaded := store.Email("r1")
		return pushed && loaded
	})

	select {
	case rec := <-feed.C():
		if rec.Kind != model.KindImportantEmails {
			t.Errorf("Kind = %q, want %q", rec.Kind, model.KindImportantEmails)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no notification delivered to the extra sink")
	}

	waitFor(t, "connected", func() bool { return a.Health(context.Background()).Status == StatusHealthy })
	h := a.Health(context.Background())
	if _, ok := h.Components["database"]; ok {
		t.Error("database component reported while disabled")
	}
}

func TestApp_HealthDegradedWhileOffline(t *testing.T) {
	rest := restServer(t)
	cfg := testConfig("ws://127.0.0.1:1/ws", rest.URL)
	cfg.API.InitialLoad = -1

	offline := connection.WithDialer(func(context.Context) (connection.Client, error) {
		return nil, errors.New("offline")
	})
	a, err := New(context.Background(), cfg, nil, Options{ManagerOptions: []connection.Option{offline}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop(context.Background())

	waitFor(t, "failed attempt", func() bool { return a.Session.Stats().Connection.Attempt > 0 })

	h := a.Health(context.Background())
	if h.Status != StatusDegraded {
		t.Errorf("Status = %q, want %q", h.Status, StatusDegraded)
	}
	stream, ok := h.Components["stream"].(map[string]any)
	if !ok {
		t.Fatalf("stream component = %T, want map", h.Components["stream"])
	}
	if stream["connected"] != false {
		t.Errorf("stream.connected = %v, want false", stream["connected"])
	}
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Timezone = "Mars/Olympus"
	if _, err := New(context.Background(), cfg, nil, Options{}); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		setting string
		want    notify.Permission
		prompt  bool
	}{
		{"granted", notify.PermissionGranted, false},
		{"denied", notify.PermissionDenied, false},
		{"bogus", notify.PermissionDenied, false},
		{"ask", notify.PermissionDefault, true},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			p := permissions(tt.setting, Options{PromptIn: strings.NewReader(""), PromptOut: &strings.Builder{}})
			if got := p.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
			if _, ok := p.(*notify.PromptPermissions); ok != tt.prompt {
				t.Errorf("prompt = %v, want %v", ok, tt.prompt)
			}
		})
	}
}

func TestManagerConfig(t *testing.T) {
	s := config.Default().Stream
	got := ManagerConfig(s)

	if got.Client.URL != s.URL {
		t.Errorf("Client.URL = %q, want %q", got.Client.URL, s.URL)
	}
	if got.ReconnectBaseWait != 3*time.Second || got.ReconnectMaxWait != 30*time.Second {
		t.Errorf("backoff = %v..%v, want 3s..30s", got.ReconnectBaseWait, got.ReconnectMaxWait)
	}
	if got.KeepAliveInterval != 30*time.Second {
		t.Errorf("KeepAliveInterval = %v, want 30s", got.KeepAliveInterval)
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboard.log")

	logger, closer, err := NewLogger(config.LogConfig{Level: "warn", Format: "json", File: path}, os.Stderr)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "id", "42")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"id":"42"`) {
		t.Errorf("log = %q, want JSON warn record", out)
	}

	if _, _, err := NewLogger(config.LogConfig{Level: "loud"}, os.Stderr); err == nil {
		t.Error("expected error for unknown level")
	}
}
