// streamtest connects to the push stream and prints decoded messages to the
// console. Nothing is merged or stored.
//
// Usage: go run ./cmd/streamtest --config configs/mailboard.example.yaml [--verbose]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/mailboard/internal/app"
	"github.com/rickgao/mailboard/internal/config"
	"github.com/rickgao/mailboard/internal/connection"
	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	connMgr := connection.NewManager(app.ManagerConfig(cfg.Stream), logger)
	rtr := router.New(router.Config{HistorySize: cfg.History.Size}, &printer{out: os.Stdout, verbose: *verbose}, logger)

	logger.Info("starting connection manager", "url", cfg.Stream.URL)
	if err := connMgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				routerStats := rtr.Stats()
				connStats := connMgr.Stats()
				logger.Info("stats",
					"state", connStats.StateName,
					"attempt", connStats.Attempt,
					"opens", connStats.Opens,
					"received", routerStats.MessagesReceived,
					"routed", routerStats.MessagesRouted,
					"decode_errors", routerStats.DecodeErrors,
					"pings", routerStats.Pings,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	frames := connMgr.Messages()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case f, ok := <-frames:
			if !ok {
				break loop
			}
			if err := rtr.Route(f); err != nil && *verbose {
				fmt.Printf("[MALFORMED] %s\n", f.Data)
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	connMgr.Stop(shutdownCtx)
	logger.Info("shutdown complete")
}

// printer is a router.Handler that writes one line per item.
type printer struct {
	out     io.Writer
	verbose bool
}

func (p *printer) dump(tag string, v any) bool {
	if !p.verbose {
		return false
	}
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintf(p.out, "[%s] %s\n", tag, data)
	return true
}

func (p *printer) emails(tag string, emails []model.EmailSummary) {
	if p.dump(tag, emails) {
		return
	}
	for _, e := range emails {
		fmt.Fprintf(p.out, "[%s] id=%s importance=%s full=%t from=%q subject=%q\n",
			tag, e.ID, e.Importance, e.IsFull, e.Sender, e.Subject)
	}
}

func (p *printer) HandleEmailUpdate(emails []model.EmailSummary) { p.emails("EMAIL_UPDATE", emails) }
func (p *printer) HandleNewEmails(emails []model.EmailSummary)   { p.emails("NEW_EMAILS", emails) }

func (p *printer) HandleNewEvents(batch model.EventBatch) {
	events := batch.Events()
	if p.dump("NEW_EVENTS", events) {
		return
	}
	for _, ev := range events {
		fmt.Fprintf(p.out, "[NEW_EVENTS] email=%s at=%s type=%s %q\n",
			ev.EmailID, ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.Description)
	}
}

func (p *printer) HandleNotifications(notices []model.Notice) {
	if p.dump("NOTIFICATION", notices) {
		return
	}
	for _, n := range notices {
		fmt.Fprintf(p.out, "[NOTIFICATION] %s: %s\n", n.Title, n.Message)
	}
}
