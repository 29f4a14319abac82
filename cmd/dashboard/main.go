// dashboard is the terminal UI for mailboard. Logs go to a file so the
// dashboard owns the terminal.
//
// Usage: go run ./cmd/dashboard --config configs/mailboard.example.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/mailboard/internal/app"
	"github.com/rickgao/mailboard/internal/config"
	"github.com/rickgao/mailboard/internal/notify"
	"github.com/rickgao/mailboard/internal/tui"
	"github.com/rickgao/mailboard/internal/version"
)

const defaultLogFile = "mailboard-dashboard.log"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogFile
	}

	logger, closer, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info("starting dashboard",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := notify.NewChanSink(32)
	a, err := app.New(ctx, cfg, logger, app.Options{Sinks: []notify.Sink{feed}})
	if err != nil {
		return err
	}
	// Start may prompt for notification permission, so it runs before the
	// TUI takes over the terminal.
	if err := a.Start(ctx); err != nil {
		a.Stop(context.Background())
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := a.Stop(stopCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
		logger.Info("dashboard stopped")
	}()

	p := tea.NewProgram(tui.New(a.Session, feed.C()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
