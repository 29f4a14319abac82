package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/mailboard/internal/api"
	"github.com/rickgao/mailboard/internal/config"
	"github.com/rickgao/mailboard/internal/connection"
	"github.com/rickgao/mailboard/internal/database"
	"github.com/rickgao/mailboard/internal/notify"
	"github.com/rickgao/mailboard/internal/poller"
	"github.com/rickgao/mailboard/internal/session"
	"github.com/rickgao/mailboard/internal/version"
	"github.com/rickgao/mailboard/internal/writer"
)

// Options carries collaborators that depend on the binary rather than on
// configuration.
type Options struct {
	// PromptIn and PromptOut back the "ask" permission. They default to
	// stdin and stderr.
	PromptIn  io.Reader
	PromptOut io.Writer

	// Sinks are appended to the configured notification sinks.
	Sinks []notify.Sink

	// ManagerOptions are passed to the connection manager.
	ManagerOptions []connection.Option
}

// App owns every long-running component.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	API     *api.Client
	Session *session.Session
	Poller  *poller.Poller
	Archive *writer.ArchiveWriter // nil unless database.enabled

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New builds the pipeline. It connects to the archive database when one is
// enabled; nothing else touches the network until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Notifications.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	a.API = api.NewClient(cfg.API.RestURL,
		api.WithLogger(logger.With("component", "api")),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithUserAgent("mailboard/"+version.Version),
	)

	if cfg.Database.Enabled {
		db := cfg.Database.Archive
		logger.Info("connecting to archive database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)
		a.pool, err = database.Connect(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("connect archive database: %w", err)
		}
		if err := database.EnsureSchema(ctx, a.pool); err != nil {
			a.pool.Close()
			return nil, fmt.Errorf("ensure archive schema: %w", err)
		}
		a.Archive = writer.NewArchiveWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, a.pool, logger.With("component", "archive"))
	}

	notifyLogger := logger.With("component", "notify")
	sinks := []notify.Sink{notify.NewLogSink(notifyLogger)}
	if rc := cfg.Notifications.Redis; rc.Enabled {
		a.redis = notify.NewRedisClient(rc.Addr, rc.Password, rc.DB)
		sinks = append(sinks, notify.NewRedisSink(a.redis, notify.RedisSinkConfig{
			Channel:     rc.Channel,
			RecentKey:   rc.RecentKey,
			RecentLimit: rc.RecentLimit,
		}))
	}
	if a.Archive != nil {
		sinks = append(sinks, a.Archive)
	}
	sinks = append(sinks, opts.Sinks...)

	trigger := notify.New(notify.Config{
		QueueSize: cfg.Notifications.QueueSize,
		Location:  loc,
	}, permissions(cfg.Notifications.Permission, opts), notifyLogger, sinks...)

	manager := connection.NewManager(ManagerConfig(cfg.Stream),
		logger.With("component", "connection"), opts.ManagerOptions...)

	sessOpts := []session.Option{session.WithFetcher(a.API)}
	if a.Archive != nil {
		sessOpts = append(sessOpts, session.WithArchiver(a.Archive))
	}
	a.Session = session.New(session.Config{
		HistorySize: cfg.History.Size,
		InitialLoad: cfg.API.InitialLoad,
		Location:    loc,
	}, manager, trigger, logger.With("component", "session"), sessOpts...)

	a.Poller = poller.New(poller.Config{
		Interval:    cfg.Poller.Interval,
		Concurrency: cfg.Poller.Concurrency,
		MaxEmails:   cfg.Poller.MaxEmails,
		Timeout:     cfg.API.Timeout,
	}, a.API, a.Session, a.Session.Store(), logger.With("component", "poller"))

	return a, nil
}

// ManagerConfig maps the stream section onto the connection manager.
func ManagerConfig(s config.StreamConfig) connection.ManagerConfig {
	cfg := connection.DefaultManagerConfig()
	cfg.Client.URL = s.URL
	cfg.Client.HandshakeTimeout = s.HandshakeTimeout
	cfg.Client.WriteTimeout = s.WriteTimeout
	cfg.Client.ReadTimeout = s.ReadTimeout
	cfg.Client.BufferSize = s.BufferSize
	cfg.ReconnectBaseWait = s.ReconnectBaseDelay
	cfg.ReconnectGrowth = s.ReconnectGrowth
	cfg.ReconnectMaxWait = s.ReconnectMaxDelay
	cfg.ConstructRetryDelay = s.ConstructRetryDelay
	cfg.KeepAliveInterval = s.KeepAliveInterval
	return cfg
}

func permissions(setting string, opts Options) notify.Permissions {
	p, err := notify.ParsePermission(setting)
	if err != nil || p != notify.PermissionDefault {
		if err != nil {
			p = notify.PermissionDenied
		}
		return notify.Static(p)
	}

	in, out := opts.PromptIn, opts.PromptOut
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return notify.NewPrompt(in, out)
}

// Start runs the archive writer, the session and the reconciler, in that
// order. A failed initial load is logged; the push stream still works.
func (a *App) Start(ctx context.Context) error {
	if a.Archive != nil {
		if err := a.Archive.Start(ctx); err != nil {
			return fmt.Errorf("start archive writer: %w", err)
		}
	}
	if err := a.Session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if a.cfg.API.InitialLoad > 0 {
		if err := a.Session.LoadInitial(ctx); err != nil {
			a.logger.Warn("initial load failed", "error", err)
		}
	}

	if err := a.Poller.Start(ctx); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}
	return nil
}

// Stop shuts components down in reverse order and releases connections.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if err := a.Poller.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop reconciler: %w", err))
	}
	if err := a.Session.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Archive != nil {
		if err := a.Archive.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop archive writer: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
