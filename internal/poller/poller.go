package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rickgao/mailboard/internal/api"
	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/session"
)

// Source is the REST surface the reconciler reads from.
type Source interface {
	ListEmails(ctx context.Context, max int) ([]model.EmailSummary, error)
	GetEmail(ctx context.Context, id string) (model.EmailSummary, error)
	ListEvents(ctx context.Context, daysAhead int) ([]model.CalendarEvent, error)
}

var _ Source = (*api.Client)(nil)

// UpdateHandler receives the reconciled batch.
type UpdateHandler interface {
	Submit(ctx context.Context, u session.Update) error
}

// UpdateHandlerFunc is a function adapter for UpdateHandler.
type UpdateHandlerFunc func(context.Context, session.Update) error

func (f UpdateHandlerFunc) Submit(ctx context.Context, u session.Update) error {
	return f(ctx, u)
}

// KnownEmails reports what the session already holds, so bodies already
// fetched are not fetched again. Optional.
type KnownEmails interface {
	Email(id string) (model.EmailSummary, bool)
}

// Config holds reconciler configuration.
type Config struct {
	Interval       time.Duration    // Poll interval; 0 disables polling
	Concurrency    int              // Max concurrent full-body fetches (default: 4)
	Timeout        time.Duration    // Per-request timeout (default: 10s)
	MaxEmails      int              // Emails listed per cycle (default: 50)
	EventDaysAhead int              // Days of events listed per cycle (default: 7)
	FullImportance model.Importance // Minimum importance for a full-body fetch (default: high)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       5 * time.Minute,
		Concurrency:    4,
		Timeout:        10 * time.Second,
		MaxEmails:      50,
		EventDaysAhead: 7,
		FullImportance: model.ImportanceHigh,
	}
}

// Stats contains reconciler statistics.
type Stats struct {
	Cycles      int64     `json:"cycles"`
	Listed      int64     `json:"listed"`
	FullFetched int64     `json:"full_fetched"`
	Errors      int64     `json:"errors"`
	LastCycleAt time.Time `json:"last_cycle_at,omitzero"`
}

// Poller periodically reconciles the session with the REST API. The push
// stream is lossy across reconnects; the poller fills the gaps.
type Poller struct {
	cfg     Config
	source  Source
	handler UpdateHandler
	known   KnownEmails
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles      atomic.Int64
	listed      atomic.Int64
	fullFetched atomic.Int64
	errors      atomic.Int64
	lastCycle   atomic.Int64 // Unix nanoseconds
}

// New creates a new Poller. known may be nil.
func New(cfg Config, source Source, handler UpdateHandler, known KnownEmails, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxEmails < 1 {
		cfg.MaxEmails = def.MaxEmails
	}
	if cfg.EventDaysAhead < 1 {
		cfg.EventDaysAhead = def.EventDaysAhead
	}
	if cfg.FullImportance == model.ImportanceUnknown {
		cfg.FullImportance = def.FullImportance
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		known:   known,
		logger:  logger,
	}
}

// Start begins the polling loop. With a zero interval it does nothing.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		p.logger.Info("reconciler disabled")
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("reconciler started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	s := Stats{
		Cycles:      p.cycles.Load(),
		Listed:      p.listed.Load(),
		FullFetched: p.fullFetched.Load(),
		Errors:      p.errors.Load(),
	}
	if ns := p.lastCycle.Load(); ns != 0 {
		s.LastCycleAt = time.Unix(0, ns)
	}
	return s
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.Reconcile(p.ctx)
		}
	}
}

// Reconcile runs one cycle: list emails and events, fetch full bodies for
// important partial emails, then submit everything as one update.
func (p *Poller) Reconcile(ctx context.Context) error {
	start := time.Now()
	p.cycles.Add(1)
	defer p.lastCycle.Store(time.Now().UnixNano())

	listCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	emails, err := p.source.ListEmails(listCtx, p.cfg.MaxEmails)
	cancel()
	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("reconcile list failed", "error", err)
		return err
	}
	p.listed.Add(int64(len(emails)))

	eventsCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	events, err := p.source.ListEvents(eventsCtx, p.cfg.EventDaysAhead)
	cancel()
	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("reconcile events failed", "error", err)
	}

	fetched := p.fetchFull(ctx, emails)

	if err := p.handler.Submit(ctx, session.Update{Source: "poll", Emails: emails, Events: events}); err != nil {
		p.errors.Add(1)
		return err
	}

	p.logger.Info("reconcile cycle complete",
		"emails", len(emails),
		"events", len(events),
		"full_fetched", fetched,
		"duration", time.Since(start),
	)
	return nil
}

// fetchFull replaces qualifying entries of emails in place with their full
// versions. It returns the number fetched.
func (p *Poller) fetchFull(ctx context.Context, emails []model.EmailSummary) int64 {
	sem := semaphore.NewWeighted(int64(p.cfg.Concurrency))
	var wg sync.WaitGroup
	var fetched atomic.Int64

	for i := range emails {
		if !p.wantsFull(emails[i]) {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()

			full, err := p.source.GetEmail(reqCtx, emails[i].ID)
			if err != nil {
				p.errors.Add(1)
				p.logger.Warn("failed to fetch full email", "id", emails[i].ID, "error", err)
				return
			}
			emails[i] = full
			fetched.Add(1)
		}(i)
	}

	wg.Wait()
	p.fullFetched.Add(fetched.Load())
	return fetched.Load()
}

func (p *Poller) wantsFull(e model.EmailSummary) bool {
	if e.IsFull || e.ID == "" || e.Importance < p.cfg.FullImportance {
		return false
	}
	if p.known != nil {
		if have, ok := p.known.Email(e.ID); ok && have.IsFull {
			return false
		}
	}
	return true
}
