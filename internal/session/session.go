package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/mailboard/internal/connection"
	"github.com/rickgao/mailboard/internal/model"
	"github.com/rickgao/mailboard/internal/notify"
	"github.com/rickgao/mailboard/internal/router"
	"github.com/rickgao/mailboard/internal/state"
)

var (
	ErrNotStarted = errors.New("session not started")
	ErrStopped    = errors.New("session stopped")
	ErrNoFetcher  = errors.New("no REST fetcher configured")
)

// Fetcher pulls emails and events over REST.
type Fetcher interface {
	ListEmails(ctx context.Context, max int) ([]model.EmailSummary, error)
	GetEmail(ctx context.Context, id string) (model.EmailSummary, error)
	ListEvents(ctx context.Context, daysAhead int) ([]model.CalendarEvent, error)
}

// Archiver receives every merge delta. Implementations must not block.
type Archiver interface {
	Archive(emails []model.EmailSummary, events []model.CalendarEvent)
}

// Update is a batch submitted from outside the push stream.
type Update struct {
	Source string // "initial", "fetch", "poll"
	Emails []model.EmailSummary
	Events []model.CalendarEvent
}

// Config configures a Session.
type Config struct {
	HistorySize       int // Router history capacity
	NotificationLimit int // Recent notification records kept for display
	InitialLoad       int // Emails requested by LoadInitial
	EventDaysAhead    int // Days of events requested by LoadInitial
	UpdateBuffer      int // Pending submitted updates

	Location *time.Location // Zone defining "today" in snapshots; nil means time.Local
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		HistorySize:       200,
		NotificationLimit: 20,
		InitialLoad:       50,
		EventDaysAhead:    7,
		UpdateBuffer:      16,
		Location:          time.Local,
	}
}

// Option configures optional collaborators.
type Option func(*Session)

// WithFetcher enables LoadInitial and FetchFull.
func WithFetcher(f Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithArchiver hands every merge delta to a.
func WithArchiver(a Archiver) Option {
	return func(s *Session) { s.archiver = a }
}

// WithClock overrides time.Now for notification evaluation.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session ties the connection, router, store and trigger together. All
// merging and notification evaluation happens on its single goroutine.
type Session struct {
	cfg     Config
	manager *connection.Manager
	trigger *notify.Trigger
	router  *router.Router
	store   *state.Store
	logger  *slog.Logger

	fetcher  Fetcher
	archiver Archiver
	now      func() time.Time

	updates       chan Update
	notifications *router.Ring[model.NotificationRecord]

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.RWMutex
	applied int64
}

// New creates a Session over an unstarted manager and trigger.
func New(cfg Config, manager *connection.Manager, trigger *notify.Trigger, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.NotificationLimit < 1 {
		cfg.NotificationLimit = def.NotificationLimit
	}
	if cfg.UpdateBuffer < 1 {
		cfg.UpdateBuffer = def.UpdateBuffer
	}
	if cfg.InitialLoad < 1 {
		cfg.InitialLoad = def.InitialLoad
	}
	if cfg.EventDaysAhead < 1 {
		cfg.EventDaysAhead = def.EventDaysAhead
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	s := &Session{
		cfg:           cfg,
		manager:       manager,
		trigger:       trigger,
		store:         state.New(),
		logger:        logger,
		now:           time.Now,
		updates:       make(chan Update, cfg.UpdateBuffer),
		notifications: router.NewRing[model.NotificationRecord](cfg.NotificationLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = router.New(router.Config{HistorySize: cfg.HistorySize}, s, logger.With("component", "router"))
	return s
}

// Start starts the trigger, the connection and the processing goroutine.
func (s *Session) Start(ctx context.Context) error {
	if s.cancel != nil {
		return connection.ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.trigger.Start(s.ctx); err != nil {
		return fmt.Errorf("start notification trigger: %w", err)
	}
	if err := s.manager.Start(s.ctx); err != nil {
		return fmt.Errorf("start connection manager: %w", err)
	}

	s.wg.Add(1)
	go s.run()

	s.logger.Info("session started")
	return nil
}

// Stop closes the connection, finishes the current input and drains pending
// notifications.
func (s *Session) Stop(ctx context.Context) error {
	var errs []error
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			return
		}

		if err := s.manager.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop connection manager: %w", err))
		}
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("stop session: %w", ctx.Err()))
		}

		if err := s.trigger.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop notification trigger: %w", err))
		}
		s.logger.Info("session stopped")
	})
	return errors.Join(errs...)
}

// Submit queues an update for the processing goroutine. It blocks until the
// update is queued, ctx ends or the session stops.
func (s *Session) Submit(ctx context.Context, u Update) error {
	if s.ctx == nil {
		return ErrNotStarted
	}
	select {
	case s.updates <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrStopped
	}
}

// LoadInitial fetches recent emails and upcoming events and submits them.
func (s *Session) LoadInitial(ctx context.Context) error {
	if s.fetcher == nil {
		return ErrNoFetcher
	}

	emails, err := s.fetcher.ListEmails(ctx, s.cfg.InitialLoad)
	if err != nil {
		return fmt.Errorf("list emails: %w", err)
	}

	// Events are a bonus; a failure here should not hide the inbox.
	events, err := s.fetcher.ListEvents(ctx, s.cfg.EventDaysAhead)
	if err != nil {
		s.logger.Warn("initial event load failed", "error", err)
	}

	s.logger.Info("initial load fetched", "emails", len(emails), "events", len(events))
	return s.Submit(ctx, Update{Source: "initial", Emails: emails, Events: events})
}

// FetchFull retrieves the full body of one email and merges it.
func (s *Session) FetchFull(ctx context.Context, id string) error {
	if s.fetcher == nil {
		return ErrNoFetcher
	}

	email, err := s.fetcher.GetEmail(ctx, id)
	if err != nil {
		return fmt.Errorf("get email %s: %w", id, err)
	}
	return s.Submit(ctx, Update{Source: "fetch", Emails: []model.EmailSummary{email}})
}

// Send forwards v to the push server. It never blocks.
func (s *Session) Send(v any) bool {
	return s.manager.Send(v)
}

// Reconnect forces the connection to be re-established.
func (s *Session) Reconnect() {
	s.manager.Reconnect()
}

// Store exposes the canonical collections for read-only views.
func (s *Session) Store() *state.Store {
	return s.store
}

func (s *Session) run() {
	defer s.wg.Done()

	frames := s.manager.Messages()
	for {
		select {
		case <-s.ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			_ = s.router.Route(f) // decode errors are logged and counted by the router
		case u := <-s.updates:
			s.apply(u)
		}
	}
}

// apply merges a submitted update.
func (s *Session) apply(u Update) {
	delta := s.store.MergeEmails(u.Emails)
	events := append(state.EventsFrom(delta), u.Events...)
	added := s.store.MergeEvents(events)

	s.logger.Debug("applied update",
		"source", u.Source,
		"emails", len(u.Emails),
		"changed", len(delta),
		"new_events", len(added),
	)
	s.publish(delta, added)
}

// HandleEmailUpdate replaces the viewable list with emails.
func (s *Session) HandleEmailUpdate(emails []model.EmailSummary) {
	delta := s.store.ReplaceEmails(emails)
	s.publish(delta, s.store.MergeEvents(state.EventsFrom(delta)))
}

// HandleNewEmails merges emails.
func (s *Session) HandleNewEmails(emails []model.EmailSummary) {
	delta := s.store.MergeEmails(emails)
	s.publish(delta, s.store.MergeEvents(state.EventsFrom(delta)))
}

// HandleNewEvents merges every event in the batch.
func (s *Session) HandleNewEvents(batch model.EventBatch) {
	s.publish(nil, s.store.MergeEvents(batch.Events()))
}

// HandleNotifications relays server notices.
func (s *Session) HandleNotifications(notices []model.Notice) {
	s.remember(s.trigger.Relay(notices, s.now()))
}

// publish hands a completed merge delta to the archiver and the trigger.
func (s *Session) publish(emails []model.EmailSummary, events []model.CalendarEvent) {
	s.mu.Lock()
	s.applied++
	s.mu.Unlock()

	if len(emails) == 0 && len(events) == 0 {
		return
	}
	if s.archiver != nil {
		s.archiver.Archive(emails, events)
	}
	s.remember(s.trigger.Evaluate(emails, events, s.now()))
}

func (s *Session) remember(records []model.NotificationRecord) {
	for _, rec := range records {
		s.notifications.Push(rec)
	}
}
