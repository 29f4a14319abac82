package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/mailboard/internal/model"
)

// Config configures the Notification Trigger.
type Config struct {
	QueueSize int            // Pending deliveries before records are dropped
	Location  *time.Location // Zone defining "today"; nil means time.Local
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize: 64,
		Location:  time.Local,
	}
}

// Stats contains trigger statistics.
type Stats struct {
	Permission string `json:"permission"`
	Raised     int64  `json:"raised"`
	Relayed    int64  `json:"relayed"`
	Suppressed int64  `json:"suppressed"` // Evaluations skipped for lack of permission
	Delivered  int64  `json:"delivered"`
	Failed     int64  `json:"failed"`
	Dropped    int64  `json:"dropped"`
}

// Trigger decides when a merge delta warrants a user-facing alert and hands
// records to sinks asynchronously.
type Trigger struct {
	cfg    Config
	perms  Permissions
	sinks  []Sink
	logger *slog.Logger

	queue chan model.NotificationRecord

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once

	mu    sync.Mutex
	stats Stats
}

// New creates a Notification Trigger. perms is consulted on every Evaluate.
func New(cfg Config, perms Permissions, logger *slog.Logger, sinks ...Sink) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if perms == nil {
		perms = Static(PermissionDenied)
	}

	return &Trigger{
		cfg:    cfg,
		perms:  perms,
		sinks:  sinks,
		logger: logger,
		queue:  make(chan model.NotificationRecord, cfg.QueueSize),
	}
}

// Start requests permission once if undecided and starts delivery.
func (t *Trigger) Start(ctx context.Context) error {
	t.startOnce.Do(func() {
		if t.perms.State() == PermissionDefault {
			p := t.perms.Request(ctx)
			t.logger.Info("notification permission requested", "result", p)
		}

		t.ctx, t.cancel = context.WithCancel(ctx)
		t.wg.Add(1)
		go t.deliverLoop()

		t.logger.Info("notification trigger started",
			"permission", t.perms.State(),
			"sinks", len(t.sinks),
		)
	})
	return nil
}

// Stop drains queued records and stops delivery.
func (t *Trigger) Stop(ctx context.Context) error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("notification trigger stopped")
	case <-ctx.Done():
		t.logger.Warn("notification trigger stop timed out")
		return ctx.Err()
	}
	return nil
}

// Evaluate inspects a merge delta. It raises at most one aggregate alert for
// emails of importance medium or higher and one for events falling on now's
// calendar day. Without granted permission it does nothing. Records are
// queued for delivery and returned; Evaluate never blocks.
func (t *Trigger) Evaluate(emails []model.EmailSummary, events []model.CalendarEvent, now time.Time) []model.NotificationRecord {
	if len(emails) == 0 && len(events) == 0 {
		return nil
	}
	if t.perms.State() != PermissionGranted {
		t.mu.Lock()
		t.stats.Suppressed++
		t.mu.Unlock()
		return nil
	}

	var important int
	for _, e := range emails {
		if e.Importance >= model.ImportanceMedium {
			important++
		}
	}

	var today int
	for _, ev := range events {
		if ev.Dated() && model.SameDay(ev.Timestamp, now, t.cfg.Location) {
			today++
		}
	}

	var records []model.NotificationRecord
	if important > 0 {
		records = append(records, newRecord(model.KindImportantEmails,
			"Important Emails",
			fmt.Sprintf("%d important %s updated", important, plural(important, "email", "emails")),
			important, now))
	}
	if today > 0 {
		records = append(records, newRecord(model.KindEventsToday,
			"Events Today",
			fmt.Sprintf("You have %d %s scheduled for today", today, plural(today, "event", "events")),
			today, now))
	}

	for _, rec := range records {
		t.enqueue(rec)
	}

	t.mu.Lock()
	t.stats.Raised += int64(len(records))
	t.mu.Unlock()

	return records
}

// Relay turns server notices into records, one per notice. Notices are
// in-app messages and bypass both the importance rule and the permission.
func (t *Trigger) Relay(notices []model.Notice, now time.Time) []model.NotificationRecord {
	records := make([]model.NotificationRecord, 0, len(notices))
	for _, n := range notices {
		if n.Title == "" && n.Message == "" {
			continue
		}
		rec := newRecord(model.KindServer, n.Title, n.Message, 0, now)
		t.enqueue(rec)
		records = append(records, rec)
	}

	t.mu.Lock()
	t.stats.Relayed += int64(len(records))
	t.mu.Unlock()

	return records
}

// Permission returns the current permission.
func (t *Trigger) Permission() Permission {
	return t.perms.State()
}

// Stats returns current statistics.
func (t *Trigger) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Permission = t.perms.State().String()
	return s
}

// enqueue hands a record to the delivery goroutine (non-blocking).
func (t *Trigger) enqueue(rec model.NotificationRecord) {
	select {
	case t.queue <- rec:
	default:
		t.mu.Lock()
		t.stats.Dropped++
		t.mu.Unlock()
		t.logger.Warn("notification queue full, dropping", "kind", rec.Kind, "title", rec.Title)
	}
}

func (t *Trigger) deliverLoop() {
	defer t.wg.Done()

	for {
		select {
		case rec := <-t.queue:
			t.deliver(rec)
		case <-t.ctx.Done():
			// Drain what is already queued.
			for {
				select {
				case rec := <-t.queue:
					t.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

func (t *Trigger) deliver(rec model.NotificationRecord) {
	// Delivery outlives the trigger context so the final drain still lands.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 5*time.Second)
	defer cancel()

	for _, sink := range t.sinks {
		if err := sink.Deliver(ctx, rec); err != nil {
			t.mu.Lock()
			t.stats.Failed++
			t.mu.Unlock()
			t.logger.Warn("notification delivery failed",
				"sink", sink.Name(),
				"kind", rec.Kind,
				"error", err,
			)
			continue
		}
		t.mu.Lock()
		t.stats.Delivered++
		t.mu.Unlock()
	}
}

func newRecord(kind model.NotificationKind, title, message string, count int, now time.Time) model.NotificationRecord {
	return model.NotificationRecord{
		ID:        uuid.New(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		Count:     count,
		CreatedAt: now,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
