package writer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/mailboard/internal/model"
)

// ErrQueueFull is returned by Deliver when the input queue is full.
var ErrQueueFull = errors.New("archive queue full")

// BatchSender is the subset of *pgxpool.Pool used by the writer.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const upsertEmailSQL = `
	INSERT INTO emails (id, thread_id, sender, subject, snippet, summary, body, category, importance, received_at, is_full, original_link)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		thread_id = EXCLUDED.thread_id,
		sender = EXCLUDED.sender,
		subject = EXCLUDED.subject,
		snippet = EXCLUDED.snippet,
		summary = EXCLUDED.summary,
		body = EXCLUDED.body,
		category = EXCLUDED.category,
		importance = EXCLUDED.importance,
		received_at = EXCLUDED.received_at,
		is_full = TRUE,
		original_link = EXCLUDED.original_link,
		archived_at = now()
	WHERE EXCLUDED.is_full AND NOT emails.is_full`

const insertEventSQL = `
	INSERT INTO calendar_events (email_id, starts_at, event_type, description, importance, confidence)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (email_id, starts_at) DO NOTHING`

const insertNotificationSQL = `
	INSERT INTO notifications (id, kind, title, message, count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING`

type emailRow struct {
	ID           string
	ThreadID     string
	Sender       string
	Subject      string
	Snippet      string
	Summary      string
	Body         string
	Category     string
	Importance   int16
	ReceivedAt   *time.Time
	IsFull       bool
	OriginalLink string
}

type eventRow struct {
	EmailID     string
	StartsAt    time.Time
	EventType   string
	Description string
	Importance  int16
	Confidence  float64
}

type notificationRow struct {
	ID        uuid.UUID
	Kind      string
	Title     string
	Message   string
	Count     int32
	CreatedAt time.Time
}

// item is one queued unit of work.
type item struct {
	emails       []model.EmailSummary
	events       []model.CalendarEvent
	notification *model.NotificationRecord
}

// ArchiveWriter persists merge deltas and notification records.
type ArchiveWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input chan item

	// Database; nil disables writes
	db BatchSender

	// Batching
	emails        []emailRow
	events        []eventRow
	notifications []notificationRow
	batchMu       sync.Mutex
	flushTicker   *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewArchiveWriter creates a new ArchiveWriter.
func NewArchiveWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *ArchiveWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &ArchiveWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan item, cfg.BufferSize),
	}
}

// Start begins consuming deltas and writing to the database.
func (w *ArchiveWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the queue, writes what is left and shuts down.
func (w *ArchiveWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
		return ctx.Err()
	}

drain:
	for {
		select {
		case it := <-w.input:
			w.add(it)
		default:
			break drain
		}
	}
	w.flush()

	w.logger.Info("archive writer stopped")
	return nil
}

// Archive queues a merge delta. It never blocks; a full queue drops the
// delta and counts it.
func (w *ArchiveWriter) Archive(emails []model.EmailSummary, events []model.CalendarEvent) {
	if len(emails) == 0 && len(events) == 0 {
		return
	}
	if !w.enqueue(item{emails: emails, events: events}) {
		w.logger.Warn("archive queue full, dropping delta", "emails", len(emails), "events", len(events))
	}
}

// Name identifies the writer as a notification sink.
func (w *ArchiveWriter) Name() string { return "archive" }

// Deliver queues a notification record.
func (w *ArchiveWriter) Deliver(ctx context.Context, rec model.NotificationRecord) error {
	if !w.enqueue(item{notification: &rec}) {
		return ErrQueueFull
	}
	return nil
}

// Stats returns current metrics.
func (w *ArchiveWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *ArchiveWriter) enqueue(it item) bool {
	select {
	case w.input <- it:
		return true
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		return false
	}
}

func (w *ArchiveWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case it := <-w.input:
			if w.add(it) >= w.cfg.BatchSize {
				w.flush()
			}
		}
	}
}

func (w *ArchiveWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// add transforms an item into rows and returns the pending row count.
func (w *ArchiveWriter) add(it item) int {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	for _, e := range it.emails {
		if e.ID == "" {
			continue
		}
		w.emails = append(w.emails, toEmailRow(e))
	}
	for _, ev := range it.events {
		if !ev.Dated() {
			continue
		}
		w.events = append(w.events, toEventRow(ev))
	}
	if it.notification != nil {
		w.notifications = append(w.notifications, toNotificationRow(*it.notification))
	}
	return len(w.emails) + len(w.events) + len(w.notifications)
}

func toEmailRow(e model.EmailSummary) emailRow {
	row := emailRow{
		ID:           e.ID,
		ThreadID:     e.ThreadID,
		Sender:       e.Sender,
		Subject:      e.Subject,
		Snippet:      e.Snippet,
		Summary:      e.Summary,
		Body:         e.Body,
		Category:     e.Category,
		Importance:   int16(e.Importance),
		IsFull:       e.IsFull,
		OriginalLink: e.OriginalLink,
	}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp.UTC()
		row.ReceivedAt = &ts
	}
	return row
}

func toEventRow(ev model.CalendarEvent) eventRow {
	return eventRow{
		EmailID:     ev.EmailID,
		StartsAt:    ev.Timestamp.UTC(),
		EventType:   ev.EventType,
		Description: ev.Description,
		Importance:  int16(ev.Importance),
		Confidence:  ev.Confidence,
	}
}

func toNotificationRow(rec model.NotificationRecord) notificationRow {
	return notificationRow{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Title:     rec.Title,
		Message:   rec.Message,
		Count:     int32(rec.Count),
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

// buildBatch queues emails, then events, then notifications.
func buildBatch(emails []emailRow, events []eventRow, notifications []notificationRow) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range emails {
		batch.Queue(upsertEmailSQL,
			r.ID, r.ThreadID, r.Sender, r.Subject, r.Snippet, r.Summary, r.Body,
			r.Category, r.Importance, r.ReceivedAt, r.IsFull, r.OriginalLink)
	}
	for _, r := range events {
		batch.Queue(insertEventSQL,
			r.EmailID, r.StartsAt, r.EventType, r.Description, r.Importance, r.Confidence)
	}
	for _, r := range notifications {
		batch.Queue(insertNotificationSQL,
			r.ID, r.Kind, r.Title, r.Message, r.Count, r.CreatedAt)
	}
	return batch
}

// flush writes the pending rows to the database.
func (w *ArchiveWriter) flush() {
	w.batchMu.Lock()
	if len(w.emails)+len(w.events)+len(w.notifications) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	emails, events, notifications := w.emails, w.events, w.notifications
	w.emails, w.events, w.notifications = nil, nil, nil
	w.batchMu.Unlock()

	if w.db == nil {
		w.logger.Debug("archive disabled, discarding rows",
			"emails", len(emails), "events", len(events), "notifications", len(notifications))
		return
	}

	start := time.Now()
	res, err := w.send(emails, events, notifications)
	if err != nil {
		w.logger.Error("archive batch failed", "error", err,
			"emails", len(emails), "events", len(events), "notifications", len(notifications))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.EmailRows += res.emailRows
	w.metrics.EmailUnchanged += int64(len(emails)) - res.emailRows
	w.metrics.EventInserts += int64(len(events)) - res.eventConflicts
	w.metrics.EventConflicts += res.eventConflicts
	w.metrics.NotificationRows += int64(len(notifications))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed archive batch",
		"emails", len(emails),
		"events", len(events),
		"event_conflicts", res.eventConflicts,
		"notifications", len(notifications),
		"duration", time.Since(start),
	)
}

type sendResult struct {
	emailRows      int64
	eventConflicts int64
}

func (w *ArchiveWriter) send(emails []emailRow, events []eventRow, notifications []notificationRow) (sendResult, error) {
	base := w.ctx
	if base == nil {
		base = context.Background()
	}
	// The final flush runs after cancel.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(base), 10*time.Second)
	defer cancel()

	var res sendResult
	results := w.db.SendBatch(ctx, buildBatch(emails, events, notifications))
	defer results.Close()

	for range emails {
		ct, err := results.Exec()
		if err != nil {
			return res, err
		}
		res.emailRows += ct.RowsAffected()
	}
	for range events {
		ct, err := results.Exec()
		if err != nil {
			return res, err
		}
		if ct.RowsAffected() == 0 {
			res.eventConflicts++
		}
	}
	for range notifications {
		if _, err := results.Exec(); err != nil {
			return res, err
		}
	}
	return res, nil
}
