package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/mailboard/internal/model"
)

// Sink delivers notification records to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rec model.NotificationRecord) error
}

// LogSink writes each record as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, rec model.NotificationRecord) error {
	s.logger.Info("notification",
		"id", rec.ID,
		"kind", rec.Kind,
		"title", rec.Title,
		"message", rec.Message,
		"count", rec.Count,
	)
	return nil
}

// ChanSink feeds records to an in-process consumer such as the dashboard.
// A full channel drops the record rather than blocking delivery.
type ChanSink struct {
	ch chan model.NotificationRecord
}

// NewChanSink creates a channel sink with the given buffer.
func NewChanSink(buffer int) *ChanSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanSink{ch: make(chan model.NotificationRecord, buffer)}
}

func (s *ChanSink) Name() string { return "channel" }

// C returns the receive side.
func (s *ChanSink) C() <-chan model.NotificationRecord { return s.ch }

func (s *ChanSink) Deliver(ctx context.Context, rec model.NotificationRecord) error {
	select {
	case s.ch <- rec:
		return nil
	default:
		return fmt.Errorf("channel sink full")
	}
}

// redisCommander is the subset of *redis.Client used by RedisSink.
type redisCommander interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisSinkConfig configures RedisSink.
type RedisSinkConfig struct {
	Channel     string // Pub/sub channel for live subscribers
	RecentKey   string // List holding the newest records; empty disables it
	RecentLimit int    // Length the list is trimmed to
}

// RedisSink publishes records as JSON and keeps a capped list of recent ones.
type RedisSink struct {
	client redisCommander
	cfg    RedisSinkConfig
}

// NewRedisClient creates a go-redis client with conservative timeouts.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
}

// NewRedisSink creates a Redis sink on an existing client.
func NewRedisSink(client redisCommander, cfg RedisSinkConfig) *RedisSink {
	if cfg.RecentLimit < 1 {
		cfg.RecentLimit = 100
	}
	return &RedisSink{client: client, cfg: cfg}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, rec model.NotificationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := s.client.Publish(ctx, s.cfg.Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	if s.cfg.RecentKey == "" {
		return nil
	}
	if err := s.client.LPush(ctx, s.cfg.RecentKey, payload).Err(); err != nil {
		return fmt.Errorf("push recent notification: %w", err)
	}
	if err := s.client.LTrim(ctx, s.cfg.RecentKey, 0, int64(s.cfg.RecentLimit-1)).Err(); err != nil {
		return fmt.Errorf("trim recent notifications: %w", err)
	}
	return nil
}
