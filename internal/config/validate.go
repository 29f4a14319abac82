package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Stream.validate("stream"); err != nil {
		return err
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.InitialLoad < -1 {
		return errors.New("api.initial_load must be >= -1")
	}

	switch c.Notifications.Permission {
	case "granted", "denied", "ask":
	default:
		return fmt.Errorf("notifications.permission must be one of granted, denied, ask, got %q", c.Notifications.Permission)
	}
	if _, err := c.Notifications.Location(); err != nil {
		return fmt.Errorf("notifications.timezone: %w", err)
	}
	if c.Notifications.QueueSize < 1 {
		return errors.New("notifications.queue_size must be >= 1")
	}
	if c.Notifications.Redis.Enabled {
		if c.Notifications.Redis.Addr == "" {
			return errors.New("notifications.redis.addr is required")
		}
		if c.Notifications.Redis.Channel == "" {
			return errors.New("notifications.redis.channel is required")
		}
	}

	if c.History.Size < 1 {
		return errors.New("history.size must be >= 1")
	}

	if c.Poller.Interval < 0 {
		return errors.New("poller.interval must be >= 0")
	}
	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}

	if c.Database.Enabled {
		if err := c.Database.Archive.validate("database.archive"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (s *StreamConfig) validate(prefix string) error {
	if s.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%s.url: %w", prefix, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s.url scheme must be ws or wss, got %q", prefix, u.Scheme)
	}
	if s.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("%s.reconnect_base_delay must be > 0", prefix)
	}
	if s.ReconnectGrowth < 1 {
		return fmt.Errorf("%s.reconnect_growth must be >= 1", prefix)
	}
	if s.ReconnectMaxDelay < s.ReconnectBaseDelay {
		return fmt.Errorf("%s.reconnect_max_delay (%v) cannot be less than reconnect_base_delay (%v)",
			prefix, s.ReconnectMaxDelay, s.ReconnectBaseDelay)
	}
	if s.KeepAliveInterval <= 0 {
		return fmt.Errorf("%s.keepalive_interval must be > 0", prefix)
	}
	if s.ReadTimeout > 0 && s.ReadTimeout <= s.KeepAliveInterval {
		return fmt.Errorf("%s.read_timeout (%v) must exceed keepalive_interval (%v)",
			prefix, s.ReadTimeout, s.KeepAliveInterval)
	}
	if s.BufferSize < 1 {
		return fmt.Errorf("%s.buffer_size must be >= 1", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// Location resolves the configured timezone. Empty means time.Local.
func (n NotificationsConfig) Location() (*time.Location, error) {
	if n.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(n.Timezone)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
