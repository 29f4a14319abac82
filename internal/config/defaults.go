package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID          = "mailboard"
	DefaultStreamURL           = "ws://127.0.0.1:8000/ws"
	DefaultReconnectBaseDelay  = 3 * time.Second
	DefaultReconnectGrowth     = 1.5
	DefaultReconnectMaxDelay   = 30 * time.Second
	DefaultConstructRetryDelay = 3 * time.Second
	DefaultKeepAliveInterval   = 30 * time.Second
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultReadTimeout         = 90 * time.Second
	DefaultStreamBufferSize    = 256
	DefaultRestURL             = "http://127.0.0.1:8000"
	DefaultAPITimeout          = 30 * time.Second
	DefaultMaxRetries          = 3
	DefaultInitialLoad         = 50
	DefaultPermission          = "granted"
	DefaultNotifyQueueSize     = 64
	DefaultRedisAddr           = "127.0.0.1:6379"
	DefaultRedisChannel        = "mailboard:notifications"
	DefaultRedisRecentKey      = "mailboard:notifications:recent"
	DefaultRedisRecentLimit    = 100
	DefaultHistorySize         = 200
	DefaultPollConcurrency     = 4
	DefaultPollMaxEmails       = 50
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 4
	DefaultMinConns            = 1
	DefaultBatchSize           = 100
	DefaultFlushInterval       = 2 * time.Second
	DefaultBufferSize          = 1000
	DefaultHTTPPort            = 8080
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectGrowth == 0 {
		c.Stream.ReconnectGrowth = DefaultReconnectGrowth
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.ConstructRetryDelay == 0 {
		c.Stream.ConstructRetryDelay = DefaultConstructRetryDelay
	}
	if c.Stream.KeepAliveInterval == 0 {
		c.Stream.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.Stream.HandshakeTimeout == 0 {
		c.Stream.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.ReadTimeout == 0 {
		c.Stream.ReadTimeout = DefaultReadTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.InitialLoad == 0 {
		c.API.InitialLoad = DefaultInitialLoad
	}

	// Notification defaults
	if c.Notifications.Permission == "" {
		c.Notifications.Permission = DefaultPermission
	}
	if c.Notifications.QueueSize == 0 {
		c.Notifications.QueueSize = DefaultNotifyQueueSize
	}
	if c.Notifications.Redis.Addr == "" {
		c.Notifications.Redis.Addr = DefaultRedisAddr
	}
	if c.Notifications.Redis.Channel == "" {
		c.Notifications.Redis.Channel = DefaultRedisChannel
	}
	if c.Notifications.Redis.RecentKey == "" {
		c.Notifications.Redis.RecentKey = DefaultRedisRecentKey
	}
	if c.Notifications.Redis.RecentLimit == 0 {
		c.Notifications.Redis.RecentLimit = DefaultRedisRecentLimit
	}

	if c.History.Size == 0 {
		c.History.Size = DefaultHistorySize
	}

	// Poller defaults; Interval stays zero (disabled) unless configured
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.MaxEmails == 0 {
		c.Poller.MaxEmails = DefaultPollMaxEmails
	}

	applyDBDefaults(&c.Database.Archive)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
