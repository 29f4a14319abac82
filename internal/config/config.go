package config

import "time"

// Config is the root configuration shared by syncd, dashboard and streamtest.
type Config struct {
	Instance      InstanceConfig      `yaml:"instance"`
	Stream        StreamConfig        `yaml:"stream"`
	API           APIConfig           `yaml:"api"`
	Notifications NotificationsConfig `yaml:"notifications"`
	History       HistoryConfig       `yaml:"history"`
	Poller        PollerConfig        `yaml:"poller"`
	Database      DatabaseConfig      `yaml:"database"`
	Writers       WritersConfig       `yaml:"writers"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           LogConfig           `yaml:"log"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// StreamConfig holds push channel settings.
type StreamConfig struct {
	URL                 string        `yaml:"url"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay"`
	ReconnectGrowth     float64       `yaml:"reconnect_growth"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
	ConstructRetryDelay time.Duration `yaml:"construct_retry_delay"` // Fixed delay after an endpoint construction error
	KeepAliveInterval   time.Duration `yaml:"keepalive_interval"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	BufferSize          int           `yaml:"buffer_size"`
}

// APIConfig holds REST settings.
type APIConfig struct {
	RestURL     string        `yaml:"rest_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	InitialLoad int           `yaml:"initial_load"` // Emails fetched at startup, -1 skips the initial load
}

// NotificationsConfig holds notification trigger settings.
type NotificationsConfig struct {
	Permission string      `yaml:"permission"` // granted, denied or ask
	Timezone   string      `yaml:"timezone"`   // IANA zone for "today", empty means local
	QueueSize  int         `yaml:"queue_size"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig configures the optional Redis notification sink.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	Channel     string `yaml:"channel"`
	RecentKey   string `yaml:"recent_key"`
	RecentLimit int    `yaml:"recent_limit"`
}

// HistoryConfig sizes the inbound message history.
type HistoryConfig struct {
	Size int `yaml:"size"`
}

// PollerConfig holds REST reconciler settings. A zero interval disables it.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	MaxEmails   int           `yaml:"max_emails"`
}

// DatabaseConfig holds the optional archive database.
type DatabaseConfig struct {
	Enabled bool     `yaml:"enabled"`
	Archive DBConfig `yaml:"archive"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds archive writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HTTPConfig holds the syncd HTTP server settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // Empty logs to stderr
}
