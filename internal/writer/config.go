package writer

import "time"

// WriterConfig configures batching.
type WriterConfig struct {
	BatchSize     int           // Rows per flush (default: 100)
	FlushInterval time.Duration // Max time a row waits (default: 2s)
	BufferSize    int           // Pending deltas before dropping (default: 1000)
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    1000,
	}
}

// WriterMetrics contains writer statistics.
type WriterMetrics struct {
	EmailRows        int64 `json:"email_rows"`
	EmailUnchanged   int64 `json:"email_unchanged"`
	EventInserts     int64 `json:"event_inserts"`
	EventConflicts   int64 `json:"event_conflicts"`
	NotificationRows int64 `json:"notification_rows"`
	Dropped          int64 `json:"dropped"`
	Errors           int64 `json:"errors"`
	Flushes          int64 `json:"flushes"`
}
