package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected   = errors.New("not connected")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrConstruct      = errors.New("invalid endpoint")
	ErrAlreadyClosed  = errors.New("already closed")
	ErrAlreadyStarted = errors.New("already started")
)

// State is the lifecycle state of the logical connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Frame is one inbound text frame.
type Frame struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://127.0.0.1:8000/ws)
	HandshakeTimeout time.Duration // Dial handshake limit
	WriteTimeout     time.Duration // Write deadline for sends
	ReadTimeout      time.Duration // Max silence before the transport is closed (0 = none)
	BufferSize       int           // Inbound and outbound channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      90 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client              ClientConfig  // Transport settings, including the URL
	ReconnectBaseWait   time.Duration // Delay before the first reconnect
	ReconnectGrowth     float64       // Multiplier per consecutive failure
	ReconnectMaxWait    time.Duration // Delay ceiling
	ConstructRetryDelay time.Duration // Fixed delay after a construction error
	KeepAliveInterval   time.Duration // Application ping period while open
	MessageBufferSize   int           // Buffer size for output frame channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:              DefaultClientConfig(),
		ReconnectBaseWait:   3 * time.Second,
		ReconnectGrowth:     1.5,
		ReconnectMaxWait:    30 * time.Second,
		ConstructRetryDelay: 3 * time.Second,
		KeepAliveInterval:   30 * time.Second,
		MessageBufferSize:   1000,
	}
}

// Stats provides statistics about the connection manager.
type Stats struct {
	State           State     `json:"-"`
	StateName       string    `json:"state"`
	Connected       bool      `json:"connected"`
	Attempt         int       `json:"attempt"`
	Opens           int64     `json:"opens"`
	Closes          int64     `json:"closes"`
	ConstructErrors int64     `json:"construct_errors"`
	FramesForwarded int64     `json:"frames_forwarded"`
	SendsDropped    int64     `json:"sends_dropped"`
	LastError       string    `json:"last_error,omitempty"`
	ConnectedAt     time.Time `json:"connected_at,omitzero"`
	NextRetryAt     time.Time `json:"next_retry_at,omitzero"`
}
