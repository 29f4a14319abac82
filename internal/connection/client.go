package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket transport to the push server.
// A Client is single-use: once it closes, a new one is dialed.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send queues raw bytes for the write pump without blocking.
	Send(data []byte) error

	// Messages returns a channel of inbound frames. It is closed when the
	// connection ends for any reason.
	Messages() <-chan Frame

	// Err returns why the connection ended, or nil after a local Close.
	Err() error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// WSClient implements Client on top of gorilla/websocket.
type WSClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan Frame
	outbox   chan []byte
	done     chan struct{}
	doneOnce sync.Once

	mu        sync.RWMutex
	connected bool
	closed    bool
	err       error
}

// NewClient creates a new WebSocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultClientConfig().BufferSize
	}

	return &WSClient{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan Frame, cfg.BufferSize),
		outbox:   make(chan []byte, cfg.BufferSize),
		done:     make(chan struct{}),
	}
}

// Endpoint validates a WebSocket URL. Failures wrap ErrConstruct.
func Endpoint(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrConstruct)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstruct, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrConstruct, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrConstruct)
	}
	return u, nil
}

// Connect establishes the WebSocket connection.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	u, err := Endpoint(c.cfg.URL)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.extendReadDeadline()

	// Any inbound control frame proves the peer is alive.
	conn.SetPingHandler(func(data string) error {
		c.extendReadDeadline()
		err := conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	go c.readLoop()
	go c.writeLoop()

	c.logger.Debug("websocket connected", "url", u.Redacted())

	return nil
}

// Close gracefully closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })

	if conn == nil {
		// Never connected, so no read loop will close the channel.
		close(c.messages)
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// Send queues raw bytes for the write pump. It never blocks.
func (c *WSClient) Send(data []byte) error {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Messages returns the inbound frame channel.
func (c *WSClient) Messages() <-chan Frame {
	return c.messages
}

// Err returns the error that ended the connection.
func (c *WSClient) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// IsConnected returns the current connection state.
func (c *WSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// fail records the first remote error and tears the transport down.
func (c *WSClient) fail(err error) {
	c.mu.Lock()
	if !c.closed && c.err == nil {
		c.err = err
	}
	c.connected = false
	c.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })
	c.conn.Close()
}

func (c *WSClient) extendReadDeadline() {
	if c.cfg.ReadTimeout <= 0 {
		return
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
}

// readLoop reads frames until the connection ends, then closes messages.
func (c *WSClient) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !closed {
				c.logger.Debug("websocket read failed", "error", err)
			}
			c.fail(err)
			return
		}

		c.extendReadDeadline()

		select {
		case c.messages <- Frame{Data: data, ReceivedAt: receivedAt}:
		case <-c.done:
			return
		}
	}
}

// writeLoop drains the outbox. All data writes happen here.
func (c *WSClient) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.fail(err)
				return
			}
		}
	}
}
