package connection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// pingMessage is the application-level keep-alive.
var pingMessage = []byte(`{"type":"ping"}`)

// DialFunc creates and connects a transport.
type DialFunc func(ctx context.Context) (Client, error)

// TimerFunc starts a one-shot timer and returns its channel and a stop function.
type TimerFunc func(d time.Duration) (<-chan time.Time, func() bool)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the WebSocket dialer.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) {
		m.dial = dial
	}
}

// WithTimer replaces the reconnect timer.
func WithTimer(timer TimerFunc) Option {
	return func(m *Manager) {
		m.newTimer = timer
	}
}

type eventKind int

const (
	eventDialed eventKind = iota
	eventClosed
	eventReconnect
)

// event is a lifecycle input for the state machine.
type event struct {
	kind   eventKind
	gen    uint64
	client Client
	err    error
}

// Manager supervises one logical push connection. All lifecycle events are
// serialized through a single event loop; at most one dial is in flight.
type Manager struct {
	cfg     ManagerConfig
	backoff Backoff
	logger  *slog.Logger

	dial     DialFunc
	newTimer TimerFunc

	events chan event
	frames chan Frame

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Owned by the event loop.
	client        Client
	gen           uint64
	reconnectC    <-chan time.Time
	stopReconnect func() bool
	keepalive     *time.Ticker

	// Published for readers.
	mu      sync.RWMutex
	current Client
	stats   Stats
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MessageBufferSize < 1 {
		cfg.MessageBufferSize = DefaultManagerConfig().MessageBufferSize
	}

	m := &Manager{
		cfg: cfg,
		backoff: Backoff{
			Base:   cfg.ReconnectBaseWait,
			Growth: cfg.ReconnectGrowth,
			Max:    cfg.ReconnectMaxWait,
		},
		logger:   logger,
		newTimer: realTimer,
		events:   make(chan event, 16),
		frames:   make(chan Frame, cfg.MessageBufferSize),
	}
	m.dial = m.dialWebSocket
	m.stats.State = StateClosed

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// dialWebSocket is the default DialFunc.
func (m *Manager) dialWebSocket(ctx context.Context) (Client, error) {
	c := NewClient(m.cfg.Client, m.logger)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start opens the first connection and runs the event loop.
func (m *Manager) Start(ctx context.Context) error {
	if m.cancel != nil {
		return ErrAlreadyStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("connection manager started", "url", m.cfg.Client.URL)
	return nil
}

// Stop shuts down the connection. A pending reconnect never fires after Stop.
func (m *Manager) Stop(ctx context.Context) error {
	var err error
	m.stopOnce.Do(func() {
		m.logger.Info("stopping connection manager")

		if m.cancel == nil {
			close(m.frames)
			return
		}
		m.cancel()

		// Wait for goroutines with timeout
		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			close(m.frames)
			m.logger.Info("connection manager stopped")
		case <-ctx.Done():
			m.logger.Warn("shutdown timeout, leaving frame channel open")
			err = ctx.Err()
		}
	})
	return err
}

// Messages returns inbound frames from whichever transport is current.
func (m *Manager) Messages() <-chan Frame {
	return m.frames
}

// Send marshals v (unless it is already []byte) and queues it on the open
// transport. When not connected it logs and drops. It never blocks.
func (m *Manager) Send(v any) bool {
	m.mu.RLock()
	c := m.current
	state := m.stats.State
	m.mu.RUnlock()

	if c == nil || state != StateOpen {
		m.logger.Warn("not connected, dropping outbound message", "state", state)
		m.countDroppedSend()
		return false
	}

	data, ok := v.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(v); err != nil {
			m.logger.Warn("cannot encode outbound message", "error", err)
			m.countDroppedSend()
			return false
		}
	}

	if err := c.Send(data); err != nil {
		m.logger.Warn("dropping outbound message", "error", err)
		m.countDroppedSend()
		return false
	}
	return true
}

// Reconnect asks for an immediate reconnect. It only has an effect while a
// reconnect is pending.
func (m *Manager) Reconnect() {
	if m.ctx == nil {
		return
	}
	select {
	case m.events <- event{kind: eventReconnect}:
	case <-m.ctx.Done():
	}
}

// Connected reports whether the connection is open.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.Connected
}

// Attempt returns the count of consecutive failures since the last open.
func (m *Manager) Attempt() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.Attempt
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.State
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.StateName = s.State.String()
	return s
}

// run is the event loop. It is the only goroutine that mutates lifecycle state.
func (m *Manager) run() {
	defer m.wg.Done()

	m.open()

	for {
		var keepaliveC <-chan time.Time
		if m.keepalive != nil {
			keepaliveC = m.keepalive.C
		}

		select {
		case <-m.ctx.Done():
			m.shutdown()
			return

		case ev := <-m.events:
			m.handle(ev)

		case <-m.reconnectC:
			m.reconnectC, m.stopReconnect = nil, nil
			m.open()

		case <-keepaliveC:
			if m.client != nil {
				if err := m.client.Send(pingMessage); err != nil {
					m.logger.Debug("keep-alive ping not sent", "error", err)
				}
			}
		}
	}
}

func (m *Manager) handle(ev event) {
	switch ev.kind {
	case eventDialed:
		if ev.gen != m.gen {
			if ev.client != nil {
				ev.client.Close()
			}
			return
		}
		if ev.err != nil {
			if errors.Is(ev.err, ErrConstruct) {
				m.onConstructError(ev.err)
			} else {
				m.onClosed(ev.err)
			}
			return
		}
		m.onOpen(ev.client)

	case eventClosed:
		if ev.gen != m.gen || m.client == nil {
			return
		}
		m.client.Close()
		m.client = nil
		m.stopKeepAlive()
		m.onClosed(ev.err)

	case eventReconnect:
		if m.reconnectC == nil {
			return
		}
		m.stopReconnect()
		m.reconnectC, m.stopReconnect = nil, nil
		m.logger.Info("manual reconnect requested")
		m.open()
	}
}

// open starts a dial for a new generation. Events for older generations are
// ignored from here on.
func (m *Manager) open() {
	m.gen++
	gen := m.gen

	m.mu.Lock()
	m.stats.State = StateConnecting
	m.stats.NextRetryAt = time.Time{}
	attempt := m.stats.Attempt
	m.mu.Unlock()

	m.logger.Info("connecting", "url", m.cfg.Client.URL, "attempt", attempt)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		c, err := m.dial(m.ctx)
		m.post(event{kind: eventDialed, gen: gen, client: c, err: err})
	}()
}

func (m *Manager) onOpen(c Client) {
	m.client = c
	m.startKeepAlive()

	m.mu.Lock()
	m.current = c
	m.stats.State = StateOpen
	m.stats.Connected = true
	m.stats.Attempt = 0
	m.stats.Opens++
	m.stats.ConnectedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.cfg.Client.URL)

	m.wg.Add(1)
	go m.forward(m.gen, c)
}

// onClosed handles a lost connection or failed dial.
func (m *Manager) onClosed(err error) {
	m.mu.Lock()
	delay := m.backoff.Delay(m.stats.Attempt)
	m.stats.Attempt++
	attempt := m.stats.Attempt
	m.stats.State = StateClosed
	m.stats.Connected = false
	m.stats.Closes++
	m.current = nil
	if err != nil {
		m.stats.LastError = err.Error()
	}
	m.mu.Unlock()

	m.logger.Warn("connection closed, scheduling reconnect",
		"error", err,
		"delay", delay,
		"attempt", attempt,
	)
	m.schedule(delay)
}

// onConstructError retries after a fixed delay without advancing the attempt.
func (m *Manager) onConstructError(err error) {
	m.mu.Lock()
	m.stats.State = StateClosed
	m.stats.Connected = false
	m.stats.ConstructErrors++
	m.stats.LastError = err.Error()
	m.current = nil
	m.mu.Unlock()

	m.logger.Error("cannot construct connection",
		"error", err,
		"delay", m.cfg.ConstructRetryDelay,
	)
	m.schedule(m.cfg.ConstructRetryDelay)
}

func (m *Manager) schedule(d time.Duration) {
	if m.stopReconnect != nil {
		m.stopReconnect()
	}
	m.reconnectC, m.stopReconnect = m.newTimer(d)

	m.mu.Lock()
	m.stats.NextRetryAt = time.Now().Add(d)
	m.mu.Unlock()
}

// forward copies frames from one transport into the shared channel and
// reports the close when the transport ends.
func (m *Manager) forward(gen uint64, c Client) {
	defer m.wg.Done()

	for f := range c.Messages() {
		select {
		case m.frames <- f:
			m.mu.Lock()
			m.stats.FramesForwarded++
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}

	err := c.Err()
	if err == nil {
		err = ErrNotConnected
	}
	m.post(event{kind: eventClosed, gen: gen, err: err})
}

// post delivers an event to the loop unless the manager is stopping.
func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
		if ev.client != nil {
			ev.client.Close()
		}
	}
}

func (m *Manager) startKeepAlive() {
	m.stopKeepAlive()
	if m.cfg.KeepAliveInterval > 0 {
		m.keepalive = time.NewTicker(m.cfg.KeepAliveInterval)
	}
}

func (m *Manager) stopKeepAlive() {
	if m.keepalive != nil {
		m.keepalive.Stop()
		m.keepalive = nil
	}
}

// shutdown clears both timers and closes the transport.
func (m *Manager) shutdown() {
	if m.stopReconnect != nil {
		m.stopReconnect()
	}
	m.reconnectC, m.stopReconnect = nil, nil
	m.stopKeepAlive()

	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	m.mu.Lock()
	m.current = nil
	m.stats.State = StateClosed
	m.stats.Connected = false
	m.stats.NextRetryAt = time.Time{}
	m.mu.Unlock()
}

func (m *Manager) countDroppedSend() {
	m.mu.Lock()
	m.stats.SendsDropped++
	m.mu.Unlock()
}
