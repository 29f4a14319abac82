package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeTimer records requested delays and lets the test fire them.
type fakeTimer struct {
	mu      sync.Mutex
	delays  chan time.Duration
	pending chan time.Time
	stopped int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{delays: make(chan time.Duration, 32)}
}

func (f *fakeTimer) start(d time.Duration) (<-chan time.Time, func() bool) {
	c := make(chan time.Time, 1)
	f.mu.Lock()
	f.pending = c
	f.mu.Unlock()
	f.delays <- d
	return c, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped++
		return true
	}
}

func (f *fakeTimer) fire() {
	f.mu.Lock()
	c := f.pending
	f.mu.Unlock()
	c <- time.Now()
}

func (f *fakeTimer) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeTimer) next(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-f.delays:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a reconnect to be scheduled")
		return 0
	}
}

func (f *fakeTimer) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case d := <-f.delays:
		t.Fatalf("unexpected reconnect scheduled after %v", d)
	case <-time.After(wait):
	}
}

// fakeClient is an in-memory transport.
type fakeClient struct {
	msgs      chan Frame
	closeOnce sync.Once

	mu     sync.Mutex
	sent   [][]byte
	err    error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{msgs: make(chan Frame, 10)}
}

func (c *fakeClient) Connect(ctx context.Context) error { return nil }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.msgs) })
	return nil
}

func (c *fakeClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeClient) Messages() <-chan Frame { return c.msgs }

func (c *fakeClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// drop simulates the remote side going away.
func (c *fakeClient) drop(err error) {
	c.mu.Lock()
	c.err = err
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.msgs) })
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// scriptedDialer returns the next scripted result on each dial.
type scriptedDialer struct {
	mu      sync.Mutex
	results []func() (Client, error)
	calls   atomic.Int32
}

func (d *scriptedDialer) dial(ctx context.Context) (Client, error) {
	d.calls.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.results) == 0 {
		return nil, errors.New("connection refused")
	}
	next := d.results[0]
	if len(d.results) > 1 {
		d.results = d.results[1:]
	}
	return next()
}

func failWith(err error) func() (Client, error) {
	return func() (Client, error) { return nil, err }
}

func succeedWith(c Client) func() (Client, error) {
	return func() (Client, error) { return c, nil }
}

func testManagerConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Client.URL = "ws://127.0.0.1:1/ws"
	cfg.MessageBufferSize = 10
	return cfg
}

func startManager(t *testing.T, cfg ManagerConfig, opts ...Option) *Manager {
	t.Helper()
	mgr := NewManager(cfg, nil, opts...)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mgr.Stop(ctx)
	})
	return mgr
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Base: 3 * time.Second, Growth: 1.5, Max: 30 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 3000 * time.Millisecond},
		{0, 3000 * time.Millisecond},
		{1, 4500 * time.Millisecond},
		{2, 6750 * time.Millisecond},
		{3, 10125 * time.Millisecond},
		{5, 22781250 * time.Microsecond},
		{6, 30 * time.Second},
		{100, 30 * time.Second},
		{100000, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.attempt), func(t *testing.T) {
			if got := b.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestManager_BackoffSchedule(t *testing.T) {
	timer := newFakeTimer()
	dialer := &scriptedDialer{}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))

	want := []time.Duration{3000 * time.Millisecond, 4500 * time.Millisecond, 6750 * time.Millisecond}
	for i, w := range want {
		if got := timer.next(t); got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
		if mgr.Connected() {
			t.Error("expected Connected() = false while reconnecting")
		}
		if i < len(want)-1 {
			timer.fire()
		}
	}

	waitFor(t, "attempt counter", func() bool { return mgr.Attempt() == 3 })
	if got := mgr.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
	if got := dialer.calls.Load(); got != 3 {
		t.Errorf("dial calls = %d, want 3", got)
	}
}

func TestManager_AttemptResetsOnOpen(t *testing.T) {
	timer := newFakeTimer()
	fc := newFakeClient()
	dialer := &scriptedDialer{results: []func() (Client, error){
		failWith(errors.New("refused")),
		failWith(errors.New("refused")),
		succeedWith(fc),
		failWith(errors.New("refused")),
	}}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))

	if got := timer.next(t); got != 3000*time.Millisecond {
		t.Errorf("first delay = %v, want 3s", got)
	}
	timer.fire()
	if got := timer.next(t); got != 4500*time.Millisecond {
		t.Errorf("second delay = %v, want 4.5s", got)
	}
	timer.fire()

	waitFor(t, "open", mgr.Connected)
	if got := mgr.Attempt(); got != 0 {
		t.Errorf("Attempt() = %d, want 0 after open", got)
	}
	if got := mgr.State(); got != StateOpen {
		t.Errorf("State() = %v, want %v", got, StateOpen)
	}

	fc.drop(errors.New("connection reset"))

	if got := timer.next(t); got != 3000*time.Millisecond {
		t.Errorf("delay after reset = %v, want 3s", got)
	}
	waitFor(t, "closed", func() bool { return !mgr.Connected() })
	if got := mgr.Stats().LastError; got != "connection reset" {
		t.Errorf("LastError = %q, want %q", got, "connection reset")
	}
}

func TestManager_ConstructErrorUsesFixedDelay(t *testing.T) {
	timer := newFakeTimer()
	dialer := &scriptedDialer{results: []func() (Client, error){
		failWith(fmt.Errorf("%w: unsupported scheme", ErrConstruct)),
	}}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))

	for i := 0; i < 3; i++ {
		if got := timer.next(t); got != 3000*time.Millisecond {
			t.Errorf("delay %d = %v, want 3s", i, got)
		}
		if got := mgr.Attempt(); got != 0 {
			t.Errorf("Attempt() = %d, want 0 after construct error", got)
		}
		timer.fire()
	}

	waitFor(t, "construct errors counted", func() bool { return mgr.Stats().ConstructErrors >= 3 })
}

func TestManager_ForwardsFramesAndSends(t *testing.T) {
	timer := newFakeTimer()
	fc := newFakeClient()
	dialer := &scriptedDialer{results: []func() (Client, error){succeedWith(fc)}}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))
	waitFor(t, "open", mgr.Connected)

	fc.msgs <- Frame{Data: []byte(`{"type":"pong"}`), ReceivedAt: time.Now()}

	select {
	case f := <-mgr.Messages():
		if string(f.Data) != `{"type":"pong"}` {
			t.Errorf("frame = %q, want pong", f.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for forwarded frame")
	}

	if !mgr.Send(map[string]string{"type": "hello"}) {
		t.Error("Send() = false while open")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) != 1 || string(fc.sent[0]) != `{"type":"hello"}` {
		t.Errorf("sent = %q, want one hello frame", fc.sent)
	}
}

func TestManager_SendWhenDisconnected(t *testing.T) {
	mgr := NewManager(testManagerConfig(), nil)

	if mgr.Send(map[string]string{"type": "ping"}) {
		t.Error("Send() = true before Start")
	}
	if got := mgr.Stats().SendsDropped; got != 1 {
		t.Errorf("SendsDropped = %d, want 1", got)
	}

	timer := newFakeTimer()
	dialer := &scriptedDialer{}
	mgr = startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))
	timer.next(t)

	if mgr.Send([]byte(`{"type":"ping"}`)) {
		t.Error("Send() = true while reconnecting")
	}
}

func TestManager_StopCancelsPendingReconnect(t *testing.T) {
	timer := newFakeTimer()
	dialer := &scriptedDialer{}

	mgr := NewManager(testManagerConfig(), nil, WithDialer(dialer.dial), WithTimer(timer.start))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	timer.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mgr.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if timer.stops() != 1 {
		t.Errorf("timer stops = %d, want 1", timer.stops())
	}

	calls := dialer.calls.Load()
	timer.fire()
	time.Sleep(50 * time.Millisecond)
	if got := dialer.calls.Load(); got != calls {
		t.Errorf("dial calls after Stop = %d, want %d", got, calls)
	}

	if _, ok := <-mgr.Messages(); ok {
		t.Error("expected Messages to be closed after Stop")
	}
	if mgr.State() != StateClosed {
		t.Errorf("State() = %v, want closed", mgr.State())
	}
}

func TestManager_StopClosesOpenTransport(t *testing.T) {
	fc := newFakeClient()
	dialer := &scriptedDialer{results: []func() (Client, error){succeedWith(fc)}}

	mgr := NewManager(testManagerConfig(), nil, WithDialer(dialer.dial), WithTimer(newFakeTimer().start))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "open", mgr.Connected)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mgr.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !fc.isClosed() {
		t.Error("expected transport to be closed")
	}
	if mgr.Connected() {
		t.Error("expected Connected() = false after Stop")
	}
}

func TestManager_ManualReconnect(t *testing.T) {
	timer := newFakeTimer()
	fc := newFakeClient()
	dialer := &scriptedDialer{results: []func() (Client, error){
		failWith(errors.New("refused")),
		succeedWith(fc),
	}}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))
	timer.next(t)

	mgr.Reconnect()
	waitFor(t, "open after manual reconnect", mgr.Connected)

	if timer.stops() != 1 {
		t.Errorf("timer stops = %d, want 1", timer.stops())
	}

	// Reconnect while open is a no-op.
	mgr.Reconnect()
	timer.expectNone(t, 50*time.Millisecond)
	if got := dialer.calls.Load(); got != 2 {
		t.Errorf("dial calls = %d, want 2", got)
	}
}

func TestManager_StaleCloseIgnored(t *testing.T) {
	timer := newFakeTimer()
	first := newFakeClient()
	dialer := &scriptedDialer{results: []func() (Client, error){succeedWith(first)}}

	mgr := startManager(t, testManagerConfig(), WithDialer(dialer.dial), WithTimer(timer.start))
	waitFor(t, "open", mgr.Connected)

	// A close event tagged with an older generation must not disturb state.
	mgr.events <- event{kind: eventClosed, gen: 0, err: errors.New("stale")}
	timer.expectNone(t, 50*time.Millisecond)
	if !mgr.Connected() {
		t.Error("stale close event changed state")
	}
}

func TestManager_KeepAliveOverWebSocket(t *testing.T) {
	pings := make(chan string, 4)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case pings <- string(msg):
			default:
			}
		}
	})
	defer server.Close()

	cfg := testManagerConfig()
	cfg.Client.URL = wsURL(server)
	cfg.KeepAliveInterval = 20 * time.Millisecond

	mgr := startManager(t, cfg)
	waitFor(t, "open", mgr.Connected)

	select {
	case msg := <-pings:
		if msg != `{"type":"ping"}` {
			t.Errorf("keep-alive = %q, want {\"type\":\"ping\"}", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no keep-alive received")
	}
}

func TestManager_ReconnectsAfterServerClose(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			return // drop the first connection immediately
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		drainUntilClosed(conn)
	})
	defer server.Close()

	cfg := testManagerConfig()
	cfg.Client.URL = wsURL(server)
	cfg.ReconnectBaseWait = 10 * time.Millisecond
	cfg.ReconnectMaxWait = 50 * time.Millisecond

	mgr := startManager(t, cfg)

	select {
	case f := <-mgr.Messages():
		if string(f.Data) != `{"type":"pong"}` {
			t.Errorf("frame = %q, want pong", f.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame from second connection")
	}

	if got := conns.Load(); got < 2 {
		t.Errorf("server connections = %d, want >= 2", got)
	}
	if got := mgr.Stats().Opens; got < 2 {
		t.Errorf("Opens = %d, want >= 2", got)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:     "closed",
		StateConnecting: "connecting",
		StateOpen:       "open",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
