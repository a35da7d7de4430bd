package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const (
	DefaultReconnectDelay       = 3 * time.Second
	DefaultMaxReconnectAttempts = 5

	closeWriteWait = time.Second
)

type Options struct {
	URL string
	// Enabled gates Connect and the reconnect schedule. The zero Options value
	// is disabled; DefaultOptions turns it on.
	Enabled              bool
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// PingInterval sends {"type":"ping"} while connected. Zero disables it.
	PingInterval time.Duration
	Dialer       *websocket.Dialer
	Logger       *zerolog.Logger
}

func DefaultOptions(url string) Options {
	return Options{
		URL:                  url,
		Enabled:              true,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
	}
}

type handlerSet struct {
	onOpen    func()
	onClose   func(error)
	onMessage func(protocol.Event)
}

// Transport keeps at most one live connection to a fixed pipeline feed
// endpoint. Every socket it opens gets a generation number; close and message
// callbacks from a socket whose generation is no longer current are dropped.
type Transport struct {
	opts   Options
	logger *zerolog.Logger

	hmu sync.RWMutex
	h   handlerSet

	mu          sync.Mutex
	gen         uint64
	conn        *websocket.Conn
	dialCancel  context.CancelFunc
	state       ConnState
	enabled     bool
	intentional bool
	closed      bool
	attempts    int
	timer       *time.Timer
	lastMessage protocol.Event

	writeMu sync.Mutex
}

func New(opts Options) *Transport {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}
	return &Transport{
		opts:    opts,
		logger:  logger,
		state:   StateDisconnected,
		enabled: opts.Enabled,
	}
}

// OnOpen, OnClose and OnMessage replace the registered handler. The handler
// in place when a callback fires is the one invoked.
func (t *Transport) OnOpen(fn func()) {
	t.hmu.Lock()
	defer t.hmu.Unlock()
	t.h.onOpen = fn
}

func (t *Transport) OnClose(fn func(error)) {
	t.hmu.Lock()
	defer t.hmu.Unlock()
	t.h.onClose = fn
}

func (t *Transport) OnMessage(fn func(protocol.Event)) {
	t.hmu.Lock()
	defer t.hmu.Unlock()
	t.h.onMessage = fn
}

func (t *Transport) handlers() handlerSet {
	t.hmu.RLock()
	defer t.hmu.RUnlock()
	return t.h
}

func (t *Transport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) IsConnected() bool {
	return t.State() == StateConnected
}

func (t *Transport) LastMessage() protocol.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastMessage
}

// Attempts reports how many automatic reconnects have been scheduled since the
// last successful open.
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// SetEnabled toggles the transport. Disabling cancels a pending reconnect but
// leaves an open socket alone; call Disconnect for that.
func (t *Transport) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.stopTimerLocked()
	}
}

// Connect opens a fresh connection, closing any open or opening socket first.
// It returns immediately; OnOpen or OnClose report the outcome.
func (t *Transport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.enabled {
		return
	}
	t.intentional = false
	t.stopTimerLocked()
	t.connectLocked()
}

// Disconnect closes the socket and suppresses automatic reconnection until
// the next Connect or Reconnect.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.stopTimerLocked()
	t.intentional = true
	conn := t.releaseLocked(false)
	t.mu.Unlock()

	closeConn(conn)
}

// Reconnect drops the current socket without reporting its close, resets the
// attempt counter and dials again immediately.
func (t *Transport) Reconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.enabled {
		return
	}
	t.stopTimerLocked()
	t.intentional = false
	t.attempts = 0
	t.connectLocked()
}

// Close tears the transport down. It never reconnects afterwards.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	t.stopTimerLocked()
	conn := t.releaseLocked(true)
	t.state = StateDisconnected
	t.mu.Unlock()

	closeConn(conn)
}

// Send marshals v and writes it as a text frame. It is a no-op unless the
// transport is connected, and reports whether the frame was written.
func (t *Transport) Send(v any) bool {
	t.mu.Lock()
	conn := t.conn
	connected := t.state == StateConnected
	t.mu.Unlock()
	if !connected || conn == nil {
		return false
	}

	b, err := json.Marshal(v)
	if err != nil {
		t.logger.Warn().Err(err).Msg("transport: dropping unserializable frame")
		return false
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.logger.Debug().Err(err).Msg("transport: send failed")
		return false
	}
	return true
}

func (t *Transport) connectLocked() {
	old := t.releaseLocked(true)
	if old != nil {
		go closeConn(old)
	}

	t.gen++
	gen := t.gen
	ctx, cancel := context.WithCancel(context.Background())
	t.dialCancel = cancel
	t.state = StateConnecting

	t.logger.Debug().Str("url", t.opts.URL).Uint64("gen", gen).Msg("transport: dialing")
	go t.dial(ctx, gen)
}

// releaseLocked detaches the current socket and cancels an in-flight dial.
// With supersede set, the generation is bumped so the old socket's callbacks
// are dropped.
func (t *Transport) releaseLocked(supersede bool) *websocket.Conn {
	if t.dialCancel != nil {
		t.dialCancel()
		t.dialCancel = nil
	}
	if supersede {
		t.gen++
	}
	conn := t.conn
	t.conn = nil
	if supersede {
		t.state = StateDisconnected
	}
	return conn
}

func (t *Transport) dial(ctx context.Context, gen uint64) {
	conn, _, err := t.opts.Dialer.DialContext(ctx, t.opts.URL, nil)
	if err != nil {
		t.logger.Debug().Err(err).Str("url", t.opts.URL).Msg("transport: dial failed")
		t.handleClose(gen, err)
		return
	}

	t.mu.Lock()
	if gen != t.gen || t.closed {
		t.mu.Unlock()
		closeConn(conn)
		return
	}
	if t.intentional {
		// Disconnect raced the handshake.
		t.mu.Unlock()
		closeConn(conn)
		t.handleClose(gen, nil)
		return
	}
	t.conn = conn
	t.dialCancel = nil
	t.state = StateConnected
	t.attempts = 0
	t.mu.Unlock()

	t.logger.Info().Str("url", t.opts.URL).Msg("transport: connected")
	if fn := t.handlers().onOpen; fn != nil {
		fn()
	}

	if t.opts.PingInterval > 0 {
		go t.pingLoop(gen)
	}
	t.readLoop(conn, gen)
}

func (t *Transport) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.handleClose(gen, err)
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			t.logger.Warn().Err(err).Str("payload", string(data)).Msg("transport: ignoring malformed message")
			continue
		}

		t.mu.Lock()
		current := gen == t.gen
		if current {
			t.lastMessage = ev
		}
		t.mu.Unlock()
		if !current {
			return
		}

		if fn := t.handlers().onMessage; fn != nil {
			fn(ev)
		}
	}
}

func (t *Transport) handleClose(gen uint64, cause error) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	conn := t.conn
	t.conn = nil
	t.dialCancel = nil
	t.state = StateDisconnected

	shouldRetry := !t.intentional && !t.closed && t.enabled && t.attempts < t.opts.MaxReconnectAttempts
	if shouldRetry {
		t.attempts++
		attempt := t.attempts
		delay := t.opts.ReconnectDelay
		t.stopTimerLocked()
		t.timer = time.AfterFunc(delay, func() { t.fireReconnect(gen) })
		t.logger.Info().
			Int("attempt", attempt).
			Int("max", t.opts.MaxReconnectAttempts).
			Dur("delay", delay).
			Msg("transport: reconnect scheduled")
	}
	t.mu.Unlock()

	if conn != nil {
		closeConn(conn)
	}
	if fn := t.handlers().onClose; fn != nil {
		fn(cause)
	}
}

// fireReconnect runs on the timer goroutine. A timer that lost the race with
// Disconnect, Reconnect or Close finds a newer generation and does nothing.
func (t *Transport) fireReconnect(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || t.closed || t.intentional || !t.enabled {
		return
	}
	t.timer = nil
	t.connectLocked()
}

func (t *Transport) pingLoop(gen uint64) {
	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		current := gen == t.gen && t.state == StateConnected
		t.mu.Unlock()
		if !current {
			return
		}
		t.Send(protocol.NewPing())
	}
}

func (t *Transport) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func closeConn(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	_ = conn.Close()
}
