package transport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type feedServer struct {
	*httptest.Server
	upgrades atomic.Int32
	conns    chan *websocket.Conn
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{conns: make(chan *websocket.Conn, 16)}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.upgrades.Add(1)
		fs.conns <- c
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http") + FeedPath
}

func (fs *feedServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		t.Cleanup(func() { _ = c.Close() })
		return c
	case <-time.After(waitFor):
		t.Fatal("no websocket connection accepted")
		return nil
	}
}

func testOptions(url string, logs *lockedBuffer) Options {
	logger := zerolog.New(logs)
	opts := DefaultOptions(url)
	opts.ReconnectDelay = 20 * time.Millisecond
	opts.Logger = &logger
	return opts
}

func TestTransport_DeliversDecodedEventsAndSkipsMalformed(t *testing.T) {
	fs := newFeedServer(t)
	logs := &lockedBuffer{}
	tr := New(testOptions(fs.wsURL(), logs))
	t.Cleanup(tr.Close)

	events := make(chan protocol.Event, 4)
	tr.OnMessage(func(ev protocol.Event) { events <- ev })
	tr.Connect()

	srv := fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte(`{"type":"connected","client_id":"abc"}`)))

	select {
	case ev := <-events:
		require.Equal(t, protocol.Connected{ClientID: "abc"}, ev)
	case <-time.After(waitFor):
		t.Fatal("no event delivered")
	}
	require.Equal(t, protocol.Connected{ClientID: "abc"}, tr.LastMessage())
	require.Contains(t, logs.String(), "ignoring malformed message")
	require.Contains(t, logs.String(), "not json")
	require.True(t, tr.IsConnected())
}

func TestTransport_ReconnectsAfterDrop(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	var opens, closes atomic.Int32
	tr.OnOpen(func() { opens.Add(1) })
	tr.OnClose(func(error) { closes.Add(1) })
	tr.Connect()

	first := fs.accept(t)
	require.Eventually(t, func() bool { return opens.Load() == 1 }, waitFor, tick)

	require.NoError(t, first.Close())

	fs.accept(t)
	require.Eventually(t, func() bool { return opens.Load() == 2 }, waitFor, tick)
	require.Equal(t, int32(1), closes.Load())
	require.Equal(t, int32(2), fs.upgrades.Load())
	require.Equal(t, 0, tr.Attempts())
}

func TestTransport_DisconnectSuppressesReconnect(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	var closes atomic.Int32
	tr.OnClose(func(error) { closes.Add(1) })
	tr.Connect()
	fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	tr.Disconnect()
	require.Eventually(t, func() bool { return closes.Load() == 1 }, waitFor, tick)
	require.Equal(t, StateDisconnected, tr.State())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), fs.upgrades.Load())
	require.Equal(t, int32(1), closes.Load())
	require.Equal(t, 0, tr.Attempts())
}

func TestTransport_StopsAfterMaxAttemptsUntilManualReconnect(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(dead.URL, "http") + FeedPath
	dead.Close()

	opts := testOptions(url, &lockedBuffer{})
	opts.ReconnectDelay = 10 * time.Millisecond
	opts.MaxReconnectAttempts = 2
	tr := New(opts)
	t.Cleanup(tr.Close)

	var closes atomic.Int32
	tr.OnClose(func(error) { closes.Add(1) })
	tr.Connect()

	// initial dial plus two scheduled retries
	require.Eventually(t, func() bool { return closes.Load() == 3 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(3), closes.Load())
	require.Equal(t, 2, tr.Attempts())

	tr.Reconnect()
	require.Eventually(t, func() bool { return closes.Load() == 6 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(6), closes.Load())
}

func TestTransport_ConnectSupersedesOpenSocket(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	var opens, closes atomic.Int32
	tr.OnOpen(func() { opens.Add(1) })
	tr.OnClose(func(error) { closes.Add(1) })

	tr.Connect()
	first := fs.accept(t)
	require.Eventually(t, func() bool { return opens.Load() == 1 }, waitFor, tick)

	tr.Connect()
	fs.accept(t)
	require.Eventually(t, func() bool { return opens.Load() == 2 }, waitFor, tick)

	// the superseded socket is closed from the client side
	_ = first.SetReadDeadline(time.Now().Add(waitFor))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), closes.Load())
	require.Equal(t, int32(2), fs.upgrades.Load())
	require.True(t, tr.IsConnected())
}

func TestTransport_ReconnectReplacesSocketWithoutCloseCallback(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	var closes atomic.Int32
	tr.OnClose(func(error) { closes.Add(1) })
	tr.Connect()
	fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	tr.Disconnect()
	require.Eventually(t, func() bool { return closes.Load() == 1 }, waitFor, tick)

	tr.Reconnect()
	fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)
	require.Equal(t, int32(1), closes.Load())
}

func TestTransport_LatestHandlerWins(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	var stale atomic.Int32
	tr.OnMessage(func(protocol.Event) { stale.Add(1) })
	tr.Connect()
	srv := fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	fresh := make(chan protocol.Event, 1)
	tr.OnMessage(func(ev protocol.Event) { fresh <- ev })

	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte(`{"type":"step_started","step":"audit"}`)))
	select {
	case ev := <-fresh:
		require.Equal(t, protocol.StepStarted{Step: "audit"}, ev)
	case <-time.After(waitFor):
		t.Fatal("latest handler not invoked")
	}
	require.Equal(t, int32(0), stale.Load())
}

func TestTransport_SendOnlyWhenConnected(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))
	t.Cleanup(tr.Close)

	require.False(t, tr.Send(protocol.NewPing()))

	tr.Connect()
	srv := fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	require.True(t, tr.Send(protocol.NewPing()))
	_ = srv.SetReadDeadline(time.Now().Add(waitFor))
	_, data, err := srv.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ping"}`, string(data))

	tr.Disconnect()
	require.Eventually(t, func() bool { return tr.State() == StateDisconnected }, waitFor, tick)
	require.False(t, tr.Send(protocol.NewPing()))
}

func TestTransport_PingInterval(t *testing.T) {
	fs := newFeedServer(t)
	opts := testOptions(fs.wsURL(), &lockedBuffer{})
	opts.PingInterval = 20 * time.Millisecond
	tr := New(opts)
	t.Cleanup(tr.Close)

	tr.Connect()
	srv := fs.accept(t)

	_ = srv.SetReadDeadline(time.Now().Add(waitFor))
	_, data, err := srv.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ping"}`, string(data))
}

func TestTransport_DisabledNeverDials(t *testing.T) {
	fs := newFeedServer(t)
	opts := testOptions(fs.wsURL(), &lockedBuffer{})
	opts.Enabled = false
	tr := New(opts)
	t.Cleanup(tr.Close)

	tr.Connect()
	tr.Reconnect()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), fs.upgrades.Load())
	require.Equal(t, StateDisconnected, tr.State())

	tr.SetEnabled(true)
	tr.Connect()
	fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)
}

func TestTransport_CloseTearsDownWithoutReconnect(t *testing.T) {
	fs := newFeedServer(t)
	tr := New(testOptions(fs.wsURL(), &lockedBuffer{}))

	var closes atomic.Int32
	tr.OnClose(func(error) { closes.Add(1) })
	tr.Connect()
	fs.accept(t)
	require.Eventually(t, tr.IsConnected, waitFor, tick)

	tr.Close()
	require.Equal(t, StateDisconnected, tr.State())
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), fs.upgrades.Load())
	require.Equal(t, int32(0), closes.Load())

	tr.Connect()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), fs.upgrades.Load())
}
