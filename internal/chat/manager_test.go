package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/internal/repository"
	"shopchat/pkg/models"
)

// chatServer is a minimal chat backend for exercising the manager: it counts
// dial attempts, tracks open channels, and exposes inbound frames and the
// raw server-side connections to the test.
type chatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	dials int32
	open  int32

	mu       sync.Mutex
	lastPath string

	frames chan []byte
	conns  chan *websocket.Conn
}

func newChatServer(t *testing.T, reject bool) *chatServer {
	t.Helper()
	s := &chatServer{
		frames: make(chan []byte, 16),
		conns:  make(chan *websocket.Conn, 16),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.dials, 1)
		s.mu.Lock()
		s.lastPath = r.URL.Path
		s.mu.Unlock()

		if reject {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&s.open, 1)
		s.conns <- conn
		go func() {
			defer atomic.AddInt32(&s.open, -1)
			defer conn.Close()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				select {
				case s.frames <- data:
				default:
				}
			}
		}()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *chatServer) dialCount() int32 { return atomic.LoadInt32(&s.dials) }
func (s *chatServer) openCount() int32 { return atomic.LoadInt32(&s.open) }

func (s *chatServer) path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath
}

func testConfig(s *chatServer) Config {
	return Config{
		BaseURL:            s.srv.URL,
		HandshakeTimeout:   2 * time.Second,
		ReconnectBaseDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:  50 * time.Millisecond,
	}
}

func newTestManager(s *chatServer, notifier *recordingNotifier) (*Manager, *Queue) {
	q := NewQueue(repository.NewMemoryStore(), notifier)
	return NewManager(testConfig(s), q, notifier), q
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, backoffDelay(attempt, base, max), "attempt %d", attempt)
	}

	// The ceiling holds no matter how far attempts run.
	assert.Equal(t, max, backoffDelay(5, base, max))
	assert.Equal(t, max, backoffDelay(12, base, max))
	assert.Equal(t, max, backoffDelay(63, base, max))
}

func TestChannelURL(t *testing.T) {
	assert.Equal(t,
		"ws://127.0.0.1:8000/api/chat/ws/7/42",
		channelURL("http://127.0.0.1:8000", "7", 42))
	assert.Equal(t,
		"wss://shop.example.com/api/chat/ws/7/42",
		channelURL("https://shop.example.com/", "7", 42))
}

func TestConnectInvalidRoom(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, _ := newTestManager(s, notifier)

	err := m.Connect("", 42, Callbacks{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidRoom)

	// No network action, no channel, but the user was told.
	assert.EqualValues(t, 0, s.dialCount())
	assert.False(t, m.IsConnected())
	assert.Equal(t, 1, notifier.errorCount("Invalid chat room ID. Please try again later."))
}

func TestSendWhileClosed(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	q := NewQueue(repository.NewMemoryStore(), notifier)
	m := NewManager(testConfig(s), q, notifier)

	ok := m.Send(models.NewCreateFrame("hello", "7", ""))
	assert.False(t, ok)

	// Send never enqueues on its own; that is the caller's decision.
	msgs, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConnectFlushesQueueInOrder(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, q := newTestManager(s, notifier)
	ctx := context.Background()

	for _, content := range []string{"A", "B", "C"} {
		require.NoError(t, q.Enqueue(ctx, models.QueuedMessage{Content: content, ChatRoomID: "7"}))
	}

	openFired := make(chan struct{})
	err := m.Connect("7", 42, Callbacks{OnOpen: func() { close(openFired) }})
	require.NoError(t, err)
	defer m.Close()

	select {
	case <-openFired:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen never fired")
	}

	assert.Equal(t, "/api/chat/ws/7/42", s.path())

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case data := <-s.frames:
			var frame models.OutboundFrame
			require.NoError(t, json.Unmarshal(data, &frame))
			assert.Equal(t, models.ActionCreate, frame.Action)
			assert.Equal(t, "7", frame.ChatRoomID)
			assert.Equal(t, models.MessageTypeText, frame.Type)
			got = append(got, frame.Message)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for flushed frame %d", i)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)

	// Flush cleared the backlog.
	msgs, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSingleLiveChannel(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, _ := newTestManager(s, notifier)

	require.NoError(t, m.Connect("1", 5, Callbacks{}))
	require.Eventually(t, func() bool { return s.openCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Connect("2", 5, Callbacks{}))
	require.Eventually(t, func() bool { return s.openCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.True(t, m.IsConnected())
	m.Close()
	require.Eventually(t, func() bool { return s.openCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSendLive(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, _ := newTestManager(s, notifier)

	require.NoError(t, m.Connect("9", 3, Callbacks{}))
	defer m.Close()

	require.True(t, m.Send(models.NewCreateFrame("hello there", "9", "")))

	select {
	case data := <-s.frames:
		var frame models.OutboundFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "hello there", frame.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestInboundFramesForwardedAndInvalidDropped(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, _ := newTestManager(s, notifier)

	received := make(chan models.InboundFrame, 4)
	require.NoError(t, m.Connect("1", 5, Callbacks{
		OnMessage: func(data models.InboundFrame) { received <- data },
	}))
	defer m.Close()

	var conn *websocket.Conn
	select {
	case conn = <-s.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"hi"}`)))

	select {
	case frame := <-received:
		assert.JSONEq(t, `{"message":"hi"}`, string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame was never forwarded")
	}

	// The unparseable frame was dropped, not surfaced.
	select {
	case frame := <-received:
		t.Fatalf("unexpected frame forwarded: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectAfterAbnormalClose(t *testing.T) {
	s := newChatServer(t, false)
	notifier := &recordingNotifier{}
	m, _ := newTestManager(s, notifier)

	closed := make(chan int, 4)
	require.NoError(t, m.Connect("1", 5, Callbacks{
		OnClose: func(code int, reason string) { closed <- code },
	}))
	defer m.Close()

	var conn *websocket.Conn
	select {
	case conn = <-s.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}

	// Kill the connection server-side without a close handshake.
	conn.Close()

	select {
	case code := <-closed:
		assert.NotEqual(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose never fired")
	}

	require.Eventually(t, func() bool {
		return s.dialCount() >= 2 && m.IsConnected()
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRetryCeiling(t *testing.T) {
	s := newChatServer(t, true)
	notifier := &recordingNotifier{}
	cfg := testConfig(s)
	cfg.ReconnectBaseDelay = 2 * time.Millisecond
	cfg.ReconnectMaxDelay = 10 * time.Millisecond
	m := NewManager(cfg, NewQueue(repository.NewMemoryStore(), notifier), notifier)

	err := m.Connect("1", 5, Callbacks{})
	require.Error(t, err)

	// Initial dial plus exactly five retries, then nothing.
	require.Eventually(t, func() bool { return s.dialCount() == 6 }, 3*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 6, s.dialCount())

	assert.Equal(t, 1, notifier.errorCount("Failed to reconnect. Please refresh the page."))
	assert.False(t, m.IsConnected())
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	s := newChatServer(t, true)
	notifier := &recordingNotifier{}
	cfg := testConfig(s)
	cfg.ReconnectBaseDelay = 200 * time.Millisecond
	m := NewManager(cfg, NewQueue(repository.NewMemoryStore(), notifier), notifier)

	err := m.Connect("1", 5, Callbacks{})
	require.Error(t, err)
	assert.EqualValues(t, 1, s.dialCount())

	// Close before the scheduled retry fires.
	m.Close()
	time.Sleep(500 * time.Millisecond)
	assert.EqualValues(t, 1, s.dialCount())
}

func TestCloseCancelsFiredReconnectTimer(t *testing.T) {
	s := newChatServer(t, true)
	notifier := &recordingNotifier{}
	cfg := testConfig(s)
	cfg.ReconnectBaseDelay = 50 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	m := NewManager(cfg, NewQueue(repository.NewMemoryStore(), notifier), notifier)

	require.Error(t, m.Connect("1", 5, Callbacks{}))
	require.EqualValues(t, 1, s.dialCount())

	// Hold the manager lock so the retry timer fires but cannot run, with
	// Close already waiting in line ahead of its callback.
	m.mu.Lock()
	closeDone := make(chan struct{})
	go func() {
		m.Close()
		close(closeDone)
	}()
	time.Sleep(20 * time.Millisecond)  // Close parks on the lock
	time.Sleep(100 * time.Millisecond) // timer fires and parks behind it
	m.mu.Unlock()

	select {
	case <-closeDone:
	case <-time.After(time.Second):
		t.Fatal("Close never returned")
	}

	// The fired callback must bail out; no dial may happen after Close.
	time.Sleep(300 * time.Millisecond)
	assert.EqualValues(t, 1, s.dialCount())
	assert.False(t, m.IsConnected())
}

func TestConnectReportsExhaustion(t *testing.T) {
	s := newChatServer(t, true)
	notifier := &recordingNotifier{}
	m := NewManager(testConfig(s), NewQueue(repository.NewMemoryStore(), notifier), notifier)

	m.mu.Lock()
	m.reconnectAttempts = m.cfg.MaxReconnectAttempts
	m.mu.Unlock()

	err := m.Connect("1", 5, Callbacks{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrReconnectExhausted)
	assert.Equal(t, 1, notifier.errorCount("Failed to reconnect. Please refresh the page."))
}

func TestCloseStatus(t *testing.T) {
	code, reason := closeStatus(&websocket.CloseError{Code: websocket.CloseGoingAway, Text: "going away"}, false)
	assert.Equal(t, websocket.CloseGoingAway, code)
	assert.Equal(t, "going away", reason)

	code, reason = closeStatus(errors.New("read tcp: broken pipe"), false)
	assert.Equal(t, websocket.CloseAbnormalClosure, code)
	assert.Equal(t, "read tcp: broken pipe", reason)

	code, reason = closeStatus(errors.New("use of closed network connection"), true)
	assert.Equal(t, websocket.CloseNormalClosure, code)
	assert.Empty(t, reason)
}
