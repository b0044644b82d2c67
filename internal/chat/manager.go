package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shopchat/pkg/logger"
	"shopchat/pkg/models"
)

// State of the managed channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

// Config tunes a Manager. The backoff formula is fixed as
// min(base << attempts, max); only the knobs below vary.
type Config struct {
	// BaseURL is the HTTP(S) endpoint of the API server; the channel address
	// is derived from it by swapping the scheme (http -> ws, https -> wss).
	BaseURL string

	HandshakeTimeout     time.Duration // default 10s
	MaxReconnectAttempts int           // default 5
	ReconnectBaseDelay   time.Duration // default 1s
	ReconnectMaxDelay    time.Duration // default 30s
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
}

// Callbacks supplied by the consumer. All optional. OnMessage is retained
// across reconnects; the others only live for the connection that Connect
// opened them with.
type Callbacks struct {
	OnMessage func(data models.InboundFrame)
	OnOpen    func()
	OnClose   func(code int, reason string)
	OnError   func(err error)
}

// Manager owns the lifecycle of a single live channel to a chat room:
// connect, send, receive-dispatch, reconnect with backoff, teardown. At most
// one channel handle and one pending reconnect timer exist at a time; a new
// Connect supersedes the previous channel.
type Manager struct {
	cfg      Config
	dialer   *websocket.Dialer
	queue    *Queue
	notifier Notifier

	mu                sync.Mutex
	conn              *websocket.Conn
	state             State
	gen               uint64 // bumped on every Connect; stale read loops bail out
	reconnectAttempts int
	reconnectTimer    *time.Timer
	closedByCaller    bool

	// remembered across reconnects
	roomID    string
	userID    int64
	onMessage func(data models.InboundFrame)

	// serializes writes to the channel (flush vs Send)
	writeMu sync.Mutex
}

// NewManager builds a Manager around the given queue. The notifier may be
// nil, in which case notifications go to the log.
func NewManager(cfg Config, queue *Queue, notifier Notifier) *Manager {
	cfg.applyDefaults()
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Manager{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		queue:    queue,
		notifier: notifier,
	}
}

// channelURL derives the channel address from the configured base endpoint.
// The scheme swap and path template must match the server exactly.
func channelURL(base, roomID string, userID int64) string {
	base = strings.TrimRight(base, "/")
	return strings.Replace(base, "http", "ws", 1) +
		fmt.Sprintf("/api/chat/ws/%s/%d", roomID, userID)
}

// backoffDelay computes the reconnect delay for the given attempt count:
// min(base * 2^attempt, max).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	return d
}

// Connect opens the channel to the given room on behalf of the given user.
// Any previous channel or pending reconnect is torn down first. On success
// the offline backlog is flushed before OnOpen is invoked, so queued
// messages always precede anything the consumer sends from OnOpen onwards.
//
// A dial failure is reported (notification + OnError), schedules a
// reconnect, and is returned to the caller; consumers are not expected to
// retry manually.
func (m *Manager) Connect(roomID string, userID int64, cb Callbacks) error {
	m.mu.Lock()
	m.stopReconnectTimerLocked()

	if strings.TrimSpace(roomID) == "" {
		m.mu.Unlock()
		logger.Errorf("invalid chat room id: %q", roomID)
		m.notifier.Error("Invalid chat room ID. Please try again later.")
		return models.ErrInvalidRoom
	}

	// Remember parameters for reconnection.
	m.roomID = roomID
	m.userID = userID
	m.onMessage = cb.OnMessage
	m.closedByCaller = false

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	m.state = StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	url := channelURL(m.cfg.BaseURL, roomID, userID)
	logger.Channel(roomID, "connecting", userID)

	conn, resp, err := m.dialer.Dial(url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			err = fmt.Errorf("%w (status=%d body=%s)", err, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		logger.Errorf("chat channel dial failed: %v", err)
		m.notifier.Error("Connection error. Please check your internet connection.")
		if cb.OnError != nil {
			cb.OnError(models.NewConnectivityError("chat channel dial failed", err))
		}

		m.mu.Lock()
		exhausted := false
		if gen == m.gen && !m.closedByCaller {
			m.state = StateDisconnected
			exhausted = !m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		if exhausted {
			return fmt.Errorf("dial chat channel: %w: %v", models.ErrReconnectExhausted, err)
		}
		return fmt.Errorf("dial chat channel: %w", err)
	}

	m.mu.Lock()
	if gen != m.gen || m.closedByCaller {
		// A newer Connect or a Close superseded this dial while it was in
		// flight; the superseding call owns the lifecycle now.
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	m.conn = conn
	m.state = StateOpen
	m.reconnectAttempts = 0
	m.mu.Unlock()

	logger.Channel(roomID, "open", userID)
	m.notifier.Success("Connected to chat server")

	// Backlog first, then hand control to the consumer.
	m.flushQueue(conn)
	if cb.OnOpen != nil {
		cb.OnOpen()
	}

	go m.readLoop(conn, gen, cb)
	return nil
}

// readLoop dispatches inbound frames until the channel dies, then decides
// whether the closure warrants a reconnect.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64, cb Callbacks) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(gen, cb, err)
			return
		}

		// The frame must at least be valid JSON; anything else is dropped,
		// never surfaced.
		if !json.Valid(data) {
			logger.Warnf("dropping unparseable chat frame (%d bytes)", len(data))
			continue
		}
		if cb.OnMessage != nil {
			cb.OnMessage(models.InboundFrame(data))
		}
	}
}

func (m *Manager) handleReadError(gen uint64, cb Callbacks, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// Superseded by a newer Connect; that call owns the lifecycle.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected
	wasManual := m.closedByCaller
	m.mu.Unlock()

	code, reason := closeStatus(err, wasManual)

	// A transport failure that is not a clean close frame is the error
	// event; the close handling below is separate, as on the web client.
	if !wasManual && !isCloseFrame(err) {
		logger.Errorf("chat channel error: %v", err)
		m.notifier.Error("Connection error. Please check your internet connection.")
		if cb.OnError != nil {
			cb.OnError(models.NewConnectivityError("chat channel failed", err))
		}
	}

	logger.WithFields(map[string]interface{}{
		"protocol": "websocket",
		"code":     code,
		"reason":   reason,
	}).Info("chat channel closed")

	if cb.OnClose != nil {
		cb.OnClose(code, reason)
	}

	if code != websocket.CloseNormalClosure {
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
	}
}

// scheduleReconnectLocked arranges the next reconnect attempt and reports
// whether one was armed. Caller holds m.mu. At most one timer is ever
// pending: any previous one is cancelled before a new one is armed, and a
// timer that already fired re-checks the manager state under the lock before
// it may dial.
func (m *Manager) scheduleReconnectLocked() bool {
	if m.roomID == "" {
		return false
	}

	if m.reconnectAttempts >= m.cfg.MaxReconnectAttempts {
		logger.Errorf("giving up on chat reconnect after %d attempts: %v",
			m.reconnectAttempts, models.ErrReconnectExhausted)
		m.notifier.Error("Failed to reconnect. Please refresh the page.")
		return false
	}

	m.stopReconnectTimerLocked()

	delay := backoffDelay(m.reconnectAttempts, m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay)
	logger.Infof("reconnecting to chat in %s (attempt %d/%d)",
		delay, m.reconnectAttempts+1, m.cfg.MaxReconnectAttempts)

	roomID, userID := m.roomID, m.userID
	onMessage := m.onMessage
	gen := m.gen

	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		// Stop cannot catch a timer that already fired. If a Close or a
		// newer Connect ran while this callback waited for the lock, that
		// call owns the lifecycle and the retry must not dial.
		if m.closedByCaller || m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.reconnectTimer = nil
		m.reconnectAttempts++
		m.mu.Unlock()
		// Only the message handler survives a reconnect; open/close/error
		// callbacks belong to the Connect call that supplied them.
		m.Connect(roomID, userID, Callbacks{OnMessage: onMessage})
	})
	return true
}

func (m *Manager) stopReconnectTimerLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// Send writes one message to the open channel. Returns false without side
// effects when the channel is not open, and false on serialization or write
// failure. Send never touches the offline queue; enqueueing on failure is
// the caller's explicit choice.
func (m *Manager) Send(message interface{}) bool {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		return false
	}

	m.writeMu.Lock()
	err := conn.WriteJSON(message)
	m.writeMu.Unlock()
	if err != nil {
		logger.Errorf("chat send failed: %v", err)
		return false
	}
	return true
}

// flushQueue drains the offline backlog onto the just-opened channel in FIFO
// order. Per-entry failures are logged and skipped; the queue is cleared
// unconditionally afterwards, matching the web client's behavior.
func (m *Manager) flushQueue(conn *websocket.Conn) {
	if m.queue == nil {
		return
	}
	ctx := context.Background()

	msgs, err := m.queue.Drain(ctx)
	if err != nil {
		logger.Errorf("failed to read message backlog: %v", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	logger.Queue("flush", len(msgs))
	for _, msg := range msgs {
		frame := models.NewCreateFrame(msg.Content, msg.ChatRoomID, msg.Type)
		m.writeMu.Lock()
		err := conn.WriteJSON(frame)
		m.writeMu.Unlock()
		if err != nil {
			logger.Errorf("failed to deliver queued message %s: %v", msg.ClientID, err)
			continue
		}
	}

	if err := m.queue.Clear(ctx); err != nil {
		logger.Errorf("failed to clear message backlog: %v", err)
	}
}

// Close tears the channel down with a normal closure and cancels any pending
// reconnect. Remembered room and user parameters are kept, but resuming
// requires a full Connect call.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopReconnectTimerLocked()
	m.closedByCaller = true
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		m.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		conn.Close()
	}
}

// IsConnected reports whether a channel handle exists and is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.state == StateOpen
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// isCloseFrame reports whether err is a clean websocket close frame from the
// peer, as opposed to a transport-level failure.
func isCloseFrame(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}

// closeStatus maps a read error to a close code and reason. A caller-
// initiated Close surfaces as a normal closure even though the local read
// fails with a closed-connection error; anything that is not a close frame
// goes through the connectivity error mapping.
func closeStatus(err error, wasManual bool) (int, string) {
	if wasManual {
		return websocket.CloseNormalClosure, ""
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return models.NewConnectivityError(err.Error(), err).ToWebSocketError()
}
