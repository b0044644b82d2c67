package views

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"shopchat/internal/chat"
	"shopchat/internal/repository"
	"shopchat/internal/tui/api"
	"shopchat/internal/tui/styles"
	"shopchat/pkg/models"
)

// displayMessage is one line in the message pane
type displayMessage struct {
	Kind      string // "chat", "history", "system", "error"
	Sender    string
	Content   string
	Timestamp time.Time
}

// inboundMessage is the loose shape of server frames we know how to render;
// unknown fields are ignored, the transport already guaranteed valid JSON.
type inboundMessage struct {
	Message  string `json:"message"`
	Content  string `json:"content"`
	SenderID int64  `json:"sender_id"`
	UserID   int64  `json:"user_id"`
	Type     string `json:"type"`
}

// ChatModel is the terminal chat room view. It is the consumer side of the
// connection manager: it supplies the callbacks, decides what to enqueue
// when a send fails, and renders notifications as system lines.
type ChatModel struct {
	apiClient *api.Client
	manager   *chat.Manager
	queue     *chat.Queue
	userID    int64

	// events carries manager callbacks and notifications onto the UI loop
	events chan tea.Msg

	// Chat state
	messages        []displayMessage
	rooms           []models.ChatRoom
	roomsLoaded     bool
	currentRoomID   int64
	currentRoomName string
	connected       bool
	connecting      bool

	// UI state
	messageInput textinput.Model
	roomCursor   int
	showRoomList bool
	scrollOffset int

	width  int
	height int
}

// Events emitted by manager callbacks and the notifier

type ChatOpenedMsg struct{}

type ChatClosedMsg struct {
	Code   int
	Reason string
}

type ChatFrameMsg struct {
	Data models.InboundFrame
}

type ChatErrorMsg struct {
	Err error
}

type NotificationMsg struct {
	Level string // "info", "success", "error"
	Text  string
}

type ChatRoomsLoadedMsg struct {
	Rooms []models.ChatRoom
}

type ChatHistoryMsg struct {
	RoomID   int64
	Messages []models.ChatMessageRecord
}

type connectDoneMsg struct {
	err error
}

// uiNotifier turns transient notifications into UI events.
type uiNotifier struct {
	events chan tea.Msg
}

func (n uiNotifier) push(level, text string) {
	select {
	case n.events <- NotificationMsg{Level: level, Text: text}:
	default:
		// UI backlog full; the notification also went to the log.
	}
}

func (n uiNotifier) Info(msg string)    { n.push("info", msg) }
func (n uiNotifier) Success(msg string) { n.push("success", msg) }
func (n uiNotifier) Error(msg string)   { n.push("error", msg) }

// NewChatModel creates the chat view together with the offline queue and
// connection manager it drives, all sharing the view's notification surface.
func NewChatModel(apiClient *api.Client, cfg chat.Config, store repository.MessageStore, userID int64) ChatModel {
	input := textinput.New()
	input.Placeholder = "Type your message... (Enter to send)"
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	events := make(chan tea.Msg, 256)
	notifier := uiNotifier{events: events}
	queue := chat.NewQueue(store, notifier)

	return ChatModel{
		apiClient:    apiClient,
		manager:      chat.NewManager(cfg, queue, notifier),
		queue:        queue,
		userID:       userID,
		events:       events,
		messageInput: input,
		messages:     make([]displayMessage, 0),
		rooms:        make([]models.ChatRoom, 0),
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadRooms(), m.waitForEvent())
}

// waitForEvent relays the next manager/notifier event onto the UI loop.
func (m ChatModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m ChatModel) Update(msg tea.Msg) (ChatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := m.width - 10; w < 60 && w > 0 {
			m.messageInput.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case ChatRoomsLoadedMsg:
		m.rooms = msg.Rooms
		m.roomsLoaded = true
		if len(m.rooms) > 0 {
			m.currentRoomID = m.rooms[0].ID
			m.currentRoomName = roomLabel(m.rooms[0])
			return m, tea.Batch(m.loadHistory(m.currentRoomID), m.connect())
		}
		m.appendSystem("No chat rooms available yet.")
		return m, nil

	case ChatHistoryMsg:
		if msg.RoomID != m.currentRoomID {
			return m, nil
		}
		history := make([]displayMessage, 0, len(msg.Messages))
		for _, rec := range msg.Messages {
			history = append(history, displayMessage{
				Kind:      "history",
				Sender:    senderName(rec.SenderID, m.userID),
				Content:   rec.Message,
				Timestamp: rec.CreatedAt,
			})
		}
		m.messages = append(history, m.messages...)
		return m, nil

	case connectDoneMsg:
		m.connecting = false
		return m, nil

	case ChatOpenedMsg:
		m.connecting = false
		m.connected = true
		m.appendSystem(fmt.Sprintf("Connected to #%s", m.currentRoomName))
		return m, m.waitForEvent()

	case ChatClosedMsg:
		m.connected = false
		m.appendSystem("Disconnected from server")
		return m, m.waitForEvent()

	case ChatFrameMsg:
		var in inboundMessage
		if err := json.Unmarshal(msg.Data, &in); err == nil {
			content := in.Message
			if content == "" {
				content = in.Content
			}
			sender := in.SenderID
			if sender == 0 {
				sender = in.UserID
			}
			if content != "" {
				m.messages = append(m.messages, displayMessage{
					Kind:      "chat",
					Sender:    senderName(sender, m.userID),
					Content:   content,
					Timestamp: time.Now(),
				})
				m.scrollOffset = 0
			}
		}
		return m, m.waitForEvent()

	case ChatErrorMsg:
		m.connecting = false
		m.appendError(msg.Err.Error())
		return m, m.waitForEvent()

	case NotificationMsg:
		kind := "system"
		if msg.Level == "error" {
			kind = "error"
		}
		m.messages = append(m.messages, displayMessage{
			Kind:      kind,
			Content:   msg.Text,
			Timestamp: time.Now(),
		})
		return m, m.waitForEvent()
	}

	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) handleKeyPress(msg tea.KeyMsg) (ChatModel, tea.Cmd) {
	if m.showRoomList {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			m.showRoomList = false
			return m, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("j", "down"))):
			if m.roomCursor < len(m.rooms)-1 {
				m.roomCursor++
			}
			return m, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("k", "up"))):
			if m.roomCursor > 0 {
				m.roomCursor--
			}
			return m, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if len(m.rooms) > 0 && m.roomCursor < len(m.rooms) {
				m.currentRoomID = m.rooms[m.roomCursor].ID
				m.currentRoomName = roomLabel(m.rooms[m.roomCursor])
				m.showRoomList = false
				m.messages = nil
				return m, tea.Batch(m.loadHistory(m.currentRoomID), m.connect())
			}
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		if m.messageInput.Value() != "" && m.currentRoomID != 0 {
			content := m.messageInput.Value()
			m.messageInput.SetValue("")
			m.messages = append(m.messages, displayMessage{
				Kind:      "chat",
				Sender:    "You",
				Content:   content,
				Timestamp: time.Now(),
			})
			m.scrollOffset = 0
			return m, m.sendMessage(content)
		}
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("tab"))):
		m.showRoomList = !m.showRoomList
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+r"))):
		if m.currentRoomID != 0 {
			return m, m.connect()
		}
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("pgup"))):
		if m.scrollOffset < len(m.messages)-1 {
			m.scrollOffset++
		}
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("pgdown"))):
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	return m, cmd
}

// connect opens the channel through the manager. Open/close/message events
// arrive via the event channel; the command result only reports dial errors.
func (m ChatModel) connect() tea.Cmd {
	manager := m.manager
	events := m.events
	roomID := strconv.FormatInt(m.currentRoomID, 10)
	userID := m.userID

	return func() tea.Msg {
		err := manager.Connect(roomID, userID, chat.Callbacks{
			OnMessage: func(data models.InboundFrame) {
				events <- ChatFrameMsg{Data: data}
			},
			OnOpen: func() {
				events <- ChatOpenedMsg{}
			},
			OnClose: func(code int, reason string) {
				events <- ChatClosedMsg{Code: code, Reason: reason}
			},
			OnError: func(err error) {
				events <- ChatErrorMsg{Err: err}
			},
		})
		return connectDoneMsg{err: err}
	}
}

// sendMessage delivers the message live, or stages it in the offline queue
// when the channel is down. Enqueueing here is deliberate: the manager's
// Send never queues on its own.
func (m ChatModel) sendMessage(content string) tea.Cmd {
	manager := m.manager
	queue := m.queue
	roomID := strconv.FormatInt(m.currentRoomID, 10)

	return func() tea.Msg {
		frame := models.NewCreateFrame(content, roomID, models.MessageTypeText)
		if manager.Send(frame) {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := queue.Enqueue(ctx, models.QueuedMessage{
			Content:    content,
			ChatRoomID: roomID,
		})
		if err != nil {
			return ChatErrorMsg{Err: err}
		}
		return nil
	}
}

func (m ChatModel) loadRooms() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rooms, err := client.ListRooms(ctx, 0, 50)
		if err != nil {
			return ChatErrorMsg{Err: fmt.Errorf("failed to load rooms: %w", err)}
		}
		return ChatRoomsLoadedMsg{Rooms: rooms}
	}
}

func (m ChatModel) loadHistory(roomID int64) tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msgs, err := client.RoomMessages(ctx, roomID)
		if err != nil {
			// History is best-effort; live chat still works without it.
			return nil
		}
		return ChatHistoryMsg{RoomID: roomID, Messages: msgs}
	}
}

// Close shuts the channel down for good.
func (m *ChatModel) Close() {
	m.manager.Close()
}

func (m *ChatModel) appendSystem(text string) {
	m.messages = append(m.messages, displayMessage{
		Kind:      "system",
		Content:   text,
		Timestamp: time.Now(),
	})
}

func (m *ChatModel) appendError(text string) {
	m.messages = append(m.messages, displayMessage{
		Kind:      "error",
		Content:   text,
		Timestamp: time.Now(),
	})
}

// View renders the chat view
func (m ChatModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.showRoomList {
		b.WriteString(m.renderRoomSelector())
		b.WriteString("\n")
		b.WriteString(styles.HelpStyle.Render("↑/↓ select • Enter join • Esc cancel"))
		return b.String()
	}

	b.WriteString(m.renderMessages())
	b.WriteString("\n")

	dividerWidth := m.width - 4
	if dividerWidth > 70 || dividerWidth <= 0 {
		dividerWidth = 70
	}
	b.WriteString(styles.RenderDivider(dividerWidth))
	b.WriteString("\n")

	b.WriteString(m.renderInput())
	b.WriteString("\n\n")
	b.WriteString(styles.StatusBarStyle.Render("Enter send • Tab rooms • Ctrl+R reconnect • PgUp/PgDn scroll"))

	return b.String()
}

func (m ChatModel) renderHeader() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Chat"))
	b.WriteString("  ")

	roomName := m.currentRoomName
	if roomName == "" {
		roomName = "No Room Selected"
	}
	b.WriteString(styles.BadgePrimaryStyle.Render("#" + styles.Truncate(roomName, 24)))
	b.WriteString("  ")

	switch {
	case m.connected:
		b.WriteString(styles.SuccessStyle.Render("● Connected"))
	case m.connecting:
		b.WriteString(styles.WarningStyle.Render("○ Connecting..."))
	default:
		b.WriteString(styles.ErrorStyle.Render("○ Disconnected"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m ChatModel) renderMessages() string {
	if len(m.messages) == 0 {
		return styles.HelpStyle.Render("\n  No messages yet. Be the first to say something!\n")
	}

	var b strings.Builder

	maxVisible := 12
	startIdx := len(m.messages) - maxVisible - m.scrollOffset
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := len(m.messages) - m.scrollOffset
	if endIdx > len(m.messages) {
		endIdx = len(m.messages)
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}

	if startIdx > 0 {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↑ %d more messages", startIdx)))
		b.WriteString("\n")
	}

	for i := startIdx; i < endIdx; i++ {
		b.WriteString(m.renderSingleMessage(m.messages[i]))
		b.WriteString("\n")
	}

	if m.scrollOffset > 0 {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↓ %d newer messages", m.scrollOffset)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ChatModel) renderSingleMessage(msg displayMessage) string {
	var b strings.Builder

	timeStr := msg.Timestamp.Format("15:04:05")

	switch msg.Kind {
	case "system", "error":
		style := styles.InfoStyle
		if msg.Kind == "error" {
			style = styles.ErrorStyle
		}
		b.WriteString("  ")
		b.WriteString(style.Render("━━━ " + msg.Content + " ━━━"))

	case "history":
		b.WriteString("  ")
		b.WriteString(styles.HelpStyle.Render("[" + timeStr + "] "))
		b.WriteString(styles.MetaKeyStyle.Render(msg.Sender))
		b.WriteString(styles.HelpStyle.Render(": " + msg.Content))

	default:
		b.WriteString("  ")
		b.WriteString(styles.HelpStyle.Render("[" + timeStr + "] "))
		b.WriteString(styles.HighlightStyle.Render(msg.Sender))
		b.WriteString(styles.CardContentStyle.Render(": " + msg.Content))
	}

	return b.String()
}

func (m ChatModel) renderRoomSelector() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styles.CardTitleStyle.Render("  Select Chat Room"))
	b.WriteString("\n\n")

	if len(m.rooms) == 0 {
		b.WriteString(styles.HelpStyle.Render("  No chat rooms available."))
		return b.String()
	}

	for i, room := range m.rooms {
		prefix := "    "
		style := styles.ListItemStyle
		if i == m.roomCursor {
			prefix = "  ▸ "
			style = styles.ListItemSelectedStyle
		}

		label := styles.Truncate(roomLabel(room), 40)
		if room.ID == m.currentRoomID {
			label += " (current)"
		}

		b.WriteString(style.Render(prefix + "#" + label))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ChatModel) renderInput() string {
	if !m.connected {
		return styles.HelpStyle.Render("  [Offline - messages will be queued. Ctrl+R to reconnect]")
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(styles.InputFocusedStyle.Render("> "))
	b.WriteString(m.messageInput.View())
	return b.String()
}

func roomLabel(room models.ChatRoom) string {
	if room.Name != "" {
		return room.Name
	}
	return fmt.Sprintf("room-%d", room.ID)
}

func senderName(senderID, selfID int64) string {
	if senderID == selfID {
		return "You"
	}
	if senderID == 0 {
		return "Unknown"
	}
	return fmt.Sprintf("user-%d", senderID)
}
