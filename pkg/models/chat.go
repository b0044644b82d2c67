package models

import (
	"encoding/json"
	"time"
)

// QueuedMessage is one entry in the offline message queue. Insertion order
// is delivery order; the queue layer never inspects Content beyond requiring
// it to be non-empty.
type QueuedMessage struct {
	ClientID    string `json:"client_id,omitempty"` // local bookkeeping only, never sent
	Content     string `json:"content"`
	ChatRoomID  string `json:"chat_room_id"`
	Type        string `json:"type,omitempty"` // defaults to "text"
	ModeratorID int64  `json:"moderator_id,omitempty"`
}

// MessageKind returns the message type tag, defaulting to "text".
func (m QueuedMessage) MessageKind() string {
	if m.Type == "" {
		return MessageTypeText
	}
	return m.Type
}

// OutboundFrame is the wire format for a message written to the chat
// channel - EXACTLY matches the server's create-message schema.
type OutboundFrame struct {
	Action     string `json:"action"`
	Message    string `json:"message"`
	ChatRoomID string `json:"chat_room_id"`
	Type       string `json:"type"`
}

// NewCreateFrame builds the outbound frame for a queued or live message.
func NewCreateFrame(content, chatRoomID, msgType string) OutboundFrame {
	if msgType == "" {
		msgType = MessageTypeText
	}
	return OutboundFrame{
		Action:     ActionCreate,
		Message:    content,
		ChatRoomID: chatRoomID,
		Type:       msgType,
	}
}

// InboundFrame is carried to the consumer verbatim; the transport layer only
// guarantees it is valid JSON.
type InboundFrame = json.RawMessage

// ChatRoom - room listing entry from the REST API
type ChatRoom struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageRecord is a persisted message from the room history endpoint.
type ChatMessageRecord struct {
	ID         int64     `json:"id"`
	ChatRoomID int64     `json:"chat_room_id"`
	SenderID   int64     `json:"sender_id"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoginRequest / TokenResponse for /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserProfile from /api/auth/me
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

const (
	ActionCreate = "create"

	MessageTypeText  = "text"
	MessageTypeImage = "image"
)
