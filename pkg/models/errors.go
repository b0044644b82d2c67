package models

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// Error codes used in user-facing notifications and logs
const (
	ErrCodeInvalidRoom        = "INVALID_ROOM"
	ErrCodeConnectivity       = "CONNECTIVITY"
	ErrCodeReconnectExhausted = "RECONNECT_EXHAUSTED"
	ErrCodePersistence        = "PERSISTENCE"
	ErrCodeBadCredential      = "BAD_CREDENTIAL"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// Sentinel errors for the chat delivery layer
var (
	// Connection Manager
	ErrInvalidRoom        = errors.New("invalid chat room id")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// Identity Resolver
	ErrMalformedCredential = errors.New("malformed credential token")
	ErrMissingIdentity     = errors.New("user id not found in token")
	ErrInvalidIdentity     = errors.New("user id in token is not numeric")
)

// AppError carries a code alongside the message so callers can route it to
// the right surface (notification, log line, websocket close frame).
type AppError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	WebSocketCode int    `json:"websocket_code,omitempty"`
	Err           error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ToWebSocketError returns the close code and text to use when the error
// must terminate a channel.
func (e *AppError) ToWebSocketError() (int, string) {
	if e.WebSocketCode != 0 {
		return e.WebSocketCode, e.Message
	}
	switch e.Code {
	case ErrCodeInvalidRoom:
		return websocket.ClosePolicyViolation, e.Message
	case ErrCodeConnectivity, ErrCodeReconnectExhausted:
		return websocket.CloseAbnormalClosure, e.Message
	default:
		return websocket.CloseInternalServerErr, e.Message
	}
}

// NewConnectivityError wraps a transport-level failure.
func NewConnectivityError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeConnectivity,
		Message: message,
		Err:     err,
	}
}

// NewPersistenceError wraps a queue storage failure. The queue never retries
// these internally; they surface to the caller as-is.
func NewPersistenceError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodePersistence,
		Message: fmt.Sprintf("message store %s failed", op),
		Err:     err,
	}
}
