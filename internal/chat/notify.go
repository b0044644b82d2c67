package chat

import (
	"shopchat/pkg/logger"
)

// Notifier is the transient user-notification surface. The web client shows
// these as toasts; the TUI renders them as system lines in the message pane
// and headless consumers fall back to the log.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// LogNotifier routes notifications to the structured log. Default for
// consumers that have no UI surface.
type LogNotifier struct{}

func (LogNotifier) Info(msg string)    { logger.Info(msg) }
func (LogNotifier) Success(msg string) { logger.Info(msg) }
func (LogNotifier) Error(msg string)   { logger.Error(msg) }
