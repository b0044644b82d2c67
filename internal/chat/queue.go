package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"shopchat/internal/repository"
	"shopchat/pkg/logger"
	"shopchat/pkg/models"
)

// Queue is the offline staging area for messages that could not be delivered
// live. It is FIFO: insertion order is delivery order. Entries survive until
// the channel reaches the open state and the whole backlog is flushed, or
// until Clear.
type Queue struct {
	store    repository.MessageStore
	notifier Notifier
}

func NewQueue(store repository.MessageStore, notifier Notifier) *Queue {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Queue{store: store, notifier: notifier}
}

// Enqueue appends the message to the persisted backlog and tells the user it
// will go out once the connection is back. Content must be non-empty.
func (q *Queue) Enqueue(ctx context.Context, msg models.QueuedMessage) error {
	if msg.Content == "" {
		return fmt.Errorf("queued message content must not be empty")
	}
	if msg.ClientID == "" {
		msg.ClientID = uuid.NewString()
	}
	if msg.Type == "" {
		msg.Type = models.MessageTypeText
	}

	if err := q.store.Append(ctx, msg); err != nil {
		return models.NewPersistenceError("append", err)
	}

	logger.WithFields(map[string]interface{}{
		"client_id": msg.ClientID,
		"room":      msg.ChatRoomID,
		"type":      msg.Type,
	}).Info("message queued for later delivery")
	q.notifier.Info("Message will be sent when connection is restored")
	return nil
}

// Drain returns the backlog in FIFO order without mutating it.
func (q *Queue) Drain(ctx context.Context) ([]models.QueuedMessage, error) {
	msgs, err := q.store.ReadAll(ctx)
	if err != nil {
		return nil, models.NewPersistenceError("read", err)
	}
	return msgs, nil
}

// Clear empties the backlog. Idempotent.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.Clear(ctx); err != nil {
		return models.NewPersistenceError("clear", err)
	}
	return nil
}
