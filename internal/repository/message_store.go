// Package repository provides the persistence backends for the offline
// message queue. Every store is an ordered, process-independent sequence:
// Append adds to the tail, ReadAll returns the whole backlog in FIFO order
// without mutating it, Clear empties it.
package repository

import (
	"context"

	"shopchat/pkg/models"
)

// MessageStore backs the offline message queue. Implementations assume a
// single writer per application instance; storage failures are returned
// as-is and never retried here.
type MessageStore interface {
	Append(ctx context.Context, msg models.QueuedMessage) error
	ReadAll(ctx context.Context) ([]models.QueuedMessage, error)
	Clear(ctx context.Context) error
}
