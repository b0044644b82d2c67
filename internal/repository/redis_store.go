package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shopchat/pkg/models"
)

// queueKey matches the storage slot name the web client uses, so a backlog
// written by either client drains the same way.
const queueKey = "messageQueue"

// RedisStore keeps the queue as a Redis list under the shared slot name.
// Intended for headless deployments (moderator relay bots) where several
// restarts share one backlog.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, msg models.QueuedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode queued message: %w", err)
	}
	if err := s.client.RPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("append queued message: %w", err)
	}
	return nil
}

func (s *RedisStore) ReadAll(ctx context.Context) ([]models.QueuedMessage, error) {
	entries, err := s.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read queued messages: %w", err)
	}

	msgs := make([]models.QueuedMessage, 0, len(entries))
	for _, entry := range entries {
		var msg models.QueuedMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("decode queued message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, queueKey).Err(); err != nil {
		return fmt.Errorf("clear message queue: %w", err)
	}
	return nil
}
