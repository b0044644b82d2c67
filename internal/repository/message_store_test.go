package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/pkg/models"
)

func sampleMessages() []models.QueuedMessage {
	return []models.QueuedMessage{
		{ClientID: "c1", Content: "first", ChatRoomID: "7", Type: models.MessageTypeText},
		{ClientID: "c2", Content: "second", ChatRoomID: "7", Type: models.MessageTypeText},
		{ClientID: "c3", Content: "a photo", ChatRoomID: "7", Type: models.MessageTypeImage, ModeratorID: 99},
	}
}

// exerciseStore runs the contract every backend must satisfy: FIFO reads,
// non-destructive ReadAll, and an idempotent Clear.
func exerciseStore(t *testing.T, store MessageStore) {
	t.Helper()
	ctx := context.Background()

	for _, msg := range sampleMessages() {
		require.NoError(t, store.Append(ctx, msg))
	}

	msgs, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "a photo", msgs[2].Content)
	assert.Equal(t, models.MessageTypeImage, msgs[2].Type)
	assert.EqualValues(t, 99, msgs[2].ModeratorID)
	assert.Zero(t, msgs[0].ModeratorID)

	// Reading must not consume.
	again, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	msgs, err = store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	for _, msg := range sampleMessages() {
		require.NoError(t, store.Append(ctx, msg))
	}
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "c3", msgs[2].ClientID)
}

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	store := NewRedisStore(client)
	require.NoError(t, store.Clear(context.Background()))

	exerciseStore(t, store)
}
