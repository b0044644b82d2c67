package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"shopchat/pkg/models"
)

const createQueueTable = `
CREATE TABLE IF NOT EXISTS message_queue (
	position     INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id    TEXT NOT NULL,
	content      TEXT NOT NULL,
	chat_room_id TEXT NOT NULL,
	type         TEXT NOT NULL DEFAULT 'text',
	moderator_id INTEGER,
	queued_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore is the file-backed queue for the desktop client. The web
// client keeps the backlog in a single browser-storage slot; here it lives
// as table rows ordered by insertion, which preserves the same FIFO drain
// semantics across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the queue database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	// The queue has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createQueueTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, msg models.QueuedMessage) error {
	var moderatorID sql.NullInt64
	if msg.ModeratorID != 0 {
		moderatorID = sql.NullInt64{Int64: msg.ModeratorID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_queue (client_id, content, chat_room_id, type, moderator_id)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ClientID, msg.Content, msg.ChatRoomID, msg.MessageKind(), moderatorID,
	)
	if err != nil {
		return fmt.Errorf("append queued message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]models.QueuedMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, content, chat_room_id, type, moderator_id
		 FROM message_queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("read queued messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.QueuedMessage
	for rows.Next() {
		var msg models.QueuedMessage
		var moderatorID sql.NullInt64
		if err := rows.Scan(&msg.ClientID, &msg.Content, &msg.ChatRoomID, &msg.Type, &moderatorID); err != nil {
			return nil, fmt.Errorf("scan queued message: %w", err)
		}
		if moderatorID.Valid {
			msg.ModeratorID = moderatorID.Int64
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read queued messages: %w", err)
	}
	return msgs, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM message_queue`); err != nil {
		return fmt.Errorf("clear message queue: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
