package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Message repository errors
var (
	ErrMessageNotFound = errors.New("message not found")
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	// CreateExchange stores the user's message and the generated reply in a
	// single transaction. Either both rows are written or neither is.
	CreateExchange(ctx context.Context, userMessage, reply *Message) error
	// ListByUser returns all messages owned by the given user in creation order.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Message, error)
}

// messageRepository implements MessageRepository using sqlx over PostgreSQL
type messageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

// CreateExchange inserts both halves of a chat exchange atomically
func (r *messageRepository) CreateExchange(ctx context.Context, userMessage, reply *Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exchange transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, userMessage); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if err := insertMessage(ctx, tx, reply); err != nil {
		return fmt.Errorf("insert reply message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exchange transaction: %w", err)
	}

	return nil
}

// insertMessage inserts one message row and backfills its generated columns
func insertMessage(ctx context.Context, tx *sqlx.Tx, msg *Message) error {
	query := `
		INSERT INTO messages (content, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	return tx.QueryRowxContext(ctx, query, msg.Content, msg.UserID).
		Scan(&msg.ID, &msg.CreatedAt)
}

// ListByUser returns the caller's messages in creation order. Ownership
// filtering happens here and only here; callers never pass a client-supplied
// identifier.
func (r *messageRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	query := `
		SELECT id, content, user_id, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	messages := []Message{}
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, err
	}

	return messages, nil
}
