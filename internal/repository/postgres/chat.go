package postgres

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles database operations for chats and messages
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create creates a chat together with its members
func (r *ChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO chats (id, name, admin_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, chat.ID, chat.Name, chat.AdminID, chat.CreatedAt, chat.UpdatedAt)
		if err != nil {
			return err
		}
		for i, memberID := range chat.MemberIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO chat_members (chat_id, user_id, position)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, chat.ID, memberID, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// GetByID retrieves a chat with its member IDs
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	query := `
		SELECT c.id, c.name, c.admin_id, c.created_at, c.updated_at,
			COALESCE(ARRAY(SELECT m.user_id FROM chat_members m WHERE m.chat_id = c.id ORDER BY m.position, m.user_id), '{}')
		FROM chats c
		WHERE c.id = $1
	`
	var chat models.Chat
	err := r.db.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.Name, &chat.AdminID, &chat.CreatedAt, &chat.UpdatedAt, &chat.MemberIDs,
	)
	if err != nil {
		return nil, notFound(err, "chat", id)
	}
	return &chat, nil
}

// ListByUser retrieves chats the user is a member of, most recently active first
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	query := `
		SELECT c.id, c.name, c.admin_id, c.created_at, c.updated_at,
			COALESCE(ARRAY(SELECT m.user_id FROM chat_members m WHERE m.chat_id = c.id ORDER BY m.position, m.user_id), '{}')
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.updated_at DESC, c.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		var chat models.Chat
		err := rows.Scan(&chat.ID, &chat.Name, &chat.AdminID, &chat.CreatedAt, &chat.UpdatedAt, &chat.MemberIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return chats, nil
}

// AddMessage stores a message and bumps the chat's updated_at
func (r *ChatRepository) AddMessage(ctx context.Context, message *models.Message) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `UPDATE chats SET updated_at = $1 WHERE id = $2`, message.CreatedAt, message.ChatID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("chat %s: %w", message.ChatID, repository.ErrNotFound)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, chat_id, description, author_id, content, timeslots, photo, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, message.ID, message.ChatID, message.Description, message.AuthorID, message.Content,
			nonNil(message.Timeslots), message.Photo, message.CreatedAt, message.UpdatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages retrieves a chat's messages, oldest first
func (r *ChatRepository) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	query := `
		SELECT id, chat_id, description, author_id, content, timeslots, photo, created_at, updated_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		err := rows.Scan(
			&message.ID, &message.ChatID, &message.Description, &message.AuthorID,
			&message.Content, &message.Timeslots, &message.Photo, &message.CreatedAt, &message.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
