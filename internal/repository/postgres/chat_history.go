package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/repository"
)

// ChatHistoryRepository implements repository.ChatHistoryRepository using PostgreSQL
type ChatHistoryRepository struct {
	db *sqlx.DB
}

// NewChatHistoryRepository creates a new PostgreSQL chat history repository
func NewChatHistoryRepository(db *sqlx.DB) repository.ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

// GetThreads retrieves the thread document for a user. A missing row is a
// normal empty state, not an error.
func (r *ChatHistoryRepository) GetThreads(ctx context.Context, userID string) (models.ThreadList, bool, error) {
	var threads models.ThreadList
	query := `SELECT threads FROM chat_history WHERE user_id = $1`

	err := r.db.GetContext(ctx, &threads, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	return threads, true, nil
}

// PutThreads overwrites the whole document for a user
func (r *ChatHistoryRepository) PutThreads(ctx context.Context, userID string, threads models.ThreadList) error {
	query := `
		INSERT INTO chat_history (user_id, threads)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET threads = EXCLUDED.threads
	`

	_, err := r.db.ExecContext(ctx, query, userID, threads)
	return err
}

// ListAll retrieves every user's thread document
func (r *ChatHistoryRepository) ListAll(ctx context.Context) ([]models.ChatHistoryRow, error) {
	var rows []models.ChatHistoryRow
	query := `SELECT user_id, threads FROM chat_history`

	err := r.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
