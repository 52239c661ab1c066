package repository

import (
	"context"

	"github.com/budtender/budtender-backend/internal/models"
)

// ChatHistoryRepository stores the per-user thread array as a whole jsonb
// document. Mutations are read-modify-write with no optimistic concurrency;
// last writer wins, which is accepted for chat metadata (the conversation
// content itself lives in the external backend).
type ChatHistoryRepository interface {
	// GetThreads returns the thread array and whether a row exists for the user
	GetThreads(ctx context.Context, userID string) (models.ThreadList, bool, error)
	// PutThreads overwrites the whole document, creating the row if needed
	PutThreads(ctx context.Context, userID string, threads models.ThreadList) error
	// ListAll returns every user's document (admin dashboard)
	ListAll(ctx context.Context) ([]models.ChatHistoryRow, error)
}

// UserRepository manages the mirror rows for externally-authenticated users
type UserRepository interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, emailFilter string) ([]models.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
	SetRole(ctx context.Context, userID, role string) error
}

// UserProfileRepository manages onboarding profiles
type UserProfileRepository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}
