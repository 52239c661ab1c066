package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/repository"
)

// UserProfileRepository implements repository.UserProfileRepository using PostgreSQL
type UserProfileRepository struct {
	db *sqlx.DB
}

// NewUserProfileRepository creates a new PostgreSQL user profile repository
func NewUserProfileRepository(db *sqlx.DB) repository.UserProfileRepository {
	return &UserProfileRepository{db: db}
}

// Get retrieves a profile by user ID; returns nil when no profile exists yet
func (r *UserProfileRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	query := `
		SELECT user_id, name, country, business_name, business_description,
		       team_size, onboarded, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &profile, nil
}

// Upsert creates or replaces a user's profile, preserving created_at on update
func (r *UserProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `
		INSERT INTO user_profiles (user_id, name, country, business_name,
		                           business_description, team_size, onboarded,
		                           created_at, updated_at)
		VALUES (:user_id, :name, :country, :business_name,
		        :business_description, :team_size, :onboarded,
		        :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			business_name = EXCLUDED.business_name,
			business_description = EXCLUDED.business_description,
			team_size = EXCLUDED.team_size,
			onboarded = EXCLUDED.onboarded,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, profile)
	return err
}
