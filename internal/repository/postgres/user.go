package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/budtender/budtender-backend/internal/models"
	"github.com/budtender/budtender-backend/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

// Get retrieves a user by ID; returns nil when the user does not exist
func (r *UserRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	query := `
		SELECT user_id, user_email, password_hash, role, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	err := r.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// GetByEmail retrieves a user by email; returns nil when no user matches
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT user_id, user_email, password_hash, role, created_at, updated_at
		FROM users
		WHERE user_email = $1
	`

	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// Create inserts a new user mirror row
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = "user"
	}

	query := `
		INSERT INTO users (user_id, user_email, password_hash, role, created_at, updated_at)
		VALUES (:user_id, :user_email, :password_hash, :role, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

// List retrieves users ordered by creation date, optionally filtered by email substring
func (r *UserRepository) List(ctx context.Context, emailFilter string) ([]models.User, error) {
	var users []models.User

	if emailFilter != "" {
		query := `
			SELECT user_id, user_email, password_hash, role, created_at, updated_at
			FROM users
			WHERE user_email ILIKE $1
			ORDER BY created_at DESC
		`
		if err := r.db.SelectContext(ctx, &users, query, "%"+emailFilter+"%"); err != nil {
			return nil, err
		}
		return users, nil
	}

	query := `
		SELECT user_id, user_email, password_hash, role, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies a partial update to a user row
func (r *UserRepository) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	setClause := ""
	params := map[string]interface{}{"user_id": userID}

	for key, value := range updates {
		if setClause != "" {
			setClause += ", "
		}
		setClause += key + " = :" + key
		params[key] = value
	}

	query := "UPDATE users SET " + setClause + " WHERE user_id = :user_id"

	_, err := r.db.NamedExecContext(ctx, query, params)
	return err
}

// Delete removes a user row (chat history cascades)
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// SetRole updates a user's role flag
func (r *UserRepository) SetRole(ctx context.Context, userID, role string) error {
	query := `UPDATE users SET role = $1, updated_at = $2 WHERE user_id = $3`

	result, err := r.db.ExecContext(ctx, query, role, time.Now(), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
