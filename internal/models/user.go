package models

import "time"

// User is the denormalized mirror row for an externally-authenticated user.
// PasswordHash and Role only exist for locally-provisioned admin accounts.
type User struct {
	UserID       string    `json:"user_id" db:"user_id"`
	UserEmail    string    `json:"user_email" db:"user_email"`
	PasswordHash *string   `json:"-" db:"password_hash"` // Never expose
	Role         string    `json:"-" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserProfile holds the onboarding answers collected by the front end
type UserProfile struct {
	UserID              string    `json:"user_id" db:"user_id"`
	Name                string    `json:"name" db:"name"`
	Country             string    `json:"country" db:"country"`
	BusinessName        string    `json:"business_name" db:"business_name"`
	BusinessDescription string    `json:"business_description" db:"business_description"`
	TeamSize            string    `json:"team_size" db:"team_size"`
	Onboarded           bool      `json:"onboarded" db:"onboarded"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// AdminUserRow is a user row enriched with profile data for the admin dashboard.
// Enrichment failures degrade the row to defaults rather than failing the list.
type AdminUserRow struct {
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsAdmin   bool      `json:"isAdmin"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Onboarded bool      `json:"onboarded"`
}
