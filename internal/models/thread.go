package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ThreadRecord is the local metadata wrapper around a conversation thread held
// by the external conversation backend. The thread id is immutable once created.
type ThreadRecord struct {
	ThreadID           string     `json:"thread_id"`
	Name               string     `json:"name"`
	CreatedAt          time.Time  `json:"created_at"`
	LastMessageAt      time.Time  `json:"last_message_at"`
	IsMostRecent       bool       `json:"is_most_recent,omitempty"`
	Summary            *string    `json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`
}

// ThreadList is the ordered per-user thread array stored as a single jsonb
// document. Invariant: at most one record carries IsMostRecent.
type ThreadList []ThreadRecord

// Value implements driver.Valuer for jsonb storage
func (t ThreadList) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for jsonb retrieval
func (t *ThreadList) Scan(value interface{}) error {
	if value == nil {
		*t = ThreadList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan ThreadList: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, t)
}

// ChatHistoryRow is the one-row-per-user document holding the thread array
type ChatHistoryRow struct {
	UserID  string     `json:"user_id" db:"user_id"`
	Threads ThreadList `json:"threads" db:"threads"`
}

// AdminChatRow is one flattened thread row for the admin dashboard
type AdminChatRow struct {
	UserID        string    `json:"user_id"`
	UserEmail     string    `json:"user_email"`
	UserName      string    `json:"user_name"`
	PlanType      string    `json:"plan_type"`
	ThreadID      string    `json:"thread_id"`
	ThreadName    string    `json:"thread_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	IsMostRecent  bool      `json:"is_most_recent"`
	Summary       *string   `json:"summary"`
}
