package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// User is a registered account. The password hash never serializes.
type User struct {
	ID           int64   `db:"id" json:"id"`
	Email        string  `db:"email" json:"email"`
	PasswordHash string  `db:"password_hash" json:"-"`
	FirstName    *string `db:"first_name" json:"first_name"`
	LastName     *string `db:"last_name" json:"last_name"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at"`
}

// Task is a single todo item owned by exactly one user. ParentTaskID is a
// weak reference: it must point at an existing task on write but no cycle
// detection is performed.
type Task struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"user_id"`
	Title             string     `db:"title" json:"title"`
	Description       *string    `db:"description" json:"description"`
	Completed         bool       `db:"completed" json:"completed"`
	Priority          string     `db:"priority" json:"priority"`
	Tags              StringList `db:"tags" json:"tags"`
	DueDate           *string    `db:"due_date" json:"due_date"`
	IsRecurring       bool       `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern *string    `db:"recurrence_pattern" json:"recurrence_pattern"`
	ParentTaskID      *int64     `db:"parent_task_id" json:"parent_task_id"`
	EstimatedDuration *int64     `db:"estimated_duration" json:"estimated_duration"`
	ActualDuration    *int64     `db:"actual_duration" json:"actual_duration"`
	ReminderEnabled   bool       `db:"reminder_enabled" json:"reminder_enabled"`
	ReminderTime      *string    `db:"reminder_time" json:"reminder_time"`
	SharedWith        Int64List  `db:"shared_with" json:"shared_with"`
	CreatedAt         string     `db:"created_at" json:"created_at"`
	UpdatedAt         string     `db:"updated_at" json:"updated_at"`
}

// Conversation is a durable chat thread for one user.
type Conversation struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	Title     string `db:"title" json:"title"`
	IsActive  bool   `db:"is_active" json:"is_active"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// Message is one append-only turn inside a conversation.
type Message struct {
	ID             string `db:"id" json:"id"`
	ConversationID string `db:"conversation_id" json:"conversation_id"`
	UserID         string `db:"user_id" json:"user_id"`
	Role           string `db:"role" json:"role"`
	Content        string `db:"content" json:"content"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	UpdatedAt      string `db:"updated_at" json:"updated_at"`
}

// StringList stores a []string as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func (l *StringList) Scan(src any) error {
	return scanJSONList(src, (*[]string)(l))
}

// Int64List stores a []int64 as a JSON text column.
type Int64List []int64

func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, fmt.Errorf("marshal int list: %w", err)
	}
	return string(data), nil
}

func (l *Int64List) Scan(src any) error {
	return scanJSONList(src, (*[]int64)(l))
}

func scanJSONList[T any](src any, dst *[]T) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*dst = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported list column type %T", src)
	}
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}
