// Package store 基于 SQLite (WAL 模式) 的持久层：用户、任务、会话与消息
// Package store is the persistence layer over SQLite in WAL mode: users,
// tasks, conversations and messages.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record does not exist. Task lookups also
	// return it when the task belongs to another user, so existence never
	// leaks across accounts.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when registering a duplicate email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalid wraps rejected input (empty title, unknown role, ...).
	ErrInvalid = errors.New("invalid input")
)

// Store owns the database handle. One Store is shared by all components;
// each call runs its own short statement so a slow upstream call never
// holds a transaction open.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open creates the database file if needed and ensures the schema.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL 模式与性能 PRAGMA / WAL mode and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name    TEXT,
		last_name     TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id            INTEGER NOT NULL REFERENCES users(id),
		title              TEXT NOT NULL,
		description        TEXT,
		completed          INTEGER NOT NULL DEFAULT 0,
		priority           TEXT NOT NULL DEFAULT 'medium',
		tags               TEXT NOT NULL DEFAULT '[]',
		due_date           TEXT,
		is_recurring       INTEGER NOT NULL DEFAULT 0,
		recurrence_pattern TEXT,
		parent_task_id     INTEGER REFERENCES tasks(id) ON DELETE SET NULL,
		estimated_duration INTEGER,
		actual_duration    INTEGER,
		reminder_enabled   INTEGER NOT NULL DEFAULT 0,
		reminder_time      TEXT,
		shared_with        TEXT NOT NULL DEFAULT '[]',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		is_active  INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL,
		role            TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
		content         TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// timeLayout is RFC 3339 with a fixed-width fractional second. The padding
// matters: timestamps are compared as strings in ORDER BY clauses, and
// RFC3339Nano drops trailing zeros, which breaks lexicographic ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// nowUTC returns the current time as a sortable RFC 3339 string.
func nowUTC() string {
	return time.Now().UTC().Format(timeLayout)
}
