package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), email, "x-hash", nil, nil)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}
