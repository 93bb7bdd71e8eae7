package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateConversation starts a new chat thread for a user.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (*Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: conversation user id is empty", ErrInvalid)
	}
	if strings.TrimSpace(title) == "" {
		title = "Conversation with " + userID
	}

	conv := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsActive:  true,
		CreatedAt: nowUTC(),
	}
	conv.UpdatedAt = conv.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Title, conv.IsActive, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &conv, nil
}

const conversationColumns = "id, user_id, title, is_active, created_at, updated_at"

// GetConversation loads a conversation by handle.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.GetContext(ctx, &conv,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns a user's conversations, most recent first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	convs := []Conversation{}
	err := s.db.SelectContext(ctx, &convs,
		"SELECT "+conversationColumns+" FROM conversations WHERE user_id = ? ORDER BY updated_at DESC",
		strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes a thread; messages cascade.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage adds one turn to a conversation and touches its updated_at.
// Messages are append-only: nothing ever mutates them afterwards. User and
// system turns must carry content; assistant turns may be empty when the
// model answered with tool calls only.
func (s *Store) AppendMessage(ctx context.Context, conversationID, userID, role, content string) (*Message, error) {
	switch role {
	case "user", "assistant", "system":
	default:
		return nil, fmt.Errorf("%w: unknown message role %q", ErrInvalid, role)
	}
	if role != "assistant" && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", ErrInvalid)
	}
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: strings.TrimSpace(conversationID),
		UserID:         strings.TrimSpace(userID),
		Role:           role,
		Content:        content,
		CreatedAt:      nowUTC(),
	}
	msg.UpdatedAt = msg.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, user_id, role, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", msg.CreatedAt, msg.ConversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	return &msg, nil
}

const messageColumns = "id, conversation_id, user_id, role, content, created_at, updated_at"

// RecentMessages returns the newest messages of a conversation in
// chronological order. The query fetches most-recent-first and the slice is
// reversed before returning.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}
	messages := []Message{}
	err := s.db.SelectContext(ctx, &messages, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`,
		strings.TrimSpace(conversationID), limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AllMessages returns a conversation's messages oldest first. A limit of
// zero means no limit.
func (s *Store) AllMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE conversation_id = ? ORDER BY created_at ASC"
	args := []any{strings.TrimSpace(conversationID)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	messages := []Message{}
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	return messages, nil
}
