// Package history manages durable conversation threads and assembles the
// bounded message context sent to the model on every turn.
package history

import (
	"context"
	"errors"
	"fmt"

	"todochat/internal/chat"
	"todochat/internal/store"
)

// ConversationStore is the slice of the persistence layer history needs.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, title string) (*store.Conversation, error)
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, userID, role, content string) (*store.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error)
}

// History provides conversation handles and context assembly. MaxMessages
// caps the stored rows considered per turn; TokenLimit caps the assembled
// context size, dropping the oldest turns first.
type History struct {
	store       ConversationStore
	tokenizer   *Tokenizer
	maxMessages int
	tokenLimit  int
}

func New(cs ConversationStore, maxMessages, tokenLimit int) *History {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &History{
		store:       cs,
		tokenizer:   DefaultTokenizer(),
		maxMessages: maxMessages,
		tokenLimit:  tokenLimit,
	}
}

// GetOrCreate returns the conversation behind a client-supplied handle. An
// empty, unknown, or foreign handle silently yields a fresh conversation:
// handles never leak whether some other user's thread exists.
func (h *History) GetOrCreate(ctx context.Context, userID, conversationID string) (*store.Conversation, error) {
	if conversationID != "" {
		conv, err := h.store.GetConversation(ctx, conversationID)
		if err == nil && conv.UserID == userID {
			return conv, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
	}
	conv, err := h.store.CreateConversation(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Append persists one turn.
func (h *History) Append(ctx context.Context, conversationID, userID, role, content string) (*store.Message, error) {
	return h.store.AppendMessage(ctx, conversationID, userID, role, content)
}

// Context assembles the model context for a turn: exactly one system message
// built from systemPrompt, then the newest stored turns in chronological
// order. Persisted system rows are skipped so the prompt cannot be injected
// through history. When the assembled context exceeds the token limit the
// oldest turns are dropped first; the newest message always survives.
func (h *History) Context(ctx context.Context, conversationID, systemPrompt string) ([]chat.Message, error) {
	rows, err := h.store.RecentMessages(ctx, conversationID, h.maxMessages)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	system := chat.Message{Role: chat.RoleSystem, Content: systemPrompt}
	turns := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		if row.Role == chat.RoleSystem {
			continue
		}
		turns = append(turns, chat.Message{Role: row.Role, Content: row.Content})
	}

	if h.tokenLimit > 0 {
		budget := h.tokenLimit - h.tokenizer.CountMessage(system)
		for len(turns) > 1 && h.tokenizer.Count(turns) > budget {
			turns = turns[1:]
		}
	}

	out := make([]chat.Message, 0, len(turns)+1)
	out = append(out, system)
	out = append(out, turns...)
	return out, nil
}
