package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestConversationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "7", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("conversation id is empty")
	}
	if conv.Title != "Conversation with 7" {
		t.Fatalf("Title=%q, want default", conv.Title)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.UserID != "7" {
		t.Fatalf("UserID=%q, want 7", got.UserID)
	}

	list, err := s.ListConversations(ctx, "7")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len=%d, want 1", len(list))
	}

	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := s.GetConversation(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err=%v, want ErrNotFound", err)
	}
}

func TestAppendMessageValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "7", "work")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := s.AppendMessage(ctx, conv.ID, "7", "tool", "hi"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("bad role err=%v, want ErrInvalid", err)
	}
	if _, err := s.AppendMessage(ctx, conv.ID, "7", "user", "  "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("blank user content err=%v, want ErrInvalid", err)
	}
	// Assistant rows may be empty: a model turn can carry only tool calls.
	if _, err := s.AppendMessage(ctx, conv.ID, "7", "assistant", ""); err != nil {
		t.Fatalf("empty assistant content: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "missing-conversation", "7", "user", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing conversation err=%v, want ErrNotFound", err)
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "7", "work")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.AppendMessage(ctx, conv.ID, "7", "user", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
	}

	recent, err := s.RecentMessages(ctx, conv.ID, 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len=%d, want 3", len(recent))
	}
	// Window keeps the newest rows but returns them oldest first.
	for i, want := range []string{"msg 2", "msg 3", "msg 4"} {
		if recent[i].Content != want {
			t.Fatalf("recent[%d]=%q, want %q", i, recent[i].Content, want)
		}
	}

	all, err := s.AllMessages(ctx, conv.ID, 0)
	if err != nil {
		t.Fatalf("AllMessages: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len=%d, want 5", len(all))
	}
	if all[0].Content != "msg 0" || all[4].Content != "msg 4" {
		t.Fatalf("AllMessages order wrong: first=%q last=%q", all[0].Content, all[4].Content)
	}
}

func TestDeleteConversationCascadesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "7", "work")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := s.AppendMessage(ctx, conv.ID, "7", "user", "hello"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("orphan messages=%d, want 0", count)
	}
}
