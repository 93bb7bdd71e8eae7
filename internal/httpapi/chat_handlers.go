package httpapi

import (
	"net/http"
	"strings"

	"todochat/internal/apperr"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, apperr.Validation("message is required"))
		return
	}

	reply, err := s.agent.ProcessMessage(r.Context(), userID, req.Message, req.ConversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	convs, err := s.store.ListConversations(r.Context(), userID)
	if err != nil {
		s.logger.Error("list conversations failed", "user_id", userID, "error", err)
		writeError(w, apperr.Internal("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	convID := r.PathValue("conversation_id")

	conv, err := s.store.GetConversation(r.Context(), convID)
	// Foreign conversations look exactly like missing ones.
	if err != nil || conv.UserID != userID {
		writeError(w, apperr.NotFound("conversation not found"))
		return
	}

	msgs, err := s.store.AllMessages(r.Context(), convID, 0)
	if err != nil {
		s.logger.Error("load conversation messages failed", "conversation_id", convID, "error", err)
		writeError(w, apperr.Internal("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
