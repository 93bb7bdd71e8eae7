// Package httpapi exposes the REST surface: auth, task CRUD, chat, and the
// collaborator-facing tool endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"todochat/internal/agent"
	"todochat/internal/apperr"
	"todochat/internal/auth"
	"todochat/internal/store"
	"todochat/internal/tools"
)

type Server struct {
	store    *store.Store
	tokens   *auth.TokenManager
	agent    *agent.Agent
	registry *tools.Registry
	logger   *slog.Logger
}

// NewServer builds the routed and middleware-wrapped handler.
func NewServer(st *store.Store, tokens *auth.TokenManager, ag *agent.Agent, registry *tools.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: st, tokens: tokens, agent: ag, registry: registry, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHealth)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/user", s.handleCurrentUser)

	mux.HandleFunc("GET /api/{user_id}/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/{user_id}/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/{user_id}/tasks/{task_id}", s.handleGetTask)
	mux.HandleFunc("PUT /api/{user_id}/tasks/{task_id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/{user_id}/tasks/{task_id}", s.handleDeleteTask)
	mux.HandleFunc("PATCH /api/{user_id}/tasks/{task_id}/complete", s.handleToggleTask)

	mux.HandleFunc("POST /api/{user_id}/chat", s.handleChat)
	mux.HandleFunc("GET /api/{user_id}/conversations", s.handleListConversations)
	mux.HandleFunc("GET /api/{user_id}/conversations/{conversation_id}/messages", s.handleConversationMessages)

	mux.HandleFunc("GET /mcp/tools", s.handleListTools)
	mux.HandleFunc("POST /mcp/tool/{tool_name}", s.handleCallTool)

	return chainMiddlewares(mux,
		s.authMiddleware,
		withCORS,
		s.withLogging,
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps an error to the uniform envelope using its kind.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg := apperr.MessageOf(err)
	if kind == apperr.KindInternal {
		// Internal details stay in the logs.
		msg = "internal server error"
	}
	writeJSON(w, kind.HTTPStatus(), errorEnvelope{Error: errorBody{Type: kind.String(), Message: msg}})
}

func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, errorEnvelope{
		Error: errorBody{Type: "ForbiddenError", Message: "token subject does not match requested user"},
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}
