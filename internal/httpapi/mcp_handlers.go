package httpapi

import (
	"encoding/json"
	"net/http"

	"todochat/internal/apperr"
)

type toolCallRequest struct {
	Params json.RawMessage `json:"params"`
}

// handleCallTool invokes one registered tool directly, bypassing the model.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool_name")
	if !s.registry.Has(name) {
		writeError(w, apperr.NotFound("unknown tool: %s", name))
		return
	}

	var req toolCallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Params) == 0 {
		req.Params = json.RawMessage("{}")
	}

	out, err := s.registry.Execute(r.Context(), name, req.Params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result": json.RawMessage(out),
		"status": "success",
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": names,
		"count": len(names),
	})
}
