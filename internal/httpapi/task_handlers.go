package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"todochat/internal/apperr"
	"todochat/internal/store"
)

func storeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("task not found")
	case errors.Is(err, store.ErrInvalid):
		return apperr.Validation("%s", apperr.MessageOf(err))
	default:
		return apperr.Internal("%v", err)
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	var filter store.TaskFilter
	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperr.Validation("completed must be true or false"))
			return
		}
		filter.Completed = &completed
	}
	filter.Priority = q.Get("priority")
	filter.Search = q.Get("search")
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	sort := store.TaskSort{Key: q.Get("sort_by"), Order: q.Get("sort_order")}

	tasks, err := s.store.ListTasks(r.Context(), uid, filter, sort)
	if err != nil {
		s.logger.Error("list tasks failed", "user_id", userID, "error", err)
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	var in store.TaskCreate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.store.CreateTask(r.Context(), uid, in)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// taskIDFromPath parses the {task_id} path segment.
func taskIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("task_id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation("task_id must be a valid integer")
	}
	return id, nil
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := s.store.GetTask(r.Context(), uid, taskID)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var update store.TaskUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.store.UpdateTask(r.Context(), uid, taskID, update)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.DeleteTask(r.Context(), uid, taskID); err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task_id": taskID})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSubject(w, r)
	if !ok {
		return
	}
	uid, err := numericUserID(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := s.store.ToggleTaskCompletion(r.Context(), uid, taskID)
	if err != nil {
		writeError(w, storeErr(err))
		return
	}
	writeJSON(w, http.StatusOK, task)
}
