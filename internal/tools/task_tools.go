package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"todochat/internal/apperr"
	"todochat/internal/chat"
	"todochat/internal/store"
)

// TaskStore is the slice of the persistence layer the task tools need.
type TaskStore interface {
	ResolveUser(ctx context.Context, ref string) (*store.User, error)
	CreateTask(ctx context.Context, userID int64, in store.TaskCreate) (*store.Task, error)
	ListTasks(ctx context.Context, userID int64, filter store.TaskFilter, sort store.TaskSort) ([]store.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, update store.TaskUpdate) (*store.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
}

// flexString decodes a JSON string or number into a string. Models are not
// consistent about whether identifiers come back quoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// taskRecord is the normalized shape every task tool returns: the completed
// flag surfaces as a pending/completed status string and the owner id is
// stringified.
type taskRecord struct {
	ID          int64   `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func recordOf(t *store.Task) taskRecord {
	status := "pending"
	if t.Completed {
		status = "completed"
	}
	return taskRecord{
		ID:          t.ID,
		UserID:      strconv.FormatInt(t.UserID, 10),
		Title:       t.Title,
		Description: t.Description,
		Status:      status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// resolveOwner maps a loose user reference (numeric id or email) to an
// account. A reference that matches nothing is an authorization failure, not
// a missing resource.
func resolveOwner(ctx context.Context, ts TaskStore, ref flexString) (*store.User, error) {
	user, err := ts.ResolveUser(ctx, string(ref))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalid) {
			return nil, apperr.Unauthorized("user does not exist")
		}
		return nil, apperr.Internal("resolve user: %v", err)
	}
	return user, nil
}

func parseTaskID(ref flexString) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(ref)), 10, 64)
	if err != nil {
		return 0, apperr.Validation("task_id must be a valid integer")
	}
	return id, nil
}

func mapTaskErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("task not found for the given user")
	case errors.Is(err, store.ErrInvalid):
		return apperr.Validation("%s", apperr.MessageOf(err))
	default:
		return apperr.Internal("%v", err)
	}
}

func userIDParam() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Unique identifier of the user who owns the task",
	}
}

func taskIDParam(verb string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Unique identifier of the task to " + verb,
	}
}

// AddTaskTool creates a new task for a user.
type AddTaskTool struct {
	store TaskStore
}

func NewAddTaskTool(ts TaskStore) *AddTaskTool { return &AddTaskTool{store: ts} }

func (t *AddTaskTool) Name() string { return "add_task" }

func (t *AddTaskTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Creates a new task for a specific user",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": userIDParam(),
					"title": map[string]any{
						"type":        "string",
						"description": "Title of the task",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Detailed description of the task",
					},
				},
				"required": []string{"user_id", "title"},
			},
		},
	}
}

func (t *AddTaskTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		UserID      flexString `json:"user_id"`
		Title       string     `json:"title"`
		Description *string    `json:"description"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", apperr.Validation("add_task args: %v", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", apperr.Validation("title is required and cannot be empty")
	}
	user, err := resolveOwner(ctx, t.store, in.UserID)
	if err != nil {
		return "", err
	}
	task, err := t.store.CreateTask(ctx, user.ID, store.TaskCreate{
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		return "", mapTaskErr(err)
	}
	return mustJSON(recordOf(task)), nil
}

// ListTasksTool retrieves tasks for a user, optionally filtered by status.
type ListTasksTool struct {
	store TaskStore
}

func NewListTasksTool(ts TaskStore) *ListTasksTool { return &ListTasksTool{store: ts} }

func (t *ListTasksTool) Name() string { return "list_tasks" }

func (t *ListTasksTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Retrieves a list of tasks for a specific user, optionally filtered by status",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": map[string]any{
						"type":        "string",
						"description": "Unique identifier of the user whose tasks to retrieve",
					},
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"pending", "in-progress", "completed"},
						"description": "Filter tasks by status",
					},
				},
				"required": []string{"user_id"},
			},
		},
	}
}

func (t *ListTasksTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		UserID flexString `json:"user_id"`
		Status string     `json:"status"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", apperr.Validation("list_tasks args: %v", err)
	}
	user, err := resolveOwner(ctx, t.store, in.UserID)
	if err != nil {
		return "", err
	}

	var filter store.TaskFilter
	switch strings.ToLower(strings.TrimSpace(in.Status)) {
	case "":
	case "pending", "in-progress":
		// No separate in-progress state is stored; it means "not done yet".
		completed := false
		filter.Completed = &completed
	case "completed":
		completed := true
		filter.Completed = &completed
	default:
		return "", apperr.Validation("invalid status value, use 'pending', 'in-progress', or 'completed'")
	}

	tasks, err := t.store.ListTasks(ctx, user.ID, filter, store.TaskSort{})
	if err != nil {
		return "", mapTaskErr(err)
	}
	records := make([]taskRecord, 0, len(tasks))
	for i := range tasks {
		records = append(records, recordOf(&tasks[i]))
	}
	return mustJSON(records), nil
}

// CompleteTaskTool marks a task as completed.
type CompleteTaskTool struct {
	store TaskStore
}

func NewCompleteTaskTool(ts TaskStore) *CompleteTaskTool { return &CompleteTaskTool{store: ts} }

func (t *CompleteTaskTool) Name() string { return "complete_task" }

func (t *CompleteTaskTool) Destructive() bool { return true }

func (t *CompleteTaskTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Marks a specific task as completed",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": userIDParam(),
					"task_id": taskIDParam("complete"),
				},
				"required": []string{"user_id", "task_id"},
			},
		},
	}
}

func (t *CompleteTaskTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		UserID flexString `json:"user_id"`
		TaskID flexString `json:"task_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", apperr.Validation("complete_task args: %v", err)
	}
	taskID, err := parseTaskID(in.TaskID)
	if err != nil {
		return "", err
	}
	user, err := resolveOwner(ctx, t.store, in.UserID)
	if err != nil {
		return "", err
	}

	var update store.TaskUpdate
	update.SetCompleted(true)
	task, err := t.store.UpdateTask(ctx, user.ID, taskID, update)
	if err != nil {
		return "", mapTaskErr(err)
	}
	return mustJSON(recordOf(task)), nil
}

// DeleteTaskTool permanently removes a task.
type DeleteTaskTool struct {
	store TaskStore
}

func NewDeleteTaskTool(ts TaskStore) *DeleteTaskTool { return &DeleteTaskTool{store: ts} }

func (t *DeleteTaskTool) Name() string { return "delete_task" }

func (t *DeleteTaskTool) Destructive() bool { return true }

func (t *DeleteTaskTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Permanently removes a task from the user's list",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": userIDParam(),
					"task_id": taskIDParam("delete"),
				},
				"required": []string{"user_id", "task_id"},
			},
		},
	}
}

func (t *DeleteTaskTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		UserID flexString `json:"user_id"`
		TaskID flexString `json:"task_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", apperr.Validation("delete_task args: %v", err)
	}
	taskID, err := parseTaskID(in.TaskID)
	if err != nil {
		return "", err
	}
	user, err := resolveOwner(ctx, t.store, in.UserID)
	if err != nil {
		return "", err
	}
	if err := t.store.DeleteTask(ctx, user.ID, taskID); err != nil {
		return "", mapTaskErr(err)
	}
	return mustJSON(map[string]any{"success": true, "task_id": taskID}), nil
}

// UpdateTaskTool changes title or description of an existing task.
type UpdateTaskTool struct {
	store TaskStore
}

func NewUpdateTaskTool(ts TaskStore) *UpdateTaskTool { return &UpdateTaskTool{store: ts} }

func (t *UpdateTaskTool) Name() string { return "update_task" }

func (t *UpdateTaskTool) Destructive() bool { return true }

func (t *UpdateTaskTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Updates properties of an existing task",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": userIDParam(),
					"task_id": taskIDParam("update"),
					"title": map[string]any{
						"type":        "string",
						"description": "New title for the task",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "New description for the task",
					},
				},
				"required": []string{"user_id", "task_id"},
			},
		},
	}
}

func (t *UpdateTaskTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		UserID      flexString `json:"user_id"`
		TaskID      flexString `json:"task_id"`
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", apperr.Validation("update_task args: %v", err)
	}
	taskID, err := parseTaskID(in.TaskID)
	if err != nil {
		return "", err
	}
	user, err := resolveOwner(ctx, t.store, in.UserID)
	if err != nil {
		return "", err
	}

	var update store.TaskUpdate
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return "", apperr.Validation("title cannot be empty")
		}
		update.SetTitle(*in.Title)
	}
	if in.Description != nil {
		update.SetDescription(*in.Description)
	}
	// An update with no fields still bumps updated_at, same as the REST API.
	task, err := t.store.UpdateTask(ctx, user.ID, taskID, update)
	if err != nil {
		return "", mapTaskErr(err)
	}
	return mustJSON(recordOf(task)), nil
}

// NewTaskRegistry wires the full task tool set over one store.
func NewTaskRegistry(ts TaskStore) *Registry {
	return NewRegistry(
		NewAddTaskTool(ts),
		NewListTasksTool(ts),
		NewCompleteTaskTool(ts),
		NewDeleteTaskTool(ts),
		NewUpdateTaskTool(ts),
	)
}
