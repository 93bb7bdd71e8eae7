package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TaskCreate carries the fields accepted when creating a task.
type TaskCreate struct {
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	Completed         bool       `json:"completed"`
	Priority          string     `json:"priority"`
	Tags              StringList `json:"tags"`
	DueDate           *string    `json:"due_date"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrencePattern *string    `json:"recurrence_pattern"`
	ParentTaskID      *int64     `json:"parent_task_id"`
	EstimatedDuration *int64     `json:"estimated_duration"`
	ReminderEnabled   bool       `json:"reminder_enabled"`
	ReminderTime      *string    `json:"reminder_time"`
	SharedWith        Int64List  `json:"shared_with"`
}

// TaskUpdate is a partial update. Decoding from JSON records which keys were
// present, so "field absent" and "field set to null" stay distinguishable.
type TaskUpdate struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Completed         *bool      `json:"completed"`
	Priority          *string    `json:"priority"`
	Tags              StringList `json:"tags"`
	DueDate           *string    `json:"due_date"`
	IsRecurring       *bool      `json:"is_recurring"`
	RecurrencePattern *string    `json:"recurrence_pattern"`
	ParentTaskID      *int64     `json:"parent_task_id"`
	EstimatedDuration *int64     `json:"estimated_duration"`
	ActualDuration    *int64     `json:"actual_duration"`
	ReminderEnabled   *bool      `json:"reminder_enabled"`
	ReminderTime      *string    `json:"reminder_time"`
	SharedWith        Int64List  `json:"shared_with"`

	present map[string]bool
}

func (u *TaskUpdate) UnmarshalJSON(data []byte) error {
	type plain TaskUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*u = TaskUpdate(p)
	u.present = make(map[string]bool, len(keys))
	for k := range keys {
		u.present[k] = true
	}
	return nil
}

// Has reports whether the named JSON field was present in the payload.
func (u *TaskUpdate) Has(field string) bool {
	return u.present[field]
}

// IsEmpty reports whether no field was supplied at all.
func (u *TaskUpdate) IsEmpty() bool {
	return len(u.present) == 0
}

func (u *TaskUpdate) mark(field string) {
	if u.present == nil {
		u.present = make(map[string]bool, 4)
	}
	u.present[field] = true
}

// SetTitle marks the title as provided (programmatic builder for tools).
func (u *TaskUpdate) SetTitle(title string) {
	u.Title = &title
	u.mark("title")
}

// SetDescription marks the description as provided.
func (u *TaskUpdate) SetDescription(description string) {
	u.Description = &description
	u.mark("description")
}

// SetCompleted marks the completion flag as provided.
func (u *TaskUpdate) SetCompleted(completed bool) {
	u.Completed = &completed
	u.mark("completed")
}

// TaskFilter narrows ListTasks results. Every requested tag must be present
// on a task for it to match (AND semantics).
type TaskFilter struct {
	Completed *bool
	Priority  string
	Tags      []string
	Search    string
}

// TaskSort selects an ordering. Unknown keys fall back to created_at and
// anything other than "asc" sorts descending, matching the REST defaults.
type TaskSort struct {
	Key   string
	Order string
}

var taskSortColumns = map[string]string{
	"title":      "title",
	"completed":  "completed",
	"priority":   "priority",
	"due_date":   "due_date",
	"created_at": "created_at",
}

func (s TaskSort) clause() string {
	column, ok := taskSortColumns[s.Key]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(s.Order, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction)
}

const taskColumns = `id, user_id, title, description, completed, priority, tags,
	due_date, is_recurring, recurrence_pattern, parent_task_id,
	estimated_duration, actual_duration, reminder_enabled, reminder_time,
	shared_with, created_at, updated_at`

// CreateTask inserts a task for the given user. Title must be non-blank;
// priority defaults to medium.
func (s *Store) CreateTask(ctx context.Context, userID int64, in TaskCreate) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required and cannot be empty", ErrInvalid)
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, priority, tags,
			due_date, is_recurring, recurrence_pattern, parent_task_id,
			estimated_duration, reminder_enabled, reminder_time, shared_with,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, title, trimPtr(in.Description), in.Completed, priority, in.Tags,
		in.DueDate, in.IsRecurring, in.RecurrencePattern, in.ParentTaskID,
		in.EstimatedDuration, in.ReminderEnabled, in.ReminderTime, in.SharedWith,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task insert id: %w", err)
	}
	return s.GetTask(ctx, userID, id)
}

// GetTask loads one task scoped by owner. A task owned by someone else is
// indistinguishable from a missing one.
func (s *Store) GetTask(ctx context.Context, userID, taskID int64) (*Task, error) {
	var task Task
	err := s.db.GetContext(ctx, &task,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load task %d: %w", taskID, err)
	}
	return &task, nil
}

// UpdateTask applies the provided fields only. An update with no fields still
// bumps updated_at.
func (s *Store) UpdateTask(ctx context.Context, userID, taskID int64, update TaskUpdate) (*Task, error) {
	if _, err := s.GetTask(ctx, userID, taskID); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Has("title") {
		if update.Title == nil || strings.TrimSpace(*update.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalid)
		}
		appendSet("title", strings.TrimSpace(*update.Title))
	}
	if update.Has("description") {
		appendSet("description", trimPtr(update.Description))
	}
	if update.Has("completed") {
		if update.Completed == nil {
			return nil, fmt.Errorf("%w: completed cannot be null", ErrInvalid)
		}
		appendSet("completed", *update.Completed)
	}
	if update.Has("priority") {
		if update.Priority == nil {
			return nil, fmt.Errorf("%w: priority cannot be null", ErrInvalid)
		}
		priority, err := normalizePriority(*update.Priority)
		if err != nil {
			return nil, err
		}
		appendSet("priority", priority)
	}
	if update.Has("tags") {
		appendSet("tags", update.Tags)
	}
	if update.Has("due_date") {
		appendSet("due_date", update.DueDate)
	}
	if update.Has("is_recurring") {
		if update.IsRecurring == nil {
			return nil, fmt.Errorf("%w: is_recurring cannot be null", ErrInvalid)
		}
		appendSet("is_recurring", *update.IsRecurring)
	}
	if update.Has("recurrence_pattern") {
		appendSet("recurrence_pattern", update.RecurrencePattern)
	}
	if update.Has("parent_task_id") {
		appendSet("parent_task_id", update.ParentTaskID)
	}
	if update.Has("estimated_duration") {
		appendSet("estimated_duration", update.EstimatedDuration)
	}
	if update.Has("actual_duration") {
		appendSet("actual_duration", update.ActualDuration)
	}
	if update.Has("reminder_enabled") {
		if update.ReminderEnabled == nil {
			return nil, fmt.Errorf("%w: reminder_enabled cannot be null", ErrInvalid)
		}
		appendSet("reminder_enabled", *update.ReminderEnabled)
	}
	if update.Has("reminder_time") {
		appendSet("reminder_time", update.ReminderTime)
	}
	if update.Has("shared_with") {
		appendSet("shared_with", update.SharedWith)
	}

	appendSet("updated_at", nowUTC())
	args = append(args, taskID, userID)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update task %d: %w", taskID, err)
	}
	return s.GetTask(ctx, userID, taskID)
}

// ToggleTaskCompletion flips the completion flag.
func (s *Store) ToggleTaskCompletion(ctx context.Context, userID, taskID int64) (*Task, error) {
	task, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	var update TaskUpdate
	update.SetCompleted(!task.Completed)
	return s.UpdateTask(ctx, userID, taskID, update)
}

// DeleteTask removes a task permanently. There is no tombstone.
func (s *Store) DeleteTask(ctx context.Context, userID, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns a user's tasks, filtered and sorted.
func (s *Store) ListTasks(ctx context.Context, userID int64, filter TaskFilter, sort TaskSort) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}

	if filter.Completed != nil {
		query += " AND completed = ?"
		args = append(args, *filter.Completed)
	}
	if filter.Priority != "" {
		query += " AND priority = ?"
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Priority)))
	}
	for _, tag := range filter.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		query += " AND tags LIKE ?"
		args = append(args, "%"+tag+"%")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += " AND (title LIKE ? OR description LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += " " + sort.clause()

	tasks := []Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func normalizePriority(priority string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "":
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: priority must be one of low, medium, high", ErrInvalid)
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
