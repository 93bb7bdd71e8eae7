package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Title != "Buy milk" {
		t.Fatalf("Title=%q, want trimmed %q", task.Title, "Buy milk")
	}
	if task.Completed {
		t.Fatal("new task should not be completed")
	}
	if task.Priority != PriorityMedium {
		t.Fatalf("Priority=%q, want medium", task.Priority)
	}
	if task.Description != nil {
		t.Fatalf("Description=%v, want nil", *task.Description)
	}
	if task.CreatedAt == "" || task.UpdatedAt == "" {
		t.Fatal("timestamps must be set")
	}
}

func TestCreateTaskRejectsBlankTitle(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")

	_, err := s.CreateTask(context.Background(), user.ID, TaskCreate{Title: "   "})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v, want ErrInvalid", err)
	}
}

func TestGetTaskOwnershipIsNotFound(t *testing.T) {
	s := newTestStore(t)
	alice := newTestUser(t, s, "alice@example.com")
	bob := newTestUser(t, s, "bob@example.com")
	ctx := context.Background()

	task, err := s.CreateTask(ctx, alice.ID, TaskCreate{Title: "secret"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// Bob must not be able to tell this task exists.
	if _, err := s.GetTask(ctx, bob.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user GetTask err=%v, want ErrNotFound", err)
	}
	if err := s.DeleteTask(ctx, bob.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user DeleteTask err=%v, want ErrNotFound", err)
	}
	var update TaskUpdate
	update.SetTitle("stolen")
	if _, err := s.UpdateTask(ctx, bob.ID, task.ID, update); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user UpdateTask err=%v, want ErrNotFound", err)
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	desc := "the original description"
	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "original", Description: &desc})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	var update TaskUpdate
	update.SetTitle("renamed")
	updated, err := s.UpdateTask(ctx, user.ID, task.ID, update)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != "renamed" {
		t.Fatalf("Title=%q", updated.Title)
	}
	if updated.Description == nil || *updated.Description != desc {
		t.Fatal("title-only update must leave description untouched")
	}
}

func TestUpdateTaskNullClearsNullableField(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	desc := "to be cleared"
	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "t", Description: &desc})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	var update TaskUpdate
	if err := json.Unmarshal([]byte(`{"description": null}`), &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if !update.Has("description") {
		t.Fatal("description key should be recorded as present")
	}
	updated, err := s.UpdateTask(ctx, user.ID, task.ID, update)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Description != nil {
		t.Fatalf("Description=%q, want cleared", *updated.Description)
	}
}

func TestUpdateTaskEmptyPayloadTouchesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "t"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	updated, err := s.UpdateTask(ctx, user.ID, task.ID, TaskUpdate{})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != task.Title || updated.Completed != task.Completed {
		t.Fatal("empty update must not change fields")
	}
	if updated.UpdatedAt < task.UpdatedAt {
		t.Fatalf("UpdatedAt went backwards: %q -> %q", task.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateTaskRejectsNullTitle(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "t"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	var update TaskUpdate
	if err := json.Unmarshal([]byte(`{"title": null}`), &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if _, err := s.UpdateTask(ctx, user.ID, task.ID, update); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v, want ErrInvalid", err)
	}
}

func TestDeleteTaskIsPermanent(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	task, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "doomed"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.DeleteTask(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, user.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask after delete err=%v, want ErrNotFound", err)
	}
	tasks, err := s.ListTasks(ctx, user.ID, TaskFilter{}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("ListTasks after delete returned %d tasks", len(tasks))
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	mustCreate := func(in TaskCreate) *Task {
		t.Helper()
		task, err := s.CreateTask(ctx, user.ID, in)
		if err != nil {
			t.Fatalf("CreateTask(%q): %v", in.Title, err)
		}
		return task
	}

	groceries := mustCreate(TaskCreate{Title: "buy groceries", Priority: "high", Tags: StringList{"errand", "home"}})
	mustCreate(TaskCreate{Title: "write report", Priority: "low", Tags: StringList{"work"}})
	done := mustCreate(TaskCreate{Title: "water plants", Tags: StringList{"home"}})

	var complete TaskUpdate
	complete.SetCompleted(true)
	if _, err := s.UpdateTask(ctx, user.ID, done.ID, complete); err != nil {
		t.Fatalf("complete: %v", err)
	}

	completed := true
	tasks, err := s.ListTasks(ctx, user.ID, TaskFilter{Completed: &completed}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks completed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != done.ID {
		t.Fatalf("completed filter returned %d tasks", len(tasks))
	}

	tasks, err = s.ListTasks(ctx, user.ID, TaskFilter{Priority: "high"}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks priority: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != groceries.ID {
		t.Fatalf("priority filter returned %d tasks", len(tasks))
	}

	// Each requested tag narrows the set: AND, not OR.
	tasks, err = s.ListTasks(ctx, user.ID, TaskFilter{Tags: []string{"home", "errand"}}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks tags: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != groceries.ID {
		t.Fatalf("tag AND filter returned %d tasks", len(tasks))
	}

	tasks, err = s.ListTasks(ctx, user.ID, TaskFilter{Search: "report"}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks search: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "write report" {
		t.Fatalf("search filter returned %d tasks", len(tasks))
	}
}

func TestListTasksSort(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	for _, title := range []string{"banana", "apple", "cherry"} {
		if _, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: title}); err != nil {
			t.Fatalf("CreateTask(%q): %v", title, err)
		}
	}

	tasks, err := s.ListTasks(ctx, user.ID, TaskFilter{}, TaskSort{Key: "title", Order: "asc"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	want := []string{"apple", "banana", "cherry"}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Fatalf("sorted[%d]=%q, want %q", i, tasks[i].Title, title)
		}
	}

	// Default ordering is recency-descending.
	tasks, err = s.ListTasks(ctx, user.ID, TaskFilter{}, TaskSort{})
	if err != nil {
		t.Fatalf("ListTasks default: %v", err)
	}
	if tasks[0].Title != "cherry" {
		t.Fatalf("default sort first=%q, want most recent", tasks[0].Title)
	}
}

func TestDeleteParentDetachesChild(t *testing.T) {
	s := newTestStore(t)
	user := newTestUser(t, s, "alice@example.com")
	ctx := context.Background()

	parent, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "parent"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	child, err := s.CreateTask(ctx, user.ID, TaskCreate{Title: "child", ParentTaskID: &parent.ID})
	if err != nil {
		t.Fatalf("CreateTask child: %v", err)
	}
	if err := s.DeleteTask(ctx, user.ID, parent.ID); err != nil {
		t.Fatalf("DeleteTask parent: %v", err)
	}
	got, err := s.GetTask(ctx, user.ID, child.ID)
	if err != nil {
		t.Fatalf("GetTask child: %v", err)
	}
	if got.ParentTaskID != nil {
		t.Fatalf("ParentTaskID=%v, want detached nil", *got.ParentTaskID)
	}
}
