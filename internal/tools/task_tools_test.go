package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"todochat/internal/apperr"
	"todochat/internal/store"
)

func newToolEnv(t *testing.T) (*store.Store, *store.User) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	user, err := s.CreateUser(context.Background(), "owner@example.com", "hash", nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return s, user
}

func execTool(t *testing.T, tool Tool, args string) string {
	t.Helper()
	out, err := tool.Execute(context.Background(), json.RawMessage(args))
	if err != nil {
		t.Fatalf("%s: %v", tool.Name(), err)
	}
	return out
}

func TestAddTaskTool(t *testing.T) {
	s, user := newToolEnv(t)
	tool := NewAddTaskTool(s)

	out := execTool(t, tool, fmt.Sprintf(`{"user_id":"%d","title":"  Buy milk  ","description":"2 liters"}`, user.ID))

	var rec taskRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if rec.Title != "Buy milk" {
		t.Fatalf("Title=%q, want trimmed", rec.Title)
	}
	if rec.Status != "pending" {
		t.Fatalf("Status=%q, want pending", rec.Status)
	}
	if rec.UserID != fmt.Sprint(user.ID) {
		t.Fatalf("UserID=%q", rec.UserID)
	}
	if rec.Description == nil || *rec.Description != "2 liters" {
		t.Fatalf("Description=%v", rec.Description)
	}
}

func TestAddTaskToolRejectsBlankTitle(t *testing.T) {
	s, user := newToolEnv(t)
	tool := NewAddTaskTool(s)

	_, err := tool.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","title":"   "}`, user.ID)))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err=%v, want validation kind", err)
	}
}

func TestAddTaskToolUnknownUser(t *testing.T) {
	s, _ := newToolEnv(t)
	tool := NewAddTaskTool(s)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"user_id":"ghost@example.com","title":"x"}`))
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("err=%v, want unauthorized kind", err)
	}
}

func TestAddTaskToolNumericUserID(t *testing.T) {
	s, user := newToolEnv(t)
	tool := NewAddTaskTool(s)

	// user_id arrives as a JSON number, not a string.
	out := execTool(t, tool, fmt.Sprintf(`{"user_id":%d,"title":"numeric id"}`, user.ID))
	var rec taskRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if rec.Title != "numeric id" {
		t.Fatalf("Title=%q", rec.Title)
	}
}

func TestListTasksToolStatusFilter(t *testing.T) {
	s, user := newToolEnv(t)
	add := NewAddTaskTool(s)
	complete := NewCompleteTaskTool(s)
	list := NewListTasksTool(s)

	execTool(t, add, fmt.Sprintf(`{"user_id":"%d","title":"open one"}`, user.ID))
	out := execTool(t, add, fmt.Sprintf(`{"user_id":"%d","title":"done one"}`, user.ID))
	var created taskRecord
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	execTool(t, complete, fmt.Sprintf(`{"user_id":"%d","task_id":"%d"}`, user.ID, created.ID))

	cases := []struct {
		status string
		want   int
	}{
		{"", 2},
		{"pending", 1},
		{"in-progress", 1},
		{"completed", 1},
	}
	for _, tc := range cases {
		out := execTool(t, list, fmt.Sprintf(`{"user_id":"%d","status":"%s"}`, user.ID, tc.status))
		var records []taskRecord
		if err := json.Unmarshal([]byte(out), &records); err != nil {
			t.Fatalf("status %q: decode: %v", tc.status, err)
		}
		if len(records) != tc.want {
			t.Fatalf("status %q: len=%d, want %d", tc.status, len(records), tc.want)
		}
	}

	if _, err := list.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","status":"someday"}`, user.ID))); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("bad status: want validation error")
	}
}

func TestListTasksToolEmptyIsArray(t *testing.T) {
	s, user := newToolEnv(t)
	list := NewListTasksTool(s)

	out := execTool(t, list, fmt.Sprintf(`{"user_id":"%d"}`, user.ID))
	if out != "[]" {
		t.Fatalf("out=%q, want empty JSON array", out)
	}
}

func TestCompleteTaskTool(t *testing.T) {
	s, user := newToolEnv(t)
	add := NewAddTaskTool(s)
	complete := NewCompleteTaskTool(s)

	out := execTool(t, add, fmt.Sprintf(`{"user_id":"%d","title":"finish report"}`, user.ID))
	var created taskRecord
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	out = execTool(t, complete, fmt.Sprintf(`{"user_id":"%d","task_id":%d}`, user.ID, created.ID))
	var done taskRecord
	if err := json.Unmarshal([]byte(out), &done); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if done.Status != "completed" {
		t.Fatalf("Status=%q, want completed", done.Status)
	}

	_, err := complete.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","task_id":"not-a-number"}`, user.ID)))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("bad task_id err=%v, want validation kind", err)
	}

	_, err = complete.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","task_id":"99999"}`, user.ID)))
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("missing task err=%v, want not-found kind", err)
	}
}

func TestDeleteTaskTool(t *testing.T) {
	s, user := newToolEnv(t)
	add := NewAddTaskTool(s)
	del := NewDeleteTaskTool(s)
	list := NewListTasksTool(s)

	out := execTool(t, add, fmt.Sprintf(`{"user_id":"%d","title":"temporary"}`, user.ID))
	var created taskRecord
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	out = execTool(t, del, fmt.Sprintf(`{"user_id":"%d","task_id":"%d"}`, user.ID, created.ID))
	var res struct {
		Success bool  `json:"success"`
		TaskID  int64 `json:"task_id"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode delete result: %v", err)
	}
	if !res.Success || res.TaskID != created.ID {
		t.Fatalf("result=%+v", res)
	}

	if out := execTool(t, list, fmt.Sprintf(`{"user_id":"%d"}`, user.ID)); out != "[]" {
		t.Fatalf("tasks remain after delete: %s", out)
	}
}

func TestUpdateTaskTool(t *testing.T) {
	s, user := newToolEnv(t)
	add := NewAddTaskTool(s)
	update := NewUpdateTaskTool(s)

	out := execTool(t, add, fmt.Sprintf(`{"user_id":"%d","title":"draft","description":"old"}`, user.ID))
	var created taskRecord
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	out = execTool(t, update, fmt.Sprintf(`{"user_id":"%d","task_id":"%d","title":"final"}`, user.ID, created.ID))
	var updated taskRecord
	if err := json.Unmarshal([]byte(out), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Title != "final" {
		t.Fatalf("Title=%q, want final", updated.Title)
	}
	if updated.Description == nil || *updated.Description != "old" {
		t.Fatalf("Description=%v, want untouched", updated.Description)
	}

	_, err := update.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","task_id":"%d","title":"  "}`, user.ID, created.ID)))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("blank title err=%v, want validation kind", err)
	}
}

func TestTaskToolsOwnership(t *testing.T) {
	s, owner := newToolEnv(t)
	other, err := s.CreateUser(context.Background(), "other@example.com", "hash", nil, nil)
	if err != nil {
		t.Fatalf("create second user: %v", err)
	}

	out := execTool(t, NewAddTaskTool(s), fmt.Sprintf(`{"user_id":"%d","title":"private"}`, owner.ID))
	var created taskRecord
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	// A different user sees not-found, never someone else's task.
	for _, tool := range []Tool{NewCompleteTaskTool(s), NewDeleteTaskTool(s), NewUpdateTaskTool(s)} {
		_, err := tool.Execute(context.Background(), json.RawMessage(fmt.Sprintf(`{"user_id":"%d","task_id":"%d"}`, other.ID, created.ID)))
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("%s: err=%v, want not-found kind", tool.Name(), err)
		}
	}
}

func TestRegistry(t *testing.T) {
	s, _ := newToolEnv(t)
	reg := NewTaskRegistry(s)

	want := []string{"add_task", "complete_task", "delete_task", "list_tasks", "update_task"}
	names := reg.Names()
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("names[%d]=%q, want %q", i, names[i], name)
		}
	}

	if len(reg.Definitions()) != 5 {
		t.Fatalf("definitions=%d, want 5", len(reg.Definitions()))
	}
	if reg.IsDestructive("add_task") || reg.IsDestructive("list_tasks") {
		t.Fatal("read/create tools flagged destructive")
	}
	for _, name := range []string{"complete_task", "delete_task", "update_task"} {
		if !reg.IsDestructive(name) {
			t.Fatalf("%s not flagged destructive", name)
		}
	}
	if !reg.IsDestructive("unknown_tool") {
		t.Fatal("unknown tools must default to destructive")
	}

	if _, err := reg.Execute(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected unknown tool error")
	}
}
