package clickup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli, err := New(Config{
		BaseURL:  srv.URL,
		APIToken: "pk_test_token",
		TeamID:   "9001",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cli, srv
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{TeamID: "1"}); err == nil {
		t.Fatal("missing token must fail")
	}
	if _, err := New(Config{APIToken: "tok"}); err == nil {
		t.Fatal("missing team id must fail")
	}
}

func TestGetTask(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/abc123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "pk_test_token" {
			t.Errorf("missing auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "abc123",
			"name": "Send invoice to client",
			"text_content": "Wire the Q3 invoice.",
			"status": {"status": "in progress"},
			"date_updated": "1756400000000",
			"url": "https://app.clickup.com/t/abc123",
			"list": {"id": "l1", "name": "Billing"},
			"space": {"id": "s1", "name": "Finance"}
		}`))
	}))

	task, err := cli.GetTask(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Name != "Send invoice to client" {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.Status.Status != "in progress" {
		t.Fatalf("unexpected status %+v", task.Status)
	}
	if got := task.Location(); got != "Finance / Billing" {
		t.Fatalf("Location() = %q", got)
	}
	if task.UpdatedAt().IsZero() {
		t.Fatal("UpdatedAt must parse the millisecond epoch")
	}
	if want := time.UnixMilli(1756400000000); !task.UpdatedAt().Equal(want) {
		t.Fatalf("UpdatedAt = %v, want %v", task.UpdatedAt(), want)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"err": "Task not found", "ECODE": "ITEM_013"}`))
	}))

	_, err := cli.GetTask(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
}

func TestListTaskSummaries(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/team/9001/task" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		for _, key := range []string{"include_closed", "subtasks", "reverse"} {
			if q.Get(key) != "true" {
				t.Errorf("query param %s = %q, want true", key, q.Get(key))
			}
		}
		if q.Get("order_by") != "updated" {
			t.Errorf("order_by = %q", q.Get("order_by"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tasks": [
			{"id": "t1", "name": "Invoice #1", "status": {"status": "open"}},
			{"id": "t2", "name": "Unrelated task", "status": {"status": "closed"}}
		]}`))
	}))

	tasks, err := cli.ListTaskSummaries(context.Background(), FilterOptions{
		IncludeClosed: true,
		Subtasks:      true,
		OrderBy:       "updated",
		Reverse:       true,
	})
	if err != nil {
		t.Fatalf("ListTaskSummaries: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestBodyTextPreference(t *testing.T) {
	task := Task{Description: "**md**", TextContent: "plain"}
	if got := task.BodyText(); got != "plain" {
		t.Fatalf("BodyText() = %q", got)
	}
	task = Task{Description: "only md"}
	if got := task.BodyText(); got != "only md" {
		t.Fatalf("BodyText() = %q", got)
	}
}
