package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/taskapi/internal/cache"
	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// Fake repository implementing handlers.TaskStore

type fakeTasksRepo struct {
	listFn   func(ctx context.Context) ([]task.Task, error)
	getFn    func(ctx context.Context, id int64) (task.Task, error)
	createFn func(ctx context.Context, name string) (task.Task, error)
	updateFn func(ctx context.Context, id int64, name string) (task.Task, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (f *fakeTasksRepo) List(ctx context.Context) ([]task.Task, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeTasksRepo) GetByID(ctx context.Context, id int64) (task.Task, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return task.Task{}, task.ErrNotFound
}

func (f *fakeTasksRepo) Create(ctx context.Context, name string) (task.Task, error) {
	if f.createFn != nil {
		return f.createFn(ctx, name)
	}
	return task.Task{ID: 1, Name: name}, nil
}

func (f *fakeTasksRepo) Update(ctx context.Context, id int64, name string) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, name)
	}
	return task.Task{ID: id, Name: name}, nil
}

func (f *fakeTasksRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// small helper which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTasksHandler(t *testing.T) {
	tests := []struct {
		name       string
		listFn     func(ctx context.Context) ([]task.Task, error)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "empty_is_array",
			listFn:     func(context.Context) ([]task.Task, error) { return nil, nil },
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name: "rows",
			listFn: func(context.Context) ([]task.Task, error) {
				return []task.Task{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`,
		},
		{
			name:       "store_failure",
			listFn:     func(context.Context) ([]task.Task, error) { return nil, errors.New("boom") },
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewTasksHandler(&fakeTasksRepo{listFn: tt.listFn}, nil)
			w := doRequest(setupRouter(http.MethodGet, "/tasks", h.ListTasks), http.MethodGet, "/tasks", "")

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestListTasksHandler_ETag(t *testing.T) {
	repo := &fakeTasksRepo{listFn: func(context.Context) ([]task.Task, error) {
		return []task.Task{{ID: 1, Name: "a"}}, nil
	}}
	r := setupRouter(http.MethodGet, "/tasks", handlers.NewTasksHandler(repo, nil).ListTasks)

	first := doRequest(r, http.MethodGet, "/tasks", "")
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", w.Code)
	}
}

func TestListTasksHandler_CacheInvalidatedByWrites(t *testing.T) {
	calls := 0
	rows := []task.Task{{ID: 1, Name: "a"}}

	repo := &fakeTasksRepo{
		listFn: func(context.Context) ([]task.Task, error) {
			calls++
			return rows, nil
		},
		createFn: func(ctx context.Context, name string) (task.Task, error) {
			created := task.Task{ID: int64(len(rows) + 1), Name: name}
			rows = append(rows, created)
			return created, nil
		},
	}

	h := handlers.NewTasksHandler(repo, cache.NewTaskList(cache.NewMemory(), time.Minute, nil))

	r := gin.New()
	r.GET("/tasks", h.ListTasks)
	r.POST("/tasks", h.CreateTask)

	doRequest(r, http.MethodGet, "/tasks", "")
	doRequest(r, http.MethodGet, "/tasks", "")
	if calls != 1 {
		t.Fatalf("second list should be served from cache, repo calls = %d", calls)
	}

	if w := doRequest(r, http.MethodPost, "/tasks", `{"name":"b"}`); w.Code != http.StatusCreated {
		t.Fatalf("create got %d", w.Code)
	}

	w := doRequest(r, http.MethodGet, "/tasks", "")
	if calls != 2 {
		t.Fatalf("list after write must hit the store, repo calls = %d", calls)
	}

	var got []task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(got) != 2 || got[1].Name != "b" {
		t.Fatalf("stale list returned: %+v", got)
	}
}

func TestGetTaskByIDHandler(t *testing.T) {
	repo := &fakeTasksRepo{getFn: func(ctx context.Context, id int64) (task.Task, error) {
		if id == 1 {
			return task.Task{ID: 1, Name: "a"}, nil
		}
		return task.Task{}, task.ErrNotFound
	}}
	r := setupRouter(http.MethodGet, "/tasks/:id", handlers.NewTasksHandler(repo, nil).GetTaskByID)

	tests := []struct {
		path string
		want int
	}{
		{"/tasks/1", http.StatusOK},
		{"/tasks/2", http.StatusNotFound},
		{"/tasks/abc", http.StatusBadRequest},
		{"/tasks/0", http.StatusBadRequest},
		{"/tasks/-4", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := doRequest(r, http.MethodGet, tt.path, ""); w.Code != tt.want {
				t.Fatalf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCreateTaskHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFn   func(ctx context.Context, name string) (task.Task, error)
		wantStatus int
		wantName   string
	}{
		{name: "created", body: `{"name":"X"}`, wantStatus: http.StatusCreated, wantName: "X"},
		{name: "empty_name_allowed", body: `{"name":""}`, wantStatus: http.StatusCreated, wantName: ""},
		{name: "missing_name_allowed", body: `{}`, wantStatus: http.StatusCreated, wantName: ""},
		{name: "bad_json", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{
			name: "store_failure",
			body: `{"name":"X"}`,
			createFn: func(context.Context, string) (task.Task, error) {
				return task.Task{}, errors.New("insert failed")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewTasksHandler(&fakeTasksRepo{createFn: tt.createFn}, nil)
			w := doRequest(setupRouter(http.MethodPost, "/tasks", h.CreateTask), http.MethodPost, "/tasks", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				var got task.Task
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("bad body: %v", err)
				}
				if got.ID <= 0 || got.Name != tt.wantName {
					t.Fatalf("unexpected task %+v", got)
				}
			}
		})
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	repo := &fakeTasksRepo{updateFn: func(ctx context.Context, id int64, name string) (task.Task, error) {
		if id == 5 {
			return task.Task{ID: 5, Name: name}, nil
		}
		return task.Task{}, task.ErrNotFound
	}}
	r := setupRouter(http.MethodPut, "/tasks/:id", handlers.NewTasksHandler(repo, nil).UpdateTask)

	tests := []struct {
		name        string
		path        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{name: "updated", path: "/tasks/5", body: `{"name":"Y"}`, wantStatus: http.StatusOK},
		{name: "missing", path: "/tasks/6", body: `{"name":"Y"}`, wantStatus: http.StatusNotFound, wantMessage: "Task not found"},
		{name: "bad_id", path: "/tasks/x", body: `{"name":"Y"}`, wantStatus: http.StatusBadRequest},
		{name: "bad_body", path: "/tasks/5", body: `[`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPut, tt.path, tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}

			body := decodeBody(t, w)
			if tt.wantMessage != "" && body["message"] != tt.wantMessage {
				t.Fatalf("message = %v, want %s", body["message"], tt.wantMessage)
			}
			if tt.wantStatus == http.StatusOK && (body["id"] != float64(5) || body["name"] != "Y") {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		deleteErr  error
		wantStatus int
	}{
		{name: "existing", path: "/tasks/1", wantStatus: http.StatusOK},
		{name: "missing_still_succeeds", path: "/tasks/999", wantStatus: http.StatusOK},
		{name: "bad_id", path: "/tasks/nope", wantStatus: http.StatusBadRequest},
		{name: "store_failure", path: "/tasks/1", deleteErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeTasksRepo{deleteFn: func(context.Context, int64) error { return tt.deleteErr }}
			r := setupRouter(http.MethodDelete, "/tasks/:id", handlers.NewTasksHandler(repo, nil).DeleteTask)

			w := doRequest(r, http.MethodDelete, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				if body := decodeBody(t, w); body["message"] != "Task deleted" {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandlers(t *testing.T) {
	ok := handlers.NewHealthHandler(map[string]handlers.Pinger{"db": fakePinger{}, "redis": nil})
	down := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"db": handlers.PingFunc(func(context.Context) error { return errors.New("refused") }),
	})

	if w := doRequest(setupRouter(http.MethodGet, "/healthz", down.Healthz), http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz got %d", w.Code)
	}
	if w := doRequest(setupRouter(http.MethodGet, "/readyz", ok.Readyz), http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz got %d", w.Code)
	}
	if w := doRequest(setupRouter(http.MethodGet, "/readyz", down.Readyz), http.MethodGet, "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing db got %d", w.Code)
	}

	w := doRequest(setupRouter(http.MethodGet, "/", handlers.Root), http.MethodGet, "/", "")
	if w.Code != http.StatusOK || w.Body.String() != "Backend is working" {
		t.Fatalf("root got %d %q", w.Code, w.Body.String())
	}
}
