package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskapi/internal/cache"
	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/utils"
	"github.com/gin-gonic/gin"
)

type TaskStore interface {
	List(ctx context.Context) ([]task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	Create(ctx context.Context, name string) (task.Task, error)
	Update(ctx context.Context, id int64, name string) (task.Task, error)
	Delete(ctx context.Context, id int64) error
}

type TasksHandler struct {
	repo  TaskStore
	cache *cache.TaskList
}

// NewTasksHandler builds the task endpoints. listCache may be nil.
func NewTasksHandler(repo TaskStore, listCache *cache.TaskList) *TasksHandler {
	return &TasksHandler{repo: repo, cache: listCache}
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	var gen uint64

	if h.cache != nil {
		cached, g, ok := h.cache.Lookup(ctx.Request.Context())
		if ok {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
		gen = g
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	tasks, err := h.repo.List(cctx)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "list_tasks_failed", "err", err)
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	// always an array, never null
	if tasks == nil {
		tasks = []task.Task{}
	}

	if h.cache != nil {
		h.cache.Fill(ctx.Request.Context(), gen, tasks)
	}

	RespondJSONWithETag(ctx, http.StatusOK, tasks)
}

func (h *TasksHandler) GetTaskByID(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "get_task_failed", "err", err, "task_id", id)
		RespondInternal(ctx, "Could not fetch task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	var req task.WriteTaskRequest

	if !BindBody(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, req.Name)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "create_task_failed", "err", err)
		RespondInternal(ctx, "Could not create task")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusCreated, t)
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	var req task.WriteTaskRequest

	if !BindBody(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	t, err := h.repo.Update(cctx, id, req.Name)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "update_task_failed", "err", err, "task_id", id)
		RespondInternal(ctx, "Could not update task")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, t)
}

// DeleteTask reports success whether or not a row matched.
func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	id, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "delete_task_failed", "err", err, "task_id", id)
		RespondInternal(ctx, "Could not delete task")
		return
	}

	h.invalidate(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

func (h *TasksHandler) invalidate(ctx *gin.Context) {
	if h.cache != nil {
		h.cache.Invalidate(ctx.Request.Context())
	}
}

func taskIDParam(ctx *gin.Context) (int64, bool) {
	id, err := utils.ParseID(ctx.Param("id"))
	if err != nil {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "Task id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
