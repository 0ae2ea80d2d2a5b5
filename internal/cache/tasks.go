package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/observability"
)

const taskListKey = "tasks:list:v1"

// TaskList caches the full GET /tasks result. Every write invalidates it.
//
// Fill carries the generation observed at lookup time, so a list read from the
// database before a concurrent write cannot be stored after that write's invalidation.
// fillMu makes the generation check and the store write one step relative to Invalidate.
type TaskList struct {
	store  Store
	ttl    time.Duration
	prom   *observability.Prom
	gen    atomic.Uint64
	fillMu sync.Mutex
}

func NewTaskList(store Store, ttl time.Duration, prom *observability.Prom) *TaskList {
	return &TaskList{store: store, ttl: ttl, prom: prom}
}

// Lookup returns the cached list, if any, plus a generation token for Fill.
// Store errors are logged and treated as a miss.
func (c *TaskList) Lookup(ctx context.Context) ([]task.Task, uint64, bool) {
	gen := c.gen.Load()

	raw, ok, err := c.store.Get(ctx, taskListKey)
	if err != nil {
		c.prom.IncCache("error")
		slog.Default().WarnContext(ctx, "task_cache_get_failed", "err", err)
		return nil, gen, false
	}
	if !ok {
		c.prom.IncCache("miss")
		return nil, gen, false
	}

	var tasks []task.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		c.prom.IncCache("error")
		_ = c.store.Delete(ctx, taskListKey)
		return nil, gen, false
	}

	c.prom.IncCache("hit")
	return tasks, gen, true
}

func (c *TaskList) Fill(ctx context.Context, gen uint64, tasks []task.Task) {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	c.fillMu.Lock()
	defer c.fillMu.Unlock()

	if c.gen.Load() != gen {
		return
	}

	if err := c.store.Set(ctx, taskListKey, raw, c.ttl); err != nil {
		slog.Default().WarnContext(ctx, "task_cache_set_failed", "err", err)
	}
}

// Invalidate waits for any in-flight Fill, so once it returns no older list can be stored.
func (c *TaskList) Invalidate(ctx context.Context) {
	c.fillMu.Lock()
	defer c.fillMu.Unlock()

	c.gen.Add(1)

	if err := c.store.Delete(ctx, taskListKey); err != nil {
		slog.Default().WarnContext(ctx, "task_cache_invalidate_failed", "err", err)
	}
}
