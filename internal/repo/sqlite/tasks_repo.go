package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/observability"
)

type TasksRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewTasksRepo(db *sql.DB, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{db: db, prom: prom}
}

func (r *TasksRepo) List(ctx context.Context) ([]task.Task, error) {
	out := make([]task.Task, 0)

	err := r.prom.ObserveDB(ctx, "tasks.list", func() error {
		rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tasks ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t task.Task
			if err := rows.Scan(&t.ID, &t.Name); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (task.Task, error) {
	return r.scanOne(ctx, "tasks.get_by_id", `SELECT id, name FROM tasks WHERE id = ?`, id)
}

func (r *TasksRepo) Create(ctx context.Context, name string) (task.Task, error) {
	return r.scanOne(ctx, "tasks.create", `INSERT INTO tasks (name) VALUES (?) RETURNING id, name`, name)
}

func (r *TasksRepo) Update(ctx context.Context, id int64, name string) (task.Task, error) {
	return r.scanOne(ctx, "tasks.update", `UPDATE tasks SET name = ? WHERE id = ? RETURNING id, name`, name, id)
}

// Delete removes the row if present. A missing id is not an error.
func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	err := r.prom.ObserveDB(ctx, "tasks.delete", func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TasksRepo) scanOne(ctx context.Context, op, query string, args ...any) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB(ctx, op, func() error {
		return r.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Name)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
