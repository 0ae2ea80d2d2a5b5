package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TasksRepo) List(ctx context.Context) ([]task.Task, error) {
	output := make([]task.Task, 0)

	err := r.prom.ObserveDB(ctx, "tasks.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name FROM tasks ORDER BY id ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t task.Task

			if err := rows.Scan(&t.ID, &t.Name); err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB(ctx, "tasks.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT id, name FROM tasks WHERE id = $1`, id).Scan(&t.ID, &t.Name)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, name string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB(ctx, "tasks.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO tasks (name) VALUES ($1) RETURNING id, name`,
			name,
		).Scan(&t.ID, &t.Name)
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, id int64, name string) (task.Task, error) {
	var t task.Task

	err := r.prom.ObserveDB(ctx, "tasks.update", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE tasks
			SET name = $1
			WHERE id = $2
			RETURNING id, name`,
			name,
			id,
		).Scan(&t.ID, &t.Name)
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		// if it is any other type of error
		return task.Task{}, err
	}

	return t, nil
}

// Delete removes the row if present. A missing id is not an error.
func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	return r.prom.ObserveDB(ctx, "tasks.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return err
	})
}
