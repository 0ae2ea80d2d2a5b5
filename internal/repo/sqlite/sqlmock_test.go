package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/geocoder89/taskapi/internal/domain/task"
	"github.com/geocoder89/taskapi/internal/domain/user"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *UsersRepo, *TasksRepo, *observability.Prom) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	prom := observability.NewProm(prometheus.NewRegistry())
	return mock, NewUsersRepo(db, prom), NewTasksRepo(db, prom), prom
}

func TestUsersRepo_UniqueViolationMapsToTaken(t *testing.T) {
	mock, users, _, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "hash", sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))

	_, err := users.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, user.ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_StorageErrorIsWrapped(t *testing.T) {
	mock, users, _, prom := newMock(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("alice").
		WillReturnError(boom)

	_, err := users.GetByUsername(context.Background(), "alice")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, user.ErrUserNotFound)
	require.Equal(t, 1, testutil.CollectAndCount(prom.DbErrorsTotal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTasksRepo_ListErrorIsReturned(t *testing.T) {
	mock, _, tasks, _ := newMock(t)
	boom := errors.New("database is locked")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM tasks ORDER BY id ASC")).
		WillReturnError(boom)

	got, err := tasks.List(context.Background())
	require.ErrorIs(t, err, boom)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTasksRepo_UpdateNoRowsIsNotFound(t *testing.T) {
	mock, _, tasks, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET name = ? WHERE id = ? RETURNING id, name")).
		WithArgs("n", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := tasks.Update(context.Background(), 3, "n")
	require.ErrorIs(t, err, task.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTasksRepo_DeleteZeroRowsSucceeds(t *testing.T) {
	mock, _, tasks, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, tasks.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
