package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskapi/internal/domain/user"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

// Create inserts a user and lets the database assign the id.
// A duplicate username surfaces as user.ErrUsernameTaken.
func (r *UsersRepo) Create(ctx context.Context, username, passwordHash string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(ctx, "users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (username, password_hash)
			VALUES ($1, $2)
			RETURNING id, username, password_hash, created_at`,
			username, passwordHash,
		).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrUsernameTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_username",
		`SELECT id, username, password_hash, created_at
         FROM users
         WHERE username = $1`,
		username,
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT id, username, password_hash, created_at
         FROM users
         WHERE id = $1`,
		id,
	)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg any) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(ctx, op, func() error {
		return r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {

			return user.User{}, user.ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
