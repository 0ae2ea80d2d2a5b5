package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// users belongs to this service and is always ensured at startup.
const usersTable = `CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_uniq UNIQUE (username)
)`

// tasks normally exists before the service starts; it is only created on request.
const tasksTable = `CREATE TABLE IF NOT EXISTS tasks (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
)`

// EnsureUsers creates the users table when it is missing.
func EnsureUsers(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, usersTable); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	return nil
}

// EnsureSchema creates the users and tasks tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := EnsureUsers(ctx, pool); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, tasksTable); err != nil {
		return fmt.Errorf("ensure tasks table: %w", err)
	}
	return nil
}
