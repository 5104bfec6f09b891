package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// The helpers below take a sqlx query/exec handle so the same SQL runs on the
// pool or inside a ledger transaction.

// EnsureByEmail returns the user for email, inserting it on first touch.
func EnsureByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*User, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, uuid.New(), email)
	if err != nil {
		return nil, fmt.Errorf("user ensure: %w", err)
	}
	return GetByEmail(ctx, q, email)
}

// GetByEmail returns user by normalized email
func GetByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (*User, error) {
	var u User
	err := sqlx.GetContext(ctx, q, &u, `SELECT id, email, created_at FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user get by email: %w", err)
	}
	return &u, nil
}

// GetByID returns user by ID
func GetByID(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*User, error) {
	var u User
	err := sqlx.GetContext(ctx, q, &u, `SELECT id, email, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user get by id: %w", err)
	}
	return &u, nil
}

// Delete removes the user row; dependent rows go with it through ON DELETE CASCADE.
func Delete(ctx context.Context, q sqlx.ExecerContext, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
