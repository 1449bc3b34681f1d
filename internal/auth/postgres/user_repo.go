// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

const userColumns = `id, email, COALESCE(display_name, ''), created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	u, err := scanUser(store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return u, nil
}

// GetByEmail retrieves a user by canonical email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := scanUser(store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return u, nil
}

// EnsureByEmail inserts the user or returns the existing row. The no-op
// update makes RETURNING produce the row in both cases.
func (r *UserRepository) EnsureByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := scanUser(store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO users (email) VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+userColumns, email))
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "upsert user").
			Wrap(err)
	}
	return u, nil
}

// UpdateDisplayName sets or clears the display name.
func (r *UserRepository) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx,
		`UPDATE users SET display_name = NULLIF($2, '') WHERE id = $1`, id, name)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update display_name").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}
