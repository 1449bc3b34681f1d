// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

const credentialColumns = `id, user_id, email, link_token_hash, code_hash, expires_at, used, failed_attempts, created_at`

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	db store.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db store.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create stores a new credential. A ForNewEmail owner is stored as a NULL
// user_id.
func (r *CredentialRepository) Create(ctx context.Context, c *auth.Credential) error {
	var userID *int64
	if o, ok := c.Owner.(auth.ForExistingUser); ok {
		userID = &o.UserID
	}

	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO login_credentials (id, user_id, email, link_token_hash, code_hash, expires_at, used, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		c.ID.String(),
		userID,
		c.Email,
		c.LinkHash,
		c.CodeHash,
		c.ExpiresAt,
		c.Used,
		c.FailedAttempts,
		c.CreatedAt,
	)
	if err != nil {
		errb := oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "insert login_credential").
			With("id", c.ID.String())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			errb = errb.With("constraint", pgErr.ConstraintName)
		}
		return errb.Wrap(err)
	}
	return nil
}

// GetActiveByLinkHash retrieves the active credential for a link hash.
func (r *CredentialRepository) GetActiveByLinkHash(ctx context.Context, linkHash string, now time.Time) (*auth.Credential, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM login_credentials
		WHERE link_token_hash = $1 AND NOT used AND expires_at > $2
	`, linkHash, now)

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential by link hash").
			Wrap(err)
	}
	return c, nil
}

// GetLatestActiveByEmail retrieves the newest active credential for email.
func (r *CredentialRepository) GetLatestActiveByEmail(ctx context.Context, email string, now time.Time) (*auth.Credential, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM login_credentials
		WHERE email = $1 AND NOT used AND expires_at > $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email, now)

	c, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get latest credential by email").
			Wrap(err)
	}
	return c, nil
}

// Consume marks the credential used if it is still active.
func (r *CredentialRepository) Consume(ctx context.Context, id ulid.ULID, now time.Time) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE login_credentials SET used = TRUE
		WHERE id = $1 AND NOT used AND expires_at > $2
	`, id.String(), now)
	if err != nil {
		return oops.Code("CREDENTIAL_CONSUME_FAILED").
			With("operation", "consume login_credential").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordCodeAttempt counts one code guess if fewer than limit were made.
func (r *CredentialRepository) RecordCodeAttempt(ctx context.Context, id ulid.ULID, limit int) (int, error) {
	var count int
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE login_credentials SET failed_attempts = failed_attempts + 1
		WHERE id = $1 AND NOT used AND failed_attempts < $2
		RETURNING failed_attempts
	`, id.String(), limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("CREDENTIAL_ATTEMPT_FAILED").
			With("operation", "increment failed_attempts").
			With("id", id.String()).
			Wrap(err)
	}
	return count, nil
}

// RefundCodeAttempt gives back one counted guess.
func (r *CredentialRepository) RefundCodeAttempt(ctx context.Context, id ulid.ULID) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE login_credentials SET failed_attempts = failed_attempts - 1
		WHERE id = $1 AND NOT used AND failed_attempts > 0
	`, id.String())
	if err != nil {
		return oops.Code("CREDENTIAL_REFUND_FAILED").
			With("operation", "decrement failed_attempts").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes credentials whose expiry is not after now.
func (r *CredentialRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := store.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM login_credentials WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("CREDENTIAL_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired login_credentials").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanCredential(row pgx.Row) (*auth.Credential, error) {
	var (
		c      auth.Credential
		idStr  string
		userID *int64
	)
	if err := row.Scan(&idStr, &userID, &c.Email, &c.LinkHash, &c.CodeHash,
		&c.ExpiresAt, &c.Used, &c.FailedAttempts, &c.CreatedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_PARSE_ID_FAILED").With("id", idStr).Wrap(err)
	}
	c.ID = id
	if userID != nil {
		c.Owner = auth.ForExistingUser{UserID: *userID}
	} else {
		c.Owner = auth.ForNewEmail{Email: c.Email}
	}
	return &c, nil
}
