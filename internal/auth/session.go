// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32 // 64 hex chars
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// Session binds a bearer token to a user until ExpiresAt.
type Session struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID int64, tokenHash string, createdAt, expiresAt time.Time) (*Session, error) {
	if userID <= 0 {
		return nil, oops.Code("SESSION_INVALID_USER").With("user_id", userID).Errorf("user id must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}
	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt reports whether the session is expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// SessionRepository persists sessions.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// GetUserByTokenHash joins the session to its user, ignoring sessions
	// expired at now. It returns ErrNotFound when there is no match.
	GetUserByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*User, error)

	// DeleteByTokenHash removes the session if present. Deleting a missing
	// session is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes sessions that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
