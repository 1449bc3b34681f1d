// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/random"
)

// SessionConfig configures a SessionService.
type SessionConfig struct {
	// TTL is the absolute session lifetime. Defaults to DefaultSessionTTL.
	TTL time.Duration

	// Source supplies token bytes. It must not be shared with the
	// credential service. Defaults to a fresh random.Pool.
	Source random.Source

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SessionService mints, resolves and revokes session tokens.
type SessionService struct {
	sessions SessionRepository
	ttl      time.Duration
	source   random.Source
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions SessionRepository, cfg SessionConfig) (*SessionService, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_SERVICE_INVALID").Errorf("session repository is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Source == nil {
		pool, err := random.NewPool()
		if err != nil {
			return nil, err
		}
		cfg.Source = pool
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionService{
		sessions: sessions,
		ttl:      cfg.TTL,
		source:   cfg.Source,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Mint creates a session for userID and returns its bearer token.
// Only the token hash is persisted.
func (s *SessionService) Mint(ctx context.Context, userID int64) (string, error) {
	token, err := random.Hex(s.source, SessionTokenBytes)
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	now := s.now()
	session, err := NewSession(userID, HashToken(token), now, now.Add(s.ttl))
	if err != nil {
		return "", err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", storageErr("SESSION_STORAGE_FAILED", "create session", err)
	}

	s.logger.InfoContext(ctx, "session minted",
		"user_id", userID,
		"session_id", session.ID.String(),
		"expires_at", session.ExpiresAt)
	return token, nil
}

// Resolve returns the user owning an unexpired session token.
func (s *SessionService) Resolve(ctx context.Context, token string) (*User, error) {
	if !wellFormedToken(token, SessionTokenBytes) {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}

	user, err := s.sessions.GetUserByTokenHash(ctx, HashToken(token), s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}
	if err != nil {
		return nil, storageErr("SESSION_STORAGE_FAILED", "resolve session", err)
	}
	return user, nil
}

// Revoke deletes the session for token. Revoking an unknown or already
// revoked token succeeds.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, HashToken(token)); err != nil {
		return storageErr("SESSION_STORAGE_FAILED", "revoke session", err)
	}
	return nil
}

// wellFormedToken reports whether token is the lowercase hex encoding of n
// bytes. Malformed tokens are rejected without a storage round trip.
func wellFormedToken(token string, n int) bool {
	if len(token) != 2*n {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
