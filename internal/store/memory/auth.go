// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
)

type userRepo Store

func (r *userRepo) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	defer (*Store)(r).lock(ctx)()
	u, ok := r.st.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	defer (*Store)(r).lock(ctx)()
	id, ok := r.st.userByEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u := r.st.users[id]
	return &u, nil
}

func (r *userRepo) EnsureByEmail(ctx context.Context, email string) (*auth.User, error) {
	defer (*Store)(r).lock(ctx)()
	if id, ok := r.st.userByEmail[email]; ok {
		u := r.st.users[id]
		return &u, nil
	}
	r.st.nextUserID++
	u := auth.User{ID: r.st.nextUserID, Email: email, CreatedAt: r.now()}
	r.st.users[u.ID] = u
	r.st.userByEmail[email] = u.ID
	return &u, nil
}

func (r *userRepo) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	defer (*Store)(r).lock(ctx)()
	u, ok := r.st.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	u.DisplayName = name
	r.st.users[id] = u
	return nil
}

type credentialRepo Store

func (r *credentialRepo) Create(ctx context.Context, c *auth.Credential) error {
	defer (*Store)(r).lock(ctx)()
	if _, ok := r.st.creds[c.ID]; ok {
		return oops.Code("CREDENTIAL_CREATE_FAILED").With("id", c.ID.String()).Errorf("credential already exists")
	}
	r.st.creds[c.ID] = *c
	return nil
}

func (r *credentialRepo) GetActiveByLinkHash(ctx context.Context, linkHash string, now time.Time) (*auth.Credential, error) {
	defer (*Store)(r).lock(ctx)()
	for _, c := range r.st.creds {
		if c.LinkHash == linkHash && c.ActiveAt(now) {
			return &c, nil
		}
	}
	return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r *credentialRepo) GetLatestActiveByEmail(ctx context.Context, email string, now time.Time) (*auth.Credential, error) {
	defer (*Store)(r).lock(ctx)()
	var latest *auth.Credential
	for _, c := range r.st.creds {
		if c.Email != email || !c.ActiveAt(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID.Compare(latest.ID) > 0) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return latest, nil
}

func (r *credentialRepo) Consume(ctx context.Context, id ulid.ULID, now time.Time) error {
	defer (*Store)(r).lock(ctx)()
	c, ok := r.st.creds[id]
	if !ok || !c.ActiveAt(now) {
		return oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	c.Used = true
	r.st.creds[id] = c
	return nil
}

func (r *credentialRepo) RecordCodeAttempt(ctx context.Context, id ulid.ULID, limit int) (int, error) {
	defer (*Store)(r).lock(ctx)()
	c, ok := r.st.creds[id]
	if !ok || c.Used || c.FailedAttempts >= limit {
		return 0, oops.Code("CREDENTIAL_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	c.FailedAttempts++
	r.st.creds[id] = c
	return c.FailedAttempts, nil
}

func (r *credentialRepo) RefundCodeAttempt(ctx context.Context, id ulid.ULID) error {
	defer (*Store)(r).lock(ctx)()
	c, ok := r.st.creds[id]
	if !ok || c.Used || c.FailedAttempts == 0 {
		return nil
	}
	c.FailedAttempts--
	r.st.creds[id] = c
	return nil
}

func (r *credentialRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer (*Store)(r).lock(ctx)()
	var n int64
	for id, c := range r.st.creds {
		if !now.Before(c.ExpiresAt) {
			delete(r.st.creds, id)
			n++
		}
	}
	return n, nil
}

type sessionRepo Store

func (r *sessionRepo) Create(ctx context.Context, s *auth.Session) error {
	defer (*Store)(r).lock(ctx)()
	if _, ok := r.st.users[s.UserID]; !ok {
		return oops.Code("SESSION_CREATE_FAILED").With("user_id", s.UserID).Errorf("user does not exist")
	}
	if _, ok := r.st.sessions[s.TokenHash]; ok {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("token hash already exists")
	}
	r.st.sessions[s.TokenHash] = *s
	return nil
}

func (r *sessionRepo) GetUserByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*auth.User, error) {
	defer (*Store)(r).lock(ctx)()
	s, ok := r.st.sessions[tokenHash]
	if !ok || s.IsExpiredAt(now) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u, ok := r.st.users[s.UserID]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

func (r *sessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	defer (*Store)(r).lock(ctx)()
	delete(r.st.sessions, tokenHash)
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer (*Store)(r).lock(ctx)()
	var n int64
	for hash, s := range r.st.sessions {
		if s.IsExpiredAt(now) {
			delete(r.st.sessions, hash)
			n++
		}
	}
	return n, nil
}
