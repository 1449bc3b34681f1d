// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Field limits.
const (
	MaxEmailLength       = 254
	MaxDisplayNameLength = 100
)

// User is the identity anchor. Users are created on first successful
// credential validation and never deleted by this package.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Name returns the display name, falling back to the email address.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// CanonicalEmail trims and lower-cases an address and checks its shape.
// Every lookup and insert goes through it, so addresses match
// case-insensitively.
func CanonicalEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", oops.Code("AUTH_INVALID_INPUT").With("field", "email").Wrap(ErrInvalidInput)
	}
	if len(e) > MaxEmailLength {
		return "", oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			With("length", len(e)).
			Wrap(ErrInvalidInput)
	}
	at := strings.LastIndexByte(e, '@')
	if at <= 0 || at == len(e)-1 || strings.ContainsFunc(e, unicode.IsSpace) {
		return "", oops.Code("AUTH_INVALID_INPUT").With("field", "email").Wrap(ErrInvalidInput)
	}
	return e, nil
}

// emailDomain is safe to log.
func emailDomain(email string) string {
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		return email[at+1:]
	}
	return ""
}

// NormalizeDisplayName trims name and enforces the length limit.
// An empty result clears the display name.
func NormalizeDisplayName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if utf8.RuneCountInString(n) > MaxDisplayNameLength {
		return "", oops.Code("AUTH_INVALID_INPUT").
			With("field", "display_name").
			With("max", MaxDisplayNameLength).
			Wrap(ErrInvalidInput)
	}
	if strings.ContainsFunc(n, unicode.IsControl) {
		return "", oops.Code("AUTH_INVALID_INPUT").
			With("field", "display_name").
			Wrap(ErrInvalidInput)
	}
	return n, nil
}

// UserRepository persists users.
type UserRepository interface {
	// GetByID returns ErrNotFound when no user has the id.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail returns ErrNotFound when no user has the address.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// EnsureByEmail returns the user with email, creating it atomically if
	// it does not exist. Concurrent callers observe the same row.
	EnsureByEmail(ctx context.Context, email string) (*User, error)

	// UpdateDisplayName sets the display name; "" stores NULL.
	UpdateDisplayName(ctx context.Context, id int64, name string) error
}
