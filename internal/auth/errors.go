// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors. Service errors wrap one of these so callers can use
// errors.Is regardless of the oops code attached.
var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput reports a malformed email, code or token.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredential covers unknown, expired and already used
	// credentials. They are deliberately indistinguishable.
	ErrInvalidCredential = errors.New("invalid or expired")

	// ErrAttemptLimitExceeded reports that a code was burned after too many
	// wrong guesses.
	ErrAttemptLimitExceeded = errors.New("too many attempts")

	// ErrRateLimited reports that the caller exceeded the login rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidSession covers unknown and expired sessions.
	ErrInvalidSession = errors.New("invalid session")

	// ErrStorage reports a persistence failure.
	ErrStorage = errors.New("storage failure")
)

func invalidCredential() error {
	return oops.Code("AUTH_INVALID_CREDENTIAL").Wrap(ErrInvalidCredential)
}

func storageErr(code, operation string, err error) error {
	return oops.Code(code).
		With("operation", operation).
		Wrap(errors.Join(ErrStorage, err))
}

// RateLimited builds the error returned when a login request is throttled.
func RateLimited() error {
	return oops.Code("AUTH_RATE_LIMITED").Wrap(ErrRateLimited)
}
