// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// AccountService manages user-editable profile fields.
type AccountService struct {
	users UserRepository
}

// NewAccountService creates an AccountService.
func NewAccountService(users UserRepository) (*AccountService, error) {
	if users == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("user repository is required")
	}
	return &AccountService{users: users}, nil
}

// UpdateDisplayName stores the trimmed name and returns it. An empty name
// clears the display name.
func (s *AccountService) UpdateDisplayName(ctx context.Context, userID int64, name string) (string, error) {
	n, err := NormalizeDisplayName(name)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateDisplayName(ctx, userID, n); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("ACCOUNT_NOT_FOUND").With("user_id", userID).Wrap(ErrInvalidSession)
		}
		return "", storageErr("AUTH_STORAGE_FAILED", "update display name", err)
	}
	return n, nil
}
