// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/store/memory"
	"github.com/dailypuzzle/dailypuzzle/pkg/errutil"
)

func TestCanonicalEmail(t *testing.T) {
	got, err := auth.CanonicalEmail("  Ada@Example.ORG ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", got)

	_, err = auth.CanonicalEmail(strings.Repeat("x", auth.MaxEmailLength) + "@a.b")
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_INPUT")
	errutil.AssertErrorContext(t, err, "field", "email")
}

func TestUser_Name(t *testing.T) {
	assert.Equal(t, "a@example.com", (&auth.User{Email: "a@example.com"}).Name())
	assert.Equal(t, "Ada", (&auth.User{Email: "a@example.com", DisplayName: "Ada"}).Name())
}

func TestNormalizeDisplayName(t *testing.T) {
	n, err := auth.NormalizeDisplayName("  Ada Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", n)

	n, err = auth.NormalizeDisplayName("   ")
	require.NoError(t, err)
	assert.Empty(t, n)

	_, err = auth.NormalizeDisplayName(strings.Repeat("é", auth.MaxDisplayNameLength))
	require.NoError(t, err, "limit counts runes, not bytes")

	_, err = auth.NormalizeDisplayName(strings.Repeat("a", auth.MaxDisplayNameLength+1))
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	_, err = auth.NormalizeDisplayName("bad\x00name")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}

func TestAccountService_UpdateDisplayName(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc, err := auth.NewAccountService(st.Users())
	require.NoError(t, err)

	u, err := st.Users().EnsureByEmail(ctx, "a@example.com")
	require.NoError(t, err)

	name, err := svc.UpdateDisplayName(ctx, u.ID, "  Ada ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	got, err := st.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)

	name, err = svc.UpdateDisplayName(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = svc.UpdateDisplayName(ctx, 999, "Ghost")
	require.ErrorIs(t, err, auth.ErrInvalidSession)
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")

	_, err = auth.NewAccountService(nil)
	assert.Error(t, err)
}

func TestNewCredential_Validation(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	tests := []struct {
		name  string
		email string
		owner auth.CredentialOwner
		link  string
		code  string
		exp   time.Time
		want  string
	}{
		{"empty email", "", auth.ForNewEmail{}, "l", "c", later, "CREDENTIAL_INVALID_EMAIL"},
		{"nil owner", "a@x.io", nil, "l", "c", later, "CREDENTIAL_INVALID_OWNER"},
		{"bad user id", "a@x.io", auth.ForExistingUser{UserID: 0}, "l", "c", later, "CREDENTIAL_INVALID_OWNER"},
		{"owner email mismatch", "a@x.io", auth.ForNewEmail{Email: "b@x.io"}, "l", "c", later, "CREDENTIAL_INVALID_OWNER"},
		{"missing hash", "a@x.io", auth.ForNewEmail{Email: "a@x.io"}, "", "c", later, "CREDENTIAL_INVALID_HASH"},
		{"expiry not after creation", "a@x.io", auth.ForNewEmail{Email: "a@x.io"}, "l", "c", now, "CREDENTIAL_INVALID_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewCredential(tt.email, tt.owner, tt.link, tt.code, now, tt.exp)
			errutil.AssertErrorCode(t, err, tt.want)
		})
	}

	c, err := auth.NewCredential("a@x.io", auth.ForExistingUser{UserID: 3}, "l", "c", now, later)
	require.NoError(t, err)
	assert.True(t, c.ActiveAt(now))
	assert.False(t, c.ActiveAt(later))
	c.Used = true
	assert.False(t, c.ActiveAt(now))
}

func TestHashCode_CaseInsensitive(t *testing.T) {
	assert.Equal(t, auth.HashCode("ABC234"), auth.HashCode(" abc234 "))
	assert.NotEqual(t, auth.HashCode("ABC234"), auth.HashToken("abc234"))
	assert.True(t, auth.VerifyHash(auth.HashToken("x"), auth.HashToken("x")))
	assert.False(t, auth.VerifyHash(auth.HashToken("x"), auth.HashToken("y")))
}

func TestNewSession_Validation(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := auth.NewSession(0, "h", now, now.Add(time.Hour))
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
	_, err = auth.NewSession(1, "", now, now.Add(time.Hour))
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_HASH")
	_, err = auth.NewSession(1, "h", now, now)
	errutil.AssertErrorCode(t, err, "SESSION_INVALID_EXPIRY")

	s, err := auth.NewSession(1, "h", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, s.IsExpiredAt(now))
	assert.True(t, s.IsExpiredAt(now.Add(time.Hour)))
}
