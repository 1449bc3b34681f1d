// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credential defaults.
const (
	LinkTokenBytes         = 32 // 64 hex chars
	DefaultCodeLength      = 6
	DefaultCredentialTTL   = 15 * time.Minute
	DefaultMaxCodeAttempts = 5
)

// CredentialOwner says who a credential signs in.
// It is either ForExistingUser or ForNewEmail.
type CredentialOwner interface {
	credentialOwner()
}

// ForExistingUser is the owner of a credential issued to a known user.
type ForExistingUser struct {
	UserID int64
}

// ForNewEmail is the owner of a credential issued to an address with no
// user yet. The user is provisioned when the credential is validated.
type ForNewEmail struct {
	Email string
}

func (ForExistingUser) credentialOwner() {}
func (ForNewEmail) credentialOwner()     {}

// Credential is one issuance of a magic link and its sibling code.
type Credential struct {
	ID             ulid.ULID
	Email          string
	Owner          CredentialOwner
	LinkHash       string
	CodeHash       string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	Used           bool
	FailedAttempts int
}

// NewCredential creates a validated, unused Credential.
func NewCredential(email string, owner CredentialOwner, linkHash, codeHash string, createdAt, expiresAt time.Time) (*Credential, error) {
	if email == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	switch o := owner.(type) {
	case ForExistingUser:
		if o.UserID <= 0 {
			return nil, oops.Code("CREDENTIAL_INVALID_OWNER").With("user_id", o.UserID).Errorf("user id must be positive")
		}
	case ForNewEmail:
		if o.Email != email {
			return nil, oops.Code("CREDENTIAL_INVALID_OWNER").Errorf("owner email does not match credential email")
		}
	default:
		return nil, oops.Code("CREDENTIAL_INVALID_OWNER").Errorf("owner is required")
	}
	if linkHash == "" || codeHash == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_HASH").Errorf("token hashes cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("CREDENTIAL_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}
	return &Credential{
		ID:        ulid.Make(),
		Email:     email,
		Owner:     owner,
		LinkHash:  linkHash,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// ActiveAt reports whether the credential can still be validated at t.
func (c *Credential) ActiveAt(t time.Time) bool {
	return !c.Used && t.Before(c.ExpiresAt)
}

// HashToken returns the hex SHA-256 of a link or session token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// HashCode hashes a login code. Codes compare case-insensitively.
func HashCode(code string) string {
	return HashToken(strings.ToUpper(strings.TrimSpace(code)))
}

// VerifyHash compares two hashes in constant time.
func VerifyHash(computed, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

// CredentialRepository persists login credentials.
type CredentialRepository interface {
	// Create stores a new credential.
	Create(ctx context.Context, c *Credential) error

	// GetActiveByLinkHash returns the unused credential with the link hash
	// that has not expired at now, or ErrNotFound.
	GetActiveByLinkHash(ctx context.Context, linkHash string, now time.Time) (*Credential, error)

	// GetLatestActiveByEmail returns the most recently created unused,
	// unexpired credential for email, or ErrNotFound.
	GetLatestActiveByEmail(ctx context.Context, email string, now time.Time) (*Credential, error)

	// Consume marks an active credential used. It returns ErrNotFound when
	// the credential is already used or expired, so exactly one caller wins.
	Consume(ctx context.Context, id ulid.ULID, now time.Time) error

	// RecordCodeAttempt atomically increments the failure counter while it
	// is below limit and the credential is unused, returning the new count.
	// It returns ErrNotFound when no increment happened.
	RecordCodeAttempt(ctx context.Context, id ulid.ULID, limit int) (int, error)

	// RefundCodeAttempt takes back one recorded guess on an unused
	// credential. It is a no-op when the counter is already zero.
	RefundCodeAttempt(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes credentials that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactor runs fn inside one storage transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
