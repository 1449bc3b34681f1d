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

// maxCodeInput bounds the code string accepted before hashing.
const maxCodeInput = 64

// CredentialConfig configures a CredentialService.
type CredentialConfig struct {
	// TTL is the credential lifetime. Defaults to DefaultCredentialTTL.
	TTL time.Duration

	// CodeLength defaults to DefaultCodeLength.
	CodeLength int

	// MaxCodeAttempts is the number of code guesses allowed per issuance.
	// Defaults to DefaultMaxCodeAttempts.
	MaxCodeAttempts int

	// Source supplies token bytes. Defaults to a fresh random.Pool.
	Source random.Source

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// CredentialService issues and validates login credentials.
type CredentialService struct {
	users       UserRepository
	creds       CredentialRepository
	sessions    *SessionService
	tx          Transactor
	ttl         time.Duration
	codeLength  int
	maxAttempts int
	source      random.Source
	now         func() time.Time
	logger      *slog.Logger
}

// NewCredentialService creates a CredentialService. Sessions are minted
// through sessions inside the same transaction that consumes the credential.
func NewCredentialService(users UserRepository, creds CredentialRepository, sessions *SessionService, tx Transactor, cfg CredentialConfig) (*CredentialService, error) {
	if users == nil {
		return nil, oops.Code("CREDENTIAL_SERVICE_INVALID").Errorf("user repository is required")
	}
	if creds == nil {
		return nil, oops.Code("CREDENTIAL_SERVICE_INVALID").Errorf("credential repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("CREDENTIAL_SERVICE_INVALID").Errorf("session service is required")
	}
	if tx == nil {
		return nil, oops.Code("CREDENTIAL_SERVICE_INVALID").Errorf("transactor is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCredentialTTL
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultMaxCodeAttempts
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
	return &CredentialService{
		users:       users,
		creds:       creds,
		sessions:    sessions,
		tx:          tx,
		ttl:         cfg.TTL,
		codeLength:  cfg.CodeLength,
		maxAttempts: cfg.MaxCodeAttempts,
		source:      cfg.Source,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}, nil
}

// TTL returns the credential lifetime.
func (s *CredentialService) TTL() time.Duration {
	return s.ttl
}

// IssueCredential creates a magic-link token and a code for email.
// No user is created here; a new address is provisioned on validation.
func (s *CredentialService) IssueCredential(ctx context.Context, email string) (linkToken, code string, err error) {
	addr, err := CanonicalEmail(email)
	if err != nil {
		return "", "", err
	}

	linkToken, err = random.Hex(s.source, LinkTokenBytes)
	if err != nil {
		return "", "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	code, err = random.Code(s.source, s.codeLength, random.CodeAlphabet)
	if err != nil {
		return "", "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	var owner CredentialOwner = ForNewEmail{Email: addr}
	user, err := s.users.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		owner = ForExistingUser{UserID: user.ID}
	case !errors.Is(err, ErrNotFound):
		return "", "", storageErr("AUTH_STORAGE_FAILED", "get user by email", err)
	}

	now := s.now()
	cred, err := NewCredential(addr, owner, HashToken(linkToken), HashCode(code), now, now.Add(s.ttl))
	if err != nil {
		return "", "", err
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return "", "", storageErr("AUTH_STORAGE_FAILED", "create credential", err)
	}

	_, existing := owner.(ForExistingUser)
	s.logger.InfoContext(ctx, "login credential issued",
		"credential_id", cred.ID.String(),
		"email_domain", emailDomain(addr),
		"existing_user", existing,
		"expires_at", cred.ExpiresAt)
	return linkToken, code, nil
}

// ValidateLinkToken consumes the credential matching a magic-link token and
// returns a new session token for its user.
func (s *CredentialService) ValidateLinkToken(ctx context.Context, token string) (sessionToken string, userID int64, err error) {
	if !wellFormedToken(token, LinkTokenBytes) {
		s.logFailure(ctx, "link", "malformed")
		return "", 0, invalidCredential()
	}

	now := s.now()
	hash := HashToken(token)
	cred, err := s.creds.GetActiveByLinkHash(ctx, hash, now)
	if errors.Is(err, ErrNotFound) {
		s.logFailure(ctx, "link", "not_found")
		return "", 0, invalidCredential()
	}
	if err != nil {
		return "", 0, storageErr("AUTH_STORAGE_FAILED", "get credential by link", err)
	}
	if !VerifyHash(hash, cred.LinkHash) || !cred.ActiveAt(now) {
		s.logFailure(ctx, "link", "mismatch")
		return "", 0, invalidCredential()
	}

	return s.complete(ctx, cred, now, "link")
}

// ValidateCode checks a code against the newest active credential for email.
// Each guess counts against the credential; once MaxCodeAttempts guesses
// have been spent the next call burns the credential and fails with
// ErrAttemptLimitExceeded, even if the code is right. A right code whose
// sign-in fails on storage gets its guess back.
func (s *CredentialService) ValidateCode(ctx context.Context, email, code string) (sessionToken string, userID int64, err error) {
	addr, err := CanonicalEmail(email)
	if err != nil {
		return "", 0, err
	}
	if code == "" || len(code) > maxCodeInput {
		return "", 0, oops.Code("AUTH_INVALID_INPUT").With("field", "code").Wrap(ErrInvalidInput)
	}

	now := s.now()
	cred, err := s.creds.GetLatestActiveByEmail(ctx, addr, now)
	if errors.Is(err, ErrNotFound) {
		s.logFailure(ctx, "code", "not_found")
		return "", 0, invalidCredential()
	}
	if err != nil {
		return "", 0, storageErr("AUTH_STORAGE_FAILED", "get credential by email", err)
	}

	if cred.FailedAttempts >= s.maxAttempts {
		return "", 0, s.burn(ctx, cred, now)
	}

	// The guess is counted before comparing so that concurrent guesses can
	// never exceed the limit.
	if _, err := s.creds.RecordCodeAttempt(ctx, cred.ID, s.maxAttempts); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logFailure(ctx, "code", "exhausted")
			return "", 0, invalidCredential()
		}
		return "", 0, storageErr("AUTH_STORAGE_FAILED", "record code attempt", err)
	}

	if !VerifyHash(HashCode(code), cred.CodeHash) {
		s.logFailure(ctx, "code", "mismatch")
		return "", 0, invalidCredential()
	}

	token, userID, err := s.complete(ctx, cred, now, "code")
	if errors.Is(err, ErrStorage) {
		// A right code that failed to sign in is not a wrong guess.
		if refundErr := s.creds.RefundCodeAttempt(ctx, cred.ID); refundErr != nil {
			s.logger.WarnContext(ctx, "failed to refund code attempt",
				"credential_id", cred.ID.String(), "error", refundErr)
		}
	}
	return token, userID, err
}

func (s *CredentialService) burn(ctx context.Context, cred *Credential, now time.Time) error {
	if err := s.creds.Consume(ctx, cred.ID, now); err != nil && !errors.Is(err, ErrNotFound) {
		return storageErr("AUTH_STORAGE_FAILED", "burn credential", err)
	}
	s.logger.WarnContext(ctx, "login code locked out",
		"credential_id", cred.ID.String(),
		"email_domain", emailDomain(cred.Email),
		"failed_attempts", cred.FailedAttempts)
	return oops.Code("AUTH_ATTEMPT_LIMIT").
		With("max_attempts", s.maxAttempts).
		Wrap(ErrAttemptLimitExceeded)
}

// complete consumes cred, provisions its user if needed and mints a session
// in one transaction.
func (s *CredentialService) complete(ctx context.Context, cred *Credential, now time.Time, method string) (string, int64, error) {
	var (
		token  string
		userID int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.creds.Consume(ctx, cred.ID, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalidCredential()
			}
			return storageErr("AUTH_STORAGE_FAILED", "consume credential", err)
		}

		switch o := cred.Owner.(type) {
		case ForExistingUser:
			userID = o.UserID
		case ForNewEmail:
			user, err := s.users.EnsureByEmail(ctx, o.Email)
			if err != nil {
				return storageErr("AUTH_STORAGE_FAILED", "provision user", err)
			}
			userID = user.ID
		default:
			return oops.Code("CREDENTIAL_INVALID_OWNER").Errorf("credential %s has no owner", cred.ID)
		}

		var err error
		token, err = s.sessions.Mint(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			s.logFailure(ctx, method, "already_used")
			return "", 0, err
		}
		if errors.Is(err, ErrStorage) {
			return "", 0, err
		}
		return "", 0, storageErr("AUTH_STORAGE_FAILED", "complete sign-in", err)
	}

	s.logger.InfoContext(ctx, "login credential validated",
		"credential_id", cred.ID.String(),
		"method", method,
		"user_id", userID)
	return token, userID, nil
}

func (s *CredentialService) logFailure(ctx context.Context, method, reason string) {
	s.logger.InfoContext(ctx, "login credential rejected", "method", method, "reason", reason)
}
