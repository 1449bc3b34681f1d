// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package auth implements passwordless sign-in for DailyPuzzle.
//
// # Credentials
//
// A login Credential pairs a 64-character magic-link token with a short
// human-enterable code. Both are issued together, share one expiry and one
// used flag, and only their SHA-256 hashes are stored. Validating either
// secret consumes the credential. The code path allows a bounded number of
// guesses before the credential is burned.
//
// The owner of a credential is a tagged variant: ForExistingUser when the
// email already belongs to a user, ForNewEmail when the user is provisioned
// on first successful validation.
//
// # Services
//
//   - CredentialService - IssueCredential, ValidateLinkToken, ValidateCode
//   - SessionService - Mint, Resolve, Revoke
//   - AccountService - display name updates
//   - Sweeper - periodic deletion of expired credentials and sessions
//
// Credential consumption, user provisioning and session minting run in one
// transaction supplied by a Transactor, so a validated credential never
// leaves the user without a session.
package auth
