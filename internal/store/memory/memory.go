// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package memory implements every repository in process memory. It backs
// the dev-mode server and service tests.
//
// A transaction holds the store exclusively from begin to commit, so every
// repository call made outside it waits. Rollback restores the snapshot taken
// at begin, which can only contain the transaction's own writes.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

type attemptKey struct {
	userID   int64
	puzzleID int64
}

type state struct {
	users       map[int64]auth.User
	userByEmail map[string]int64
	creds       map[ulid.ULID]auth.Credential
	sessions    map[string]auth.Session
	puzzles     map[int64]puzzle.Puzzle
	attempts    map[attemptKey]puzzle.Attempt
	attemptByID map[int64]attemptKey
	nextUserID  int64
	nextPuzzle  int64
	nextAttempt int64
}

func newState() state {
	return state{
		users:       make(map[int64]auth.User),
		userByEmail: make(map[string]int64),
		creds:       make(map[ulid.ULID]auth.Credential),
		sessions:    make(map[string]auth.Session),
		puzzles:     make(map[int64]puzzle.Puzzle),
		attempts:    make(map[attemptKey]puzzle.Attempt),
		attemptByID: make(map[int64]attemptKey),
	}
}

func (s state) clone() state {
	c := s
	c.users = maps.Clone(s.users)
	c.userByEmail = maps.Clone(s.userByEmail)
	c.creds = maps.Clone(s.creds)
	c.sessions = maps.Clone(s.sessions)
	c.puzzles = maps.Clone(s.puzzles)
	c.attempts = maps.Clone(s.attempts)
	c.attemptByID = maps.Clone(s.attemptByID)
	return c
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for created-at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds all tables. Use the accessor methods to get a repository.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time
	st   state
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now, st: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns the user repository.
func (s *Store) Users() auth.UserRepository { return (*userRepo)(s) }

// Credentials returns the login credential repository.
func (s *Store) Credentials() auth.CredentialRepository { return (*credentialRepo)(s) }

// Sessions returns the session repository.
func (s *Store) Sessions() auth.SessionRepository { return (*sessionRepo)(s) }

// Puzzles returns the puzzle repository.
func (s *Store) Puzzles() puzzle.PuzzleRepository { return (*puzzleRepo)(s) }

// Attempts returns the attempt repository.
func (s *Store) Attempts() puzzle.AttemptRepository { return (*attemptRepo)(s) }

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// WithinTx runs fn with all-or-nothing semantics. Nested calls join the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock guards one repository call. Calls outside the running transaction
// wait for it to finish.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}
