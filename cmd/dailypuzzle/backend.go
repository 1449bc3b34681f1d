// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	authpg "github.com/dailypuzzle/dailypuzzle/internal/auth/postgres"
	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	puzzlepg "github.com/dailypuzzle/dailypuzzle/internal/puzzle/postgres"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
	"github.com/dailypuzzle/dailypuzzle/internal/store/memory"
)

// Backend bundles the repositories of one store.
type Backend struct {
	Users       auth.UserRepository
	Credentials auth.CredentialRepository
	Sessions    auth.SessionRepository
	Puzzles     puzzle.PuzzleRepository
	Attempts    puzzle.AttemptRepository
	Tx          auth.Transactor

	// Persistent is true when data outlives the process.
	Persistent bool

	// Ping reports whether the store can serve queries.
	Ping func(ctx context.Context) error

	// Close releases connections. It is never nil.
	Close func()
}

// openBackend opens the configured store.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.Store.Backend == config.StoreMemory {
		slog.Warn("using the in-memory store; all data is lost on exit")
		return memoryBackend(memory.New()), nil
	}

	pool, err := store.Connect(ctx, store.ConnectConfig{
		URL:            cfg.Database.URL,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		MaxRetries:     cfg.Database.ConnectRetries,
	})
	if err != nil {
		return nil, oops.With("operation", "connect to database").Wrap(err)
	}

	return &Backend{
		Users:       authpg.NewUserRepository(pool),
		Credentials: authpg.NewCredentialRepository(pool),
		Sessions:    authpg.NewSessionRepository(pool),
		Puzzles:     puzzlepg.NewPuzzleRepository(pool),
		Attempts:    puzzlepg.NewAttemptRepository(pool),
		Tx:          store.NewTransactor(pool),
		Persistent:  true,
		Ping:        pool.Ping,
		Close:       pool.Close,
	}, nil
}

func memoryBackend(st *memory.Store) *Backend {
	return &Backend{
		Users:       st.Users(),
		Credentials: st.Credentials(),
		Sessions:    st.Sessions(),
		Puzzles:     st.Puzzles(),
		Attempts:    st.Attempts(),
		Tx:          st,
		Ping:        func(context.Context) error { return nil },
		Close:       func() {},
	}
}

// requirePersistent rejects commands that would only touch throwaway data.
func requirePersistent(cfg *config.Config, command string) error {
	if cfg.Store.Backend != config.StorePostgres {
		return oops.Code("CONFIG_INVALID").
			With("command", command).
			Errorf("%s needs the postgres store, got %q", command, cfg.Store.Backend)
	}
	return nil
}
