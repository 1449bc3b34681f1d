// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

//go:build integration

// Package pgtest starts a migrated PostgreSQL container for integration tests.
package pgtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

// Database is a running, migrated test database.
type Database struct {
	Pool      *pgxpool.Pool
	URL       string
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies every migration and opens a pool.
func Start(ctx context.Context) (*Database, error) {
	container, err := StartContainer(ctx)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, oops.With("operation", "connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, store.ConnectConfig{URL: connStr, MaxRetries: 5})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Database{Pool: pool, URL: connStr, container: container}, nil
}

// StartContainer runs an empty PostgreSQL container.
func StartContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dailypuzzle_test"),
		postgres.WithUsername("dailypuzzle"),
		postgres.WithPassword("dailypuzzle"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}
	return container, nil
}

// Reset empties every table and restarts identity sequences.
func (d *Database) Reset(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `TRUNCATE attempts, puzzles, sessions, login_credentials, users RESTART IDENTITY CASCADE`)
	return err
}

// Close closes the pool and terminates the container.
func (d *Database) Close(ctx context.Context) {
	d.Pool.Close()
	_ = d.container.Terminate(ctx)
}
