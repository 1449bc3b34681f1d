// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultConnectRetries = 5
)

// ConnectConfig configures Connect.
type ConnectConfig struct {
	// URL is a postgres:// connection string.
	URL string

	// ConnectTimeout bounds each ping. Defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// MaxRetries is the number of additional ping attempts after the first.
	MaxRetries uint64

	// BaseBackoff is the first retry delay; it doubles each attempt.
	BaseBackoff time.Duration
}

// Connect opens a pool and pings it until the database answers or the
// retry budget is spent. Containers often accept TCP before Postgres is ready.
func Connect(ctx context.Context, cfg ConnectConfig) (*pgxpool.Pool, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithCappedDuration(5*time.Second,
		retry.WithMaxRetries(cfg.MaxRetries, retry.NewExponential(cfg.BaseBackoff)))

	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempts).
			Wrap(err)
	}
	return pool, nil
}
