// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultSweepInterval is how often expired rows are deleted.
const DefaultSweepInterval = time.Hour

// SweepResult counts the rows a sweep removed.
type SweepResult struct {
	Credentials int64
	Sessions    int64
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	Interval time.Duration
	Now      func() time.Time
	Logger   *slog.Logger

	// OnSwept, if set, is called after each sweep with the per-kind counts.
	OnSwept func(kind string, deleted int64)
}

// Sweeper deletes expired credentials and sessions. Lookups already ignore
// expired rows, so sweeping only reclaims space.
type Sweeper struct {
	creds    CredentialRepository
	sessions SessionRepository
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	onSwept  func(kind string, deleted int64)
}

// NewSweeper creates a Sweeper.
func NewSweeper(creds CredentialRepository, sessions SessionRepository, cfg SweeperConfig) (*Sweeper, error) {
	if creds == nil || sessions == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("credential and session repositories are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{
		creds:    creds,
		sessions: sessions,
		interval: cfg.Interval,
		now:      cfg.Now,
		logger:   cfg.Logger,
		onSwept:  cfg.OnSwept,
	}, nil
}

// Sweep deletes everything expired at the current time. Both tables are
// attempted even if one fails; the failures are joined.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var res SweepResult
	var errs []error

	n, err := s.creds.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, oops.Code("SWEEP_FAILED").With("kind", "credentials").Wrap(err))
	} else {
		res.Credentials = n
		s.report("credentials", n)
	}

	n, err = s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, oops.Code("SWEEP_FAILED").With("kind", "sessions").Wrap(err))
	} else {
		res.Sessions = n
		s.report("sessions", n)
	}

	s.logger.InfoContext(ctx, "expired auth rows swept",
		"credentials", res.Credentials,
		"sessions", res.Sessions)
	return res, errors.Join(errs...)
}

func (s *Sweeper) report(kind string, n int64) {
	if s.onSwept != nil {
		s.onSwept(kind, n)
	}
}

// Run sweeps immediately and then every interval until ctx is cancelled.
// Failures are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweepLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepLogged(ctx)
		}
	}
}

func (s *Sweeper) sweepLogged(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "sweep failed", "error", err)
	}
}
