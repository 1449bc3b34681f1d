// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package ratelimit bounds login-initiation requests per client key using a
// fixed window counter. Memory keeps the table in process; Redis shares it
// across instances.
package ratelimit

import (
	"context"
	"time"
)

// Default limiter values.
const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = 60 * time.Second

	// DefaultMax is the number of requests admitted per key per window.
	DefaultMax = 5

	// DefaultCapacity is the number of distinct keys the memory table holds.
	DefaultCapacity = 1000

	// DefaultCleanupInterval is how often expired windows are evicted.
	DefaultCleanupInterval = 5 * time.Minute
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
