// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "dailypuzzle:ratelimit:"

// windowScript increments the counter and starts the window on first use.
// INCR and PEXPIRE run atomically so a crash cannot leave a key without TTL.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisConfig configures the shared limiter.
type RedisConfig struct {
	Window time.Duration
	Max    int
	Prefix string
}

// Redis is a fixed window limiter shared by every instance pointed at the
// same Redis. Counters expire with their window, so no cleanup is needed.
type Redis struct {
	client redis.UniversalClient
	window time.Duration
	max    int
	prefix string
}

var _ Limiter = (*Redis)(nil)

// NewRedis creates a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		window: cfg.Window,
		max:    cfg.Max,
		prefix: cfg.Prefix,
	}
}

// Allow counts the request and reports whether it fits in the current window.
// Requests over the limit still increment the counter; the window expiry is
// not extended by them.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	count, err := windowScript.Run(ctx, r.client, []string{r.prefix + key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, oops.Code("RATELIMIT_BACKEND_FAILED").
			With("backend", "redis").
			Wrap(err)
	}
	return count <= int64(r.max), nil
}
