// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/internal/mail"
	"github.com/dailypuzzle/dailypuzzle/internal/observability"
	"github.com/dailypuzzle/dailypuzzle/internal/ratelimit"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
	"github.com/dailypuzzle/dailypuzzle/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the repositories.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// LimiterFactory creates the login rate limiter. reg is nil when metrics
	// are disabled. The returned func releases the limiter.
	// Default: newLimiter
	LimiterFactory func(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (ratelimit.Limiter, func(), error)

	// MailerFactory creates the login mail sender. out receives console mail.
	// Default: newMailer
	MailerFactory func(cfg *config.Config, out io.Writer) (mail.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the public HTTP server.
	// Default: web.NewServer
	WebServerFactory func(cfg web.Config, deps web.Deps) (WebServer, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.LimiterFactory == nil {
		out.LimiterFactory = newLimiter
	}
	if out.MailerFactory == nil {
		out.MailerFactory = newMailer
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if out.WebServerFactory == nil {
		out.WebServerFactory = func(cfg web.Config, deps web.Deps) (WebServer, error) {
			return web.NewServer(cfg, deps)
		}
	}
	return &out
}

// AutoMigrator wraps the migrator methods serve uses at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// WebServer wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registry() prometheus.Registerer
}

// newLimiter builds the configured limiter. The Redis limiter pings once so
// a bad address fails startup instead of every login.
func newLimiter(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit
	if rl.Backend == config.RateLimitRedis {
		client := redis.NewClient(&redis.Options{Addr: rl.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close() //nolint:errcheck // ping error takes precedence
			return nil, nil, oops.Code("RATELIMIT_CONNECT_FAILED").With("addr", rl.RedisAddr).Wrap(err)
		}
		limiter := ratelimit.NewRedis(client, ratelimit.RedisConfig{Window: rl.Window, Max: rl.Max})
		return limiter, func() { _ = client.Close() }, nil //nolint:errcheck // shutdown
	}

	mc := ratelimit.MemoryConfig{Window: rl.Window, Max: rl.Max, Capacity: rl.Capacity}
	var limiter *ratelimit.Memory
	if reg != nil {
		limiter = ratelimit.NewMemoryWithRegistry(mc, reg)
	} else {
		limiter = ratelimit.NewMemory(mc)
	}
	return limiter, limiter.Close, nil
}

func newMailer(cfg *config.Config, out io.Writer) (mail.Sender, error) {
	if cfg.Mail.Provider == config.MailResend {
		return mail.NewResend(mail.ResendConfig{APIKey: cfg.Mail.ResendAPIKey, From: cfg.Mail.From})
	}
	return mail.NewConsole(out), nil
}
