// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/internal/mail"
	"github.com/dailypuzzle/dailypuzzle/internal/observability"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	"github.com/dailypuzzle/dailypuzzle/internal/ratelimit"
	"github.com/dailypuzzle/dailypuzzle/internal/seed"
	"github.com/dailypuzzle/dailypuzzle/internal/web"
)

const shutdownTimeout = 5 * time.Second

// serveOptions holds flags of the serve command that are not configuration.
type serveOptions struct {
	seedFile string
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. Expired credentials and sessions are
swept at startup and every auth.sweep_interval. With the postgres store,
pending migrations are applied first unless database.auto_migrate is false.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, opts, cmd, nil)
		},
	}

	addConfigFlags(cmd.Flags(), "addr", "base-url", "database-url", "store", "metrics-addr", "mail-provider", "log-format", "log-level")
	cmd.Flags().StringVar(&opts.seedFile, "seed", "", "import a puzzle seed file before serving")

	return cmd
}

// runServeWithDeps runs the server until a signal arrives, ctx is
// cancelled, or a listener fails. If deps is nil, default implementations
// are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, opts *serveOptions, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if opts == nil {
		opts = &serveOptions{}
	}

	setupLogging(cfg)
	slog.Info("starting server",
		"addr", cfg.HTTP.Addr,
		"store", cfg.Store.Backend,
		"ratelimit", cfg.RateLimit.Backend,
		"mail", cfg.Mail.Provider,
	)

	if cfg.Store.Backend == config.StorePostgres && cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Errorf("open store: %v", err)
	}
	defer backend.Close()

	if opts.seedFile != "" {
		if err := importSeedFile(ctx, cmd, backend.Puzzles, opts.seedFile); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	var registry prometheus.Registerer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			if !ready.Load() {
				return false
			}
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return backend.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()
		registry = obsServer.Registry()
	}

	limiter, closeLimiter, err := deps.LimiterFactory(ctx, cfg, registry)
	if err != nil {
		return oops.Code("RATELIMIT_INIT_FAILED").Errorf("create rate limiter: %v", err)
	}
	defer closeLimiter()

	mailer, err := deps.MailerFactory(cfg, cmd.OutOrStdout())
	if err != nil {
		return oops.Code("MAIL_INIT_FAILED").Errorf("create mail sender: %v", err)
	}

	webDeps, err := buildWebDeps(cfg, backend, limiter, mailer)
	if err != nil {
		return err
	}

	sweeper, err := auth.NewSweeper(backend.Credentials, backend.Sessions, auth.SweeperConfig{
		Interval: cfg.Auth.SweepInterval,
		OnSwept:  metrics.RecordSwept,
	})
	if err != nil {
		return err
	}

	webServer, err := deps.WebServerFactory(web.Config{
		Addr:         cfg.HTTP.Addr,
		BaseURL:      cfg.HTTP.BaseURL,
		CookieSecure: cfg.HTTP.CookieSecure,
		TrustProxy:   cfg.HTTP.TrustProxy,
		Metrics:      metrics,
	}, webDeps)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Errorf("start observability server: %v", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	webErrCh, err := webServer.Start()
	if err != nil {
		stopServer(obsServer, "observability")
		return oops.Code("WEB_START_FAILED").Errorf("start web server: %v", err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	var sweeps sync.WaitGroup
	sweeps.Add(1)
	go func() {
		defer sweeps.Done()
		sweeper.Run(ctx)
	}()

	ready.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started on " + webServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	stopServer(webServer, "web")
	stopServer(obsServer, "observability")
	cancel()
	sweeps.Wait()

	slog.Info("shutdown complete")
	return nil
}

// buildWebDeps wires the services the handlers call.
func buildWebDeps(cfg *config.Config, b *Backend, limiter ratelimit.Limiter, mailer mail.Sender) (web.Deps, error) {
	sessions, err := auth.NewSessionService(b.Sessions, auth.SessionConfig{TTL: cfg.Auth.SessionTTL})
	if err != nil {
		return web.Deps{}, err
	}
	credentials, err := auth.NewCredentialService(b.Users, b.Credentials, sessions, b.Tx, auth.CredentialConfig{
		TTL:             cfg.Auth.CredentialTTL,
		CodeLength:      cfg.Auth.CodeLength,
		MaxCodeAttempts: cfg.Auth.MaxCodeAttempts,
	})
	if err != nil {
		return web.Deps{}, err
	}
	accounts, err := auth.NewAccountService(b.Users)
	if err != nil {
		return web.Deps{}, err
	}
	admins, err := auth.NewAdminMatcher(auth.ParseAdminList(cfg.Auth.AdminEmails))
	if err != nil {
		return web.Deps{}, err
	}
	puzzles, err := puzzle.NewService(b.Puzzles, b.Attempts, puzzle.ServiceConfig{})
	if err != nil {
		return web.Deps{}, err
	}

	return web.Deps{
		Credentials: credentials,
		Sessions:    sessions,
		Accounts:    accounts,
		Admins:      admins,
		Puzzles:     puzzles,
		Limiter:     limiter,
		Mail:        mailer,
	}, nil
}

// runAutoMigration applies pending migrations before the store is opened.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Errorf("create migrator: %v", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Errorf("apply migrations: %v", err)
	}
	slog.Info("database migrations applied")
	return nil
}

// importSeedFile loads and imports a seed file, printing the counts.
func importSeedFile(ctx context.Context, cmd *cobra.Command, puzzles puzzle.PuzzleRepository, path string) error {
	parsed, err := seed.Load(path)
	if err != nil {
		return err
	}
	importer, err := seed.NewImporter(puzzles, slog.Default())
	if err != nil {
		return err
	}
	res, err := importer.Import(ctx, parsed)
	if err != nil {
		return err
	}
	cmd.Printf("Imported %d puzzles (%d already present)\n", res.Created, res.Skipped)
	return nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

// stopServer stops s with the shutdown timeout. A nil interface is ignored.
func stopServer(s stopper, name string) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels the context when a server reports an error.
// It returns once errCh yields or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
