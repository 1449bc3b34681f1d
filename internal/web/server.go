// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package web serves the JSON HTTP API: passwordless login, sessions,
// and puzzle play.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/mail"
	"github.com/dailypuzzle/dailypuzzle/internal/observability"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	"github.com/dailypuzzle/dailypuzzle/internal/ratelimit"
)

// Credentials issues and validates login credentials.
type Credentials interface {
	TTL() time.Duration
	IssueCredential(ctx context.Context, email string) (linkToken, code string, err error)
	ValidateLinkToken(ctx context.Context, token string) (sessionToken string, userID int64, err error)
	ValidateCode(ctx context.Context, email, code string) (sessionToken string, userID int64, err error)
}

// Sessions resolves and revokes session tokens.
type Sessions interface {
	TTL() time.Duration
	Resolve(ctx context.Context, token string) (*auth.User, error)
	Revoke(ctx context.Context, token string) error
}

// Accounts updates user profile fields.
type Accounts interface {
	UpdateDisplayName(ctx context.Context, userID int64, name string) (string, error)
}

// Admins decides which users have admin rights.
type Admins interface {
	IsAdmin(email string) bool
}

// Puzzles is the puzzle lookup and play surface.
type Puzzles interface {
	Today(ctx context.Context) (*puzzle.Puzzle, error)
	Get(ctx context.Context, id int64, includeUnreleased bool) (*puzzle.Puzzle, error)
	Archive(ctx context.Context, limit int, includeFuture bool) ([]*puzzle.Puzzle, error)
	Attempt(ctx context.Context, userID, puzzleID int64) (*puzzle.Attempt, error)
	SubmitGuess(ctx context.Context, userID, puzzleID int64, guess string) (puzzle.GuessResult, error)
	RevealHint(ctx context.Context, userID, puzzleID int64) (string, error)
}

// Deps are the collaborators the handlers call. Admins may be nil.
type Deps struct {
	Credentials Credentials
	Sessions    Sessions
	Accounts    Accounts
	Admins      Admins
	Puzzles     Puzzles
	Limiter     ratelimit.Limiter
	Mail        mail.Sender
}

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// BaseURL is the public origin used in magic links.
	BaseURL string

	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool

	// TrustProxy makes the rate limiter key on the first X-Forwarded-For
	// address instead of the peer address.
	TrustProxy bool

	// Metrics may be nil.
	Metrics *observability.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the public HTTP API server.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	metrics    *observability.Metrics
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer validates deps and builds the route table.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Credentials == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("credential service is required")
	case deps.Sessions == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("session service is required")
	case deps.Accounts == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("account service is required")
	case deps.Puzzles == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("puzzle service is required")
	case deps.Limiter == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("rate limiter is required")
	case deps.Mail == nil:
		return nil, oops.Code("WEB_SERVER_INVALID").Errorf("mail sender is required")
	}
	if _, err := mail.LoginLink(cfg.BaseURL, ""); err != nil {
		return nil, oops.Code("WEB_SERVER_INVALID").With("base_url", cfg.BaseURL).Errorf("invalid base url: %v", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /auth", s.handleLinkAuth)
	mux.HandleFunc("POST /auth/code", s.handleCodeAuth)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /me", s.requireUser(s.handleMe))
	mux.HandleFunc("POST /account", s.requireUser(s.handleAccount))

	mux.HandleFunc("GET /puzzle", s.requireUser(s.handleToday))
	mux.HandleFunc("GET /puzzles/{id}", s.requireUser(s.handlePuzzle))
	mux.HandleFunc("GET /archive", s.requireUser(s.handleArchive))
	mux.HandleFunc("POST /puzzles/{id}/guess", s.requireUser(s.handleGuess))
	mux.HandleFunc("POST /puzzles/{id}/hint", s.requireUser(s.handleHint))

	return s.withRequestID(s.withRecover(s.withMetrics(mux)))
}

// Start begins listening on the configured address. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) isAdmin(u *auth.User) bool {
	return s.deps.Admins != nil && u != nil && s.deps.Admins.IsAdmin(u.Email)
}
