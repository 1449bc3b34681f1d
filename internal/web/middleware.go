// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
)

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

type loggerKey struct{}

// loggerFrom returns the request-scoped logger set by withRequestID.
func (s *Server) loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set(RequestIDHeader, id)
		logger := s.logger.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))
	})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.loggerFrom(r.Context()).ErrorContext(r.Context(), "handler panic",
					"method", r.Method, "path", r.URL.Path, "panic", v)
				s.respond(w, r, http.StatusInternalServerError, errorResponse{Error: msgInternal})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withMetrics counts requests by matched route pattern. The mux sets
// r.Pattern on the request it is handed, so it is read after ServeHTTP.
func (s *Server) withMetrics(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		mux.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordRequest(route, status)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *auth.User)

// requireUser resolves the session cookie and rejects anonymous requests
// with 401.
func (s *Server) requireUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			s.respond(w, r, http.StatusUnauthorized, errorResponse{Error: msgUnauthorized})
			return
		}
		user, err := s.deps.Sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				s.clearSessionCookie(w)
				s.respond(w, r, http.StatusUnauthorized, errorResponse{Error: msgUnauthorized})
				return
			}
			s.fail(w, r, err)
			return
		}
		logger := s.loggerFrom(r.Context()).With("user_id", user.ID)
		h(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)), user)
	}
}

// allow applies the login rate limit to the client address. Each login
// method has its own budget per address. A limiter backend failure rejects
// the request.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	ip := ClientIP(r, s.cfg.TrustProxy)
	ok, err := s.deps.Limiter.Allow(r.Context(), method+":"+ip)
	if err != nil {
		s.loggerFrom(r.Context()).WarnContext(r.Context(), "rate limiter unavailable", "error", err)
		s.respond(w, r, http.StatusServiceUnavailable, errorResponse{Error: msgUnavailable})
		return false
	}
	if !ok {
		s.loggerFrom(r.Context()).InfoContext(r.Context(), "login rate limited", "client_ip", ip)
		s.failAuth(w, r, method, auth.RateLimited())
		return false
	}
	return true
}

// ClientIP returns the address used as the rate-limit key. With trustProxy
// the first valid X-Forwarded-For entry wins; otherwise, or when the header
// is absent or malformed, the transport peer address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return addr.Unmap().String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionCookie is the name of the session cookie.
const SessionCookie = "session"

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie emits Max-Age=0.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func badRequest(err error) error {
	return oops.Code("WEB_BAD_REQUEST").Wrap(errors.Join(errBadRequest, err))
}
