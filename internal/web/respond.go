// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	"github.com/dailypuzzle/dailypuzzle/pkg/errutil"
)

// Client-facing messages. Internal detail never reaches the response body.
const (
	msgInvalidOrExpired = "invalid or expired"
	msgInternal         = "something went wrong"
	msgUnauthorized     = "unauthorized"
	msgUnavailable      = "temporarily unavailable"
	msgTooManyRequests  = "too many requests"
	msgNotFound         = "not found"
	msgNoHint           = "this puzzle has no hint"
	msgBadRequest       = "bad request"
	msgInvalidGuess     = "invalid guess"
	msgInvalidInput     = "invalid input"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 8 << 10

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.loggerFrom(r.Context()).WarnContext(r.Context(), "failed to write response",
			"status", status, "error", err)
	}
}

// decodeJSON reads a single JSON object into v. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return badRequest(errors.New("unexpected data after JSON object"))
	}
	return nil
}

// failAuth writes an auth-path failure. Every client error renders the same
// generic message so responses do not reveal which check failed.
func (s *Server) failAuth(w http.ResponseWriter, r *http.Request, method string, err error) {
	status := http.StatusInternalServerError
	msg := msgInternal
	result := "error"
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		status, msg, result = http.StatusTooManyRequests, msgTooManyRequests, "rate_limited"
	case errors.Is(err, auth.ErrAttemptLimitExceeded):
		status, msg, result = http.StatusUnauthorized, msgInvalidOrExpired, "locked"
	case errors.Is(err, auth.ErrInvalidCredential):
		status, msg, result = http.StatusUnauthorized, msgInvalidOrExpired, "invalid"
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, errBadRequest):
		status, msg, result = http.StatusBadRequest, msgInvalidOrExpired, "invalid"
	default:
		errutil.LogErrorContext(r.Context(), s.loggerFrom(r.Context()), "auth request failed", err)
	}
	s.metrics.RecordLogin(method, result)
	s.respond(w, r, status, errorResponse{Error: msg})
}

// fail maps service errors on the account and puzzle paths to a status.
// Storage and unexpected errors are logged and render a retryable
// generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, msgInternal
	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, msgBadRequest
	case errors.Is(err, puzzle.ErrInvalidGuess):
		status, msg = http.StatusBadRequest, msgInvalidGuess
	case errors.Is(err, auth.ErrInvalidInput):
		status, msg = http.StatusBadRequest, msgInvalidInput
	case errors.Is(err, puzzle.ErrNoHint):
		status, msg = http.StatusNotFound, msgNoHint
	case errors.Is(err, puzzle.ErrNotFound):
		status, msg = http.StatusNotFound, msgNotFound
	case errors.Is(err, auth.ErrInvalidSession):
		status, msg = http.StatusUnauthorized, msgUnauthorized
	default:
		errutil.LogErrorContext(r.Context(), s.loggerFrom(r.Context()), "request failed", err)
	}
	s.respond(w, r, status, errorResponse{Error: msg})
}
