// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package web

import (
	"net/http"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/mail"
	"github.com/dailypuzzle/dailypuzzle/pkg/errutil"
)

// Login metric methods.
const (
	methodIssue = "issue"
	methodLink  = "link"
	methodCode  = "code"
)

type loginRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginResponse struct {
	UserID int64 `json:"user_id"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Name        string `json:"name"`
	Admin       bool   `json:"admin"`
}

type accountRequest struct {
	DisplayName string `json:"display_name"`
}

type accountResponse struct {
	DisplayName string `json:"display_name"`
}

// handleLogin issues a credential and mails the link and code. The
// response is the same whether or not the address has an account.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, methodIssue) {
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failAuth(w, r, methodIssue, err)
		return
	}

	ctx := r.Context()
	linkToken, code, err := s.deps.Credentials.IssueCredential(ctx, req.Email)
	if err != nil {
		s.failAuth(w, r, methodIssue, err)
		return
	}
	to, err := auth.CanonicalEmail(req.Email)
	if err != nil {
		s.failAuth(w, r, methodIssue, err)
		return
	}

	msg, err := mail.LoginMessage(to, s.cfg.BaseURL, linkToken, code, s.deps.Credentials.TTL())
	if err != nil {
		s.failAuth(w, r, methodIssue, err)
		return
	}
	if err := s.deps.Mail.Send(ctx, msg); err != nil {
		s.failAuth(w, r, methodIssue, oops.Code("WEB_MAIL_FAILED").Wrap(err))
		return
	}

	s.metrics.RecordCredentialIssued()
	s.metrics.RecordLogin(methodIssue, "ok")
	s.respond(w, r, http.StatusAccepted, statusResponse{Status: "sent"})
}

// handleLinkAuth validates a magic-link token, sets the session cookie and
// redirects home.
func (s *Server) handleLinkAuth(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.failAuth(w, r, methodLink, badRequest(oops.Errorf("missing token")))
		return
	}
	sessionToken, userID, err := s.deps.Credentials.ValidateLinkToken(r.Context(), token)
	if err != nil {
		s.failAuth(w, r, methodLink, err)
		return
	}

	s.metrics.RecordLogin(methodLink, "ok")
	s.loggerFrom(r.Context()).InfoContext(r.Context(), "logged in", "method", methodLink, "user_id", userID)
	s.setSessionCookie(w, sessionToken)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleCodeAuth validates an email and code pair and sets the session
// cookie.
func (s *Server) handleCodeAuth(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, methodCode) {
		return
	}
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failAuth(w, r, methodCode, err)
		return
	}
	sessionToken, userID, err := s.deps.Credentials.ValidateCode(r.Context(), req.Email, req.Code)
	if err != nil {
		s.failAuth(w, r, methodCode, err)
		return
	}

	s.metrics.RecordLogin(methodCode, "ok")
	s.loggerFrom(r.Context()).InfoContext(r.Context(), "logged in", "method", methodCode, "user_id", userID)
	s.setSessionCookie(w, sessionToken)
	s.respond(w, r, http.StatusOK, loginResponse{UserID: userID})
}

// handleLogout revokes the session, if any, and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.deps.Sessions.Revoke(r.Context(), token); err != nil {
			errutil.LogErrorContext(r.Context(), s.loggerFrom(r.Context()), "logout failed", err)
			s.respond(w, r, http.StatusInternalServerError, errorResponse{Error: msgInternal})
			return
		}
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *auth.User) {
	s.respond(w, r, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Name:        user.Name(),
		Admin:       s.isAdmin(user),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	name, err := s.deps.Accounts.UpdateDisplayName(r.Context(), user.ID, req.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, accountResponse{DisplayName: name})
}
