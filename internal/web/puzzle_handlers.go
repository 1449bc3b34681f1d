// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

// puzzleResponse is the client view of a puzzle. It has no answer field.
// The hint is included only after the user has revealed it.
type puzzleResponse struct {
	ID       int64               `json:"id"`
	Date     string              `json:"date"`
	Type     string              `json:"type"`
	Name     string              `json:"name,omitempty"`
	Question string              `json:"question"`
	Ladder   []puzzle.LadderStep `json:"ladder,omitempty"`
	Choice   *puzzle.Choice      `json:"choice,omitempty"`
	HasHint  bool                `json:"has_hint"`
	Hint     string              `json:"hint,omitempty"`
	Attempt  *attemptResponse    `json:"attempt,omitempty"`
}

type attemptResponse struct {
	IncorrectGuesses int        `json:"incorrect_guesses"`
	HintUsed         bool       `json:"hint_used"`
	Solved           bool       `json:"solved"`
	Score            *int       `json:"score,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type archiveEntry struct {
	ID   int64  `json:"id"`
	Date string `json:"date"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type archiveResponse struct {
	Puzzles []archiveEntry `json:"puzzles"`
}

type guessRequest struct {
	Guess string `json:"guess"`
}

type guessResponse struct {
	Correct       bool `json:"correct"`
	Score         int  `json:"score"`
	AlreadySolved bool `json:"already_solved,omitempty"`
}

type hintResponse struct {
	Hint string `json:"hint"`
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request, user *auth.User) {
	p, err := s.deps.Puzzles.Today(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePuzzle(w, r, user, p)
}

func (s *Server) handlePuzzle(w http.ResponseWriter, r *http.Request, user *auth.User) {
	p, ok := s.visiblePuzzle(w, r, user)
	if !ok {
		return
	}
	s.writePuzzle(w, r, user, p)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, user *auth.User) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest(oops.With("limit", v).Errorf("limit must be a non-negative integer")))
			return
		}
		limit = n
	}

	list, err := s.deps.Puzzles.Archive(r.Context(), limit, s.isAdmin(user))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := archiveResponse{Puzzles: make([]archiveEntry, 0, len(list))}
	for _, p := range list {
		resp.Puzzles = append(resp.Puzzles, archiveEntry{
			ID:   p.ID,
			Date: p.Date.Format(puzzle.DateLayout),
			Type: p.Type,
			Name: p.Name,
		})
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request, user *auth.User) {
	p, ok := s.visiblePuzzle(w, r, user)
	if !ok {
		return
	}
	var req guessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.deps.Puzzles.SubmitGuess(r.Context(), user.ID, p.ID, req.Guess)
	if err != nil {
		s.metrics.RecordGuess("error")
		s.fail(w, r, err)
		return
	}
	switch {
	case res.AlreadySolved:
		s.metrics.RecordGuess("repeat")
	case res.Correct:
		s.metrics.RecordGuess("correct")
	default:
		s.metrics.RecordGuess("incorrect")
	}
	s.respond(w, r, http.StatusOK, guessResponse{
		Correct:       res.Correct,
		Score:         res.Score,
		AlreadySolved: res.AlreadySolved,
	})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request, user *auth.User) {
	p, ok := s.visiblePuzzle(w, r, user)
	if !ok {
		return
	}
	hint, err := s.deps.Puzzles.RevealHint(r.Context(), user.ID, p.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordHint()
	s.respond(w, r, http.StatusOK, hintResponse{Hint: hint})
}

// visiblePuzzle loads the puzzle named by the {id} path segment. Unreleased
// puzzles are hidden from non-admins. Unparseable ids are reported as not
// found.
func (s *Server) visiblePuzzle(w http.ResponseWriter, r *http.Request, user *auth.User) (*puzzle.Puzzle, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(w, r, oops.Code("PUZZLE_NOT_FOUND").With("id", r.PathValue("id")).Wrap(puzzle.ErrNotFound))
		return nil, false
	}
	p, err := s.deps.Puzzles.Get(r.Context(), id, s.isAdmin(user))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return p, true
}

func (s *Server) writePuzzle(w http.ResponseWriter, r *http.Request, user *auth.User, p *puzzle.Puzzle) {
	a, err := s.deps.Puzzles.Attempt(r.Context(), user.ID, p.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, s.puzzleView(r, p, a))
}

func (s *Server) puzzleView(r *http.Request, p *puzzle.Puzzle, a *puzzle.Attempt) puzzleResponse {
	resp := puzzleResponse{
		ID:       p.ID,
		Date:     p.Date.Format(puzzle.DateLayout),
		Type:     p.Type,
		Name:     p.Name,
		Question: p.Question,
		HasHint:  p.HasHint(),
	}

	var err error
	switch p.Type {
	case puzzle.TypeLadder:
		resp.Ladder, err = puzzle.ParseLadder(p.Question)
	case puzzle.TypeChoice:
		resp.Choice, err = puzzle.ParseChoice(p.Question)
	}
	if err != nil {
		s.loggerFrom(r.Context()).WarnContext(r.Context(), "stored question does not parse",
			"puzzle_id", p.ID, "type", p.Type, "error", err)
	}

	if a != nil {
		view := &attemptResponse{
			IncorrectGuesses: a.IncorrectGuesses,
			HintUsed:         a.HintUsed,
			Solved:           a.Solved,
		}
		if a.Solved {
			score, at := a.Score, a.CompletedAt
			view.Score, view.CompletedAt = &score, &at
		}
		if a.HintUsed {
			resp.Hint = p.Hint
		}
		resp.Attempt = view
	}
	return resp
}
