// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Archive limits.
const (
	DefaultArchiveLimit = 100
	MaxArchiveLimit     = 366
)

// MaxGuessLength bounds a submitted guess in bytes.
const MaxGuessLength = 1024

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service resolves puzzles and runs the attempt and scoring engine.
type Service struct {
	puzzles  PuzzleRepository
	attempts AttemptRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(puzzles PuzzleRepository, attempts AttemptRepository, cfg ServiceConfig) (*Service, error) {
	if puzzles == nil {
		return nil, oops.Code("PUZZLE_SERVICE_INVALID").Errorf("puzzle repository is required")
	}
	if attempts == nil {
		return nil, oops.Code("PUZZLE_SERVICE_INVALID").Errorf("attempt repository is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		puzzles:  puzzles,
		attempts: attempts,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// GuessResult is the outcome of SubmitGuess.
type GuessResult struct {
	Correct bool
	// Score is set only when Correct.
	Score int
	// AlreadySolved is true when the attempt was solved by an earlier call.
	AlreadySolved bool
}

// Today returns the puzzle that is current now.
func (s *Service) Today(ctx context.Context) (*Puzzle, error) {
	date := CurrentDate(s.now())
	p, err := s.puzzles.GetByDate(ctx, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("PUZZLE_NOT_FOUND").With("date", date.Format(DateLayout)).Wrap(ErrNotFound)
		}
		return nil, storageErr("today", err)
	}
	return p, nil
}

// Get returns a puzzle by id. Unreleased puzzles are reported as not found
// unless includeUnreleased is set.
func (s *Service) Get(ctx context.Context, id int64, includeUnreleased bool) (*Puzzle, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !includeUnreleased && !p.ReleasedAt(s.now()) {
		return nil, notFound(id)
	}
	return p, nil
}

// Archive lists puzzles released before the current one, newest first.
// With includeFuture every puzzle is listed, oldest first.
func (s *Service) Archive(ctx context.Context, limit int, includeFuture bool) ([]*Puzzle, error) {
	if limit <= 0 {
		limit = DefaultArchiveLimit
	}
	limit = min(limit, MaxArchiveLimit)

	var (
		list []*Puzzle
		err  error
	)
	if includeFuture {
		list, err = s.puzzles.ListAll(ctx, limit)
	} else {
		list, err = s.puzzles.ListBefore(ctx, CurrentDate(s.now()), limit)
	}
	if err != nil {
		return nil, storageErr("archive", err)
	}
	return list, nil
}

// Attempt returns the user's attempt on a puzzle, or nil if there is none.
func (s *Service) Attempt(ctx context.Context, userID, puzzleID int64) (*Attempt, error) {
	a, err := s.attempts.Get(ctx, userID, puzzleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, storageErr("get attempt", err)
	}
	return a, nil
}

// EnsureAttempt returns the id of the user's attempt on a puzzle, creating
// an unsolved one on first use.
func (s *Service) EnsureAttempt(ctx context.Context, userID, puzzleID int64) (int64, error) {
	a, err := s.ensure(ctx, userID, puzzleID)
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

// SubmitGuess checks a guess against the puzzle's answer. A solved attempt
// returns its recorded score without re-scoring. A wrong guess increments
// the attempt's incorrect-guess counter and changes nothing else.
func (s *Service) SubmitGuess(ctx context.Context, userID, puzzleID int64, guess string) (GuessResult, error) {
	if len(guess) > MaxGuessLength {
		return GuessResult{}, oops.Code("PUZZLE_INVALID_GUESS").
			With("length", len(guess)).
			Wrapf(ErrInvalidGuess, "guess exceeds %d bytes", MaxGuessLength)
	}

	p, err := s.load(ctx, puzzleID)
	if err != nil {
		return GuessResult{}, err
	}
	a, err := s.ensure(ctx, userID, puzzleID)
	if err != nil {
		return GuessResult{}, err
	}
	if a.Solved {
		return GuessResult{Correct: true, Score: a.Score, AlreadySolved: true}, nil
	}
	if NormalizeAnswer(guess) == "" {
		return GuessResult{}, oops.Code("PUZZLE_INVALID_GUESS").Wrapf(ErrInvalidGuess, "guess is empty")
	}

	if !CheckAnswer(guess, p.Answer) {
		if err := s.attempts.IncrementIncorrect(ctx, a.ID); err != nil {
			return GuessResult{}, storageErr("increment incorrect", err)
		}
		return GuessResult{}, nil
	}

	now := s.now()
	solved, err := s.attempts.MarkSolved(ctx, a.ID, BaseScore(now, p.Date), now)
	if err != nil {
		return GuessResult{}, storageErr("mark solved", err)
	}
	if !solved.CompletedAt.Equal(now) {
		s.logger.DebugContext(ctx, "attempt solved concurrently",
			"attempt_id", a.ID, "stored_score", solved.Score)
	}
	s.logger.InfoContext(ctx, "puzzle solved",
		"user_id", userID, "puzzle_id", puzzleID, "score", solved.Score,
		"incorrect_guesses", solved.IncorrectGuesses, "hint_used", solved.HintUsed)
	return GuessResult{Correct: true, Score: solved.Score}, nil
}

// RevealHint marks the hint as used on the user's attempt and returns it.
// Revealing again returns the same hint and changes nothing.
func (s *Service) RevealHint(ctx context.Context, userID, puzzleID int64) (string, error) {
	p, err := s.load(ctx, puzzleID)
	if err != nil {
		return "", err
	}
	if !p.HasHint() {
		return "", oops.Code("PUZZLE_NO_HINT").With("puzzle_id", puzzleID).Wrap(ErrNoHint)
	}
	a, err := s.ensure(ctx, userID, puzzleID)
	if err != nil {
		return "", err
	}
	if !a.HintUsed {
		if err := s.attempts.MarkHintUsed(ctx, a.ID); err != nil {
			return "", storageErr("mark hint used", err)
		}
	}
	return p.Hint, nil
}

func (s *Service) load(ctx context.Context, id int64) (*Puzzle, error) {
	p, err := s.puzzles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, storageErr("get puzzle", err)
	}
	return p, nil
}

func (s *Service) ensure(ctx context.Context, userID, puzzleID int64) (*Attempt, error) {
	a, err := s.attempts.Ensure(ctx, userID, puzzleID)
	if err != nil {
		return nil, storageErr("ensure attempt", err)
	}
	return a, nil
}
