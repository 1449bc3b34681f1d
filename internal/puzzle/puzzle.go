// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ReleaseHour is the UTC hour at which each day's puzzle becomes current.
const ReleaseHour = 9

// DateLayout is the wire and seed format of puzzle dates.
const DateLayout = "2006-01-02"

// Well-known puzzle types. Other short lowercase tags are allowed and are
// treated as free-text answers.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeLadder = "ladder"
	TypeChoice = "choice"
)

// Content limits.
const (
	MaxTypeLength     = 15
	MaxNameLength     = 127
	MaxQuestionLength = 1023
	MaxAnswerLength   = 1023
	MaxHintLength     = 511
)

// Puzzle is one day's content. Answer is never sent to clients.
type Puzzle struct {
	ID        int64
	Date      time.Time
	Type      string
	Name      string
	Question  string
	Answer    string
	Hint      string
	CreatedAt time.Time
}

// HasHint reports whether the puzzle has a hint to reveal.
func (p *Puzzle) HasHint() bool {
	return p.Hint != ""
}

// ReleasedAt reports whether the puzzle is playable at t.
func (p *Puzzle) ReleasedAt(t time.Time) bool {
	return !t.Before(ReleaseInstant(p.Date))
}

// Validate checks the content limits and that the answer has at least one
// usable alternative.
func (p *Puzzle) Validate() error {
	switch {
	case p.Date.IsZero():
		return oops.Code("PUZZLE_INVALID").With("field", "date").Errorf("date is required")
	case p.Type == "" || len(p.Type) > MaxTypeLength || strings.ToLower(p.Type) != p.Type:
		return oops.Code("PUZZLE_INVALID").With("field", "type").Errorf("type must be 1..%d lowercase characters", MaxTypeLength)
	case len(p.Name) > MaxNameLength:
		return oops.Code("PUZZLE_INVALID").With("field", "name").Errorf("name exceeds %d bytes", MaxNameLength)
	case strings.TrimSpace(p.Question) == "" || len(p.Question) > MaxQuestionLength:
		return oops.Code("PUZZLE_INVALID").With("field", "question").Errorf("question must be 1..%d bytes", MaxQuestionLength)
	case len(p.Answer) > MaxAnswerLength || len(Alternatives(p.Answer)) == 0:
		return oops.Code("PUZZLE_INVALID").With("field", "answer").Errorf("answer must contain at least one alternative")
	case len(p.Hint) > MaxHintLength:
		return oops.Code("PUZZLE_INVALID").With("field", "hint").Errorf("hint exceeds %d bytes", MaxHintLength)
	}
	switch p.Type {
	case TypeLadder:
		if _, err := ParseLadder(p.Question); err != nil {
			return err
		}
	case TypeChoice:
		if _, err := ParseChoice(p.Question); err != nil {
			return err
		}
	}
	return nil
}

// Attempt is the single record of a user's play on one puzzle.
type Attempt struct {
	ID               int64
	UserID           int64
	PuzzleID         int64
	IncorrectGuesses int
	HintUsed         bool
	Solved           bool
	Score            int
	CompletedAt      time.Time
	CreatedAt        time.Time
}

// ReleaseInstant returns 09:00 UTC on the calendar day of date.
func ReleaseInstant(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, ReleaseHour, 0, 0, 0, time.UTC)
}

// CurrentDate returns the date of the puzzle that is current at now.
// Before 09:00 UTC that is yesterday.
func CurrentDate(now time.Time) time.Time {
	y, m, d := now.UTC().Add(-ReleaseHour * time.Hour).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, oops.Code("PUZZLE_INVALID_DATE").With("date", s).Wrap(err)
	}
	return t, nil
}

// PuzzleRepository reads and creates puzzles.
type PuzzleRepository interface {
	// GetByID returns ErrNotFound when no puzzle has the id.
	GetByID(ctx context.Context, id int64) (*Puzzle, error)

	// GetByDate returns ErrNotFound when no puzzle has the date.
	GetByDate(ctx context.Context, date time.Time) (*Puzzle, error)

	// ListBefore returns puzzles dated strictly before date, newest first.
	ListBefore(ctx context.Context, date time.Time, limit int) ([]*Puzzle, error)

	// ListAll returns every puzzle, oldest first.
	ListAll(ctx context.Context, limit int) ([]*Puzzle, error)

	// Create stores p and sets p.ID. It returns ErrDuplicateDate when a
	// puzzle already exists for p.Date.
	Create(ctx context.Context, p *Puzzle) error
}

// AttemptRepository persists attempts. Every mutation is a single atomic
// statement at the storage layer.
type AttemptRepository interface {
	// Ensure returns the attempt for (userID, puzzleID), inserting an
	// unsolved one if none exists.
	Ensure(ctx context.Context, userID, puzzleID int64) (*Attempt, error)

	// Get returns ErrNotFound when the pair has no attempt.
	Get(ctx context.Context, userID, puzzleID int64) (*Attempt, error)

	// IncrementIncorrect adds one wrong guess to an unsolved attempt.
	IncrementIncorrect(ctx context.Context, id int64) error

	// MarkSolved solves the attempt if it is still unsolved and returns the
	// stored attempt. The score is ApplyPenalties(baseScore, ...) over the
	// counters stored at that moment, in the same atomic step. If another
	// request solved it first, the earlier score is returned unchanged.
	MarkSolved(ctx context.Context, id int64, baseScore int, at time.Time) (*Attempt, error)

	// MarkHintUsed sets the hint flag. Setting it twice is a no-op.
	MarkHintUsed(ctx context.Context, id int64) error
}
