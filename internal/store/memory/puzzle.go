// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package memory

import (
	"context"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type puzzleRepo Store

func (r *puzzleRepo) GetByID(ctx context.Context, id int64) (*puzzle.Puzzle, error) {
	defer (*Store)(r).lock(ctx)()
	p, ok := r.st.puzzles[id]
	if !ok {
		return nil, oops.Code("PUZZLE_NOT_FOUND").With("id", id).Wrap(puzzle.ErrNotFound)
	}
	return &p, nil
}

func (r *puzzleRepo) GetByDate(ctx context.Context, date time.Time) (*puzzle.Puzzle, error) {
	defer (*Store)(r).lock(ctx)()
	for _, p := range r.st.puzzles {
		if sameDay(p.Date, date) {
			return &p, nil
		}
	}
	return nil, oops.Code("PUZZLE_NOT_FOUND").With("date", date.Format(puzzle.DateLayout)).Wrap(puzzle.ErrNotFound)
}

func (r *puzzleRepo) sorted(keep func(p puzzle.Puzzle) bool) []*puzzle.Puzzle {
	out := make([]*puzzle.Puzzle, 0, len(r.st.puzzles))
	for _, p := range r.st.puzzles {
		if keep(p) {
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *puzzle.Puzzle) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

func (r *puzzleRepo) ListBefore(ctx context.Context, date time.Time, limit int) ([]*puzzle.Puzzle, error) {
	defer (*Store)(r).lock(ctx)()
	y, m, d := date.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	out := r.sorted(func(p puzzle.Puzzle) bool { return p.Date.Before(cutoff) })
	slices.Reverse(out)
	return out[:min(limit, len(out))], nil
}

func (r *puzzleRepo) ListAll(ctx context.Context, limit int) ([]*puzzle.Puzzle, error) {
	defer (*Store)(r).lock(ctx)()
	out := r.sorted(func(puzzle.Puzzle) bool { return true })
	return out[:min(limit, len(out))], nil
}

func (r *puzzleRepo) Create(ctx context.Context, p *puzzle.Puzzle) error {
	defer (*Store)(r).lock(ctx)()
	for _, existing := range r.st.puzzles {
		if sameDay(existing.Date, p.Date) {
			return oops.Code("PUZZLE_DUPLICATE_DATE").
				With("date", p.Date.Format(puzzle.DateLayout)).
				Wrap(puzzle.ErrDuplicateDate)
		}
	}
	r.st.nextPuzzle++
	p.ID = r.st.nextPuzzle
	y, m, d := p.Date.Date()
	p.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	r.st.puzzles[p.ID] = *p
	return nil
}

type attemptRepo Store

func (r *attemptRepo) Ensure(ctx context.Context, userID, puzzleID int64) (*puzzle.Attempt, error) {
	defer (*Store)(r).lock(ctx)()
	key := attemptKey{userID: userID, puzzleID: puzzleID}
	if a, ok := r.st.attempts[key]; ok {
		return &a, nil
	}
	if _, ok := r.st.puzzles[puzzleID]; !ok {
		return nil, oops.Code("ATTEMPT_ENSURE_FAILED").With("puzzle_id", puzzleID).Wrap(puzzle.ErrNotFound)
	}
	r.st.nextAttempt++
	a := puzzle.Attempt{
		ID:        r.st.nextAttempt,
		UserID:    userID,
		PuzzleID:  puzzleID,
		CreatedAt: r.now(),
	}
	r.st.attempts[key] = a
	r.st.attemptByID[a.ID] = key
	return &a, nil
}

func (r *attemptRepo) Get(ctx context.Context, userID, puzzleID int64) (*puzzle.Attempt, error) {
	defer (*Store)(r).lock(ctx)()
	a, ok := r.st.attempts[attemptKey{userID: userID, puzzleID: puzzleID}]
	if !ok {
		return nil, oops.Code("ATTEMPT_NOT_FOUND").Wrap(puzzle.ErrNotFound)
	}
	return &a, nil
}

// update applies fn to the attempt with id under the store lock.
func (r *attemptRepo) update(ctx context.Context, id int64, fn func(a *puzzle.Attempt)) (*puzzle.Attempt, error) {
	defer (*Store)(r).lock(ctx)()
	key, ok := r.st.attemptByID[id]
	if !ok {
		return nil, oops.Code("ATTEMPT_NOT_FOUND").With("id", id).Wrap(puzzle.ErrNotFound)
	}
	a := r.st.attempts[key]
	fn(&a)
	r.st.attempts[key] = a
	return &a, nil
}

func (r *attemptRepo) IncrementIncorrect(ctx context.Context, id int64) error {
	_, err := r.update(ctx, id, func(a *puzzle.Attempt) {
		if !a.Solved {
			a.IncorrectGuesses++
		}
	})
	return err
}

func (r *attemptRepo) MarkSolved(ctx context.Context, id int64, baseScore int, at time.Time) (*puzzle.Attempt, error) {
	return r.update(ctx, id, func(a *puzzle.Attempt) {
		if a.Solved {
			return
		}
		a.Solved = true
		a.Score = puzzle.ApplyPenalties(baseScore, a.IncorrectGuesses, a.HintUsed)
		a.CompletedAt = at
	})
}

func (r *attemptRepo) MarkHintUsed(ctx context.Context, id int64) error {
	_, err := r.update(ctx, id, func(a *puzzle.Attempt) {
		a.HintUsed = true
	})
	return err
}
