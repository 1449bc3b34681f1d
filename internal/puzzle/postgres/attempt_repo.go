// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

const attemptColumns = `id, user_id, puzzle_id, incorrect_guesses, hint_used, solved, score, completed_at, created_at`

// AttemptRepository implements puzzle.AttemptRepository using PostgreSQL.
// Mutations are single statements so concurrent requests never lose an
// update.
type AttemptRepository struct {
	db store.DB
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db store.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func scanAttempt(row pgx.Row) (*puzzle.Attempt, error) {
	var (
		a           puzzle.Attempt
		score       *int
		completedAt *time.Time
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.PuzzleID, &a.IncorrectGuesses, &a.HintUsed,
		&a.Solved, &score, &completedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	if score != nil {
		a.Score = *score
	}
	if completedAt != nil {
		a.CompletedAt = *completedAt
	}
	return &a, nil
}

// Ensure upserts on (user_id, puzzle_id). The no-op update makes RETURNING
// produce the existing row.
func (r *AttemptRepository) Ensure(ctx context.Context, userID, puzzleID int64) (*puzzle.Attempt, error) {
	a, err := scanAttempt(store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO attempts (user_id, puzzle_id) VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT attempts_user_puzzle_key DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+attemptColumns, userID, puzzleID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, oops.Code("ATTEMPT_ENSURE_FAILED").
				With("user_id", userID).
				With("puzzle_id", puzzleID).
				With("constraint", pgErr.ConstraintName).
				Wrap(puzzle.ErrNotFound)
		}
		return nil, oops.Code("ATTEMPT_ENSURE_FAILED").
			With("operation", "upsert attempt").
			With("user_id", userID).
			With("puzzle_id", puzzleID).
			Wrap(err)
	}
	return a, nil
}

// Get retrieves the attempt for a user and puzzle.
func (r *AttemptRepository) Get(ctx context.Context, userID, puzzleID int64) (*puzzle.Attempt, error) {
	a, err := scanAttempt(store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND puzzle_id = $2`,
		userID, puzzleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ATTEMPT_NOT_FOUND").Wrap(puzzle.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ATTEMPT_GET_FAILED").
			With("operation", "get attempt").
			With("user_id", userID).
			With("puzzle_id", puzzleID).
			Wrap(err)
	}
	return a, nil
}

// IncrementIncorrect adds one wrong guess unless the attempt is solved.
func (r *AttemptRepository) IncrementIncorrect(ctx context.Context, id int64) error {
	_, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE attempts SET incorrect_guesses = incorrect_guesses + 1
		WHERE id = $1 AND NOT solved
	`, id)
	if err != nil {
		return oops.Code("ATTEMPT_INCREMENT_FAILED").
			With("operation", "increment incorrect_guesses").
			With("id", id).
			Wrap(err)
	}
	return nil
}

// MarkSolved stamps the score once, applying penalties from the row's own
// counters. When another request got there first the stored row is
// returned instead.
func (r *AttemptRepository) MarkSolved(ctx context.Context, id int64, baseScore int, at time.Time) (*puzzle.Attempt, error) {
	conn := store.Conn(ctx, r.db)
	a, err := scanAttempt(conn.QueryRow(ctx, `
		UPDATE attempts SET solved = TRUE, completed_at = $3,
			score = GREATEST($2::int - $4::int * incorrect_guesses - CASE WHEN hint_used THEN $5::int ELSE 0 END, $6::int)
		WHERE id = $1 AND NOT solved
		RETURNING `+attemptColumns,
		id, baseScore, at, puzzle.IncorrectGuessPenalty, puzzle.HintPenalty, puzzle.MinScore))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ATTEMPT_SOLVE_FAILED").
			With("operation", "mark attempt solved").
			With("id", id).
			Wrap(err)
	}

	a, err = scanAttempt(conn.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ATTEMPT_NOT_FOUND").With("id", id).Wrap(puzzle.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ATTEMPT_GET_FAILED").
			With("operation", "reload solved attempt").
			With("id", id).
			Wrap(err)
	}
	return a, nil
}

// MarkHintUsed sets hint_used.
func (r *AttemptRepository) MarkHintUsed(ctx context.Context, id int64) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx,
		`UPDATE attempts SET hint_used = TRUE WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ATTEMPT_HINT_FAILED").
			With("operation", "mark hint used").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ATTEMPT_NOT_FOUND").With("id", id).Wrap(puzzle.ErrNotFound)
	}
	return nil
}
