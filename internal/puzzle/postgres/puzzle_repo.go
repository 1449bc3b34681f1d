// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package postgres implements the puzzle and attempt repositories on
// PostgreSQL.
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

const puzzleColumns = `id, release_date, type, name, question, answer_spec, COALESCE(hint, ''), created_at`

// PuzzleRepository implements puzzle.PuzzleRepository using PostgreSQL.
type PuzzleRepository struct {
	db store.DB
}

// NewPuzzleRepository creates a new PuzzleRepository.
func NewPuzzleRepository(db store.DB) *PuzzleRepository {
	return &PuzzleRepository{db: db}
}

func scanPuzzle(row pgx.Row) (*puzzle.Puzzle, error) {
	var p puzzle.Puzzle
	if err := row.Scan(&p.ID, &p.Date, &p.Type, &p.Name, &p.Question, &p.Answer, &p.Hint, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a puzzle by id.
func (r *PuzzleRepository) GetByID(ctx context.Context, id int64) (*puzzle.Puzzle, error) {
	p, err := scanPuzzle(store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PUZZLE_NOT_FOUND").With("id", id).Wrap(puzzle.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PUZZLE_GET_FAILED").
			With("operation", "get puzzle by id").
			With("id", id).
			Wrap(err)
	}
	return p, nil
}

// GetByDate retrieves the puzzle released on date.
func (r *PuzzleRepository) GetByDate(ctx context.Context, date time.Time) (*puzzle.Puzzle, error) {
	p, err := scanPuzzle(store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+puzzleColumns+` FROM puzzles WHERE release_date = $1`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PUZZLE_NOT_FOUND").
			With("date", date.Format(puzzle.DateLayout)).
			Wrap(puzzle.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PUZZLE_GET_FAILED").
			With("operation", "get puzzle by date").
			Wrap(err)
	}
	return p, nil
}

// ListBefore lists puzzles released strictly before date, newest first.
func (r *PuzzleRepository) ListBefore(ctx context.Context, date time.Time, limit int) ([]*puzzle.Puzzle, error) {
	return r.list(ctx, "list puzzles before date", `
		SELECT `+puzzleColumns+`
		FROM puzzles
		WHERE release_date < $1
		ORDER BY release_date DESC
		LIMIT $2
	`, date, limit)
}

// ListAll lists every puzzle, oldest first.
func (r *PuzzleRepository) ListAll(ctx context.Context, limit int) ([]*puzzle.Puzzle, error) {
	return r.list(ctx, "list all puzzles", `
		SELECT `+puzzleColumns+`
		FROM puzzles
		ORDER BY release_date ASC
		LIMIT $1
	`, limit)
}

func (r *PuzzleRepository) list(ctx context.Context, operation, query string, args ...any) ([]*puzzle.Puzzle, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("PUZZLE_LIST_FAILED").With("operation", operation).Wrap(err)
	}
	defer rows.Close()

	var out []*puzzle.Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, oops.Code("PUZZLE_SCAN_FAILED").
				With("operation", "scan puzzle row").
				Wrap(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PUZZLE_ROWS_ERROR").
			With("operation", "iterate puzzle rows").
			Wrap(err)
	}
	return out, nil
}

// Create inserts p and sets its id and creation time.
func (r *PuzzleRepository) Create(ctx context.Context, p *puzzle.Puzzle) error {
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO puzzles (release_date, type, name, question, answer_spec, hint)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at
	`, p.Date, p.Type, p.Name, p.Question, p.Answer, p.Hint).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("PUZZLE_DUPLICATE_DATE").
				With("date", p.Date.Format(puzzle.DateLayout)).
				Wrap(puzzle.ErrDuplicateDate)
		}
		return oops.Code("PUZZLE_CREATE_FAILED").
			With("operation", "insert puzzle").
			With("date", p.Date.Format(puzzle.DateLayout)).
			Wrap(err)
	}
	return nil
}
