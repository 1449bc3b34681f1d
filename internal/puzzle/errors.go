// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrNotFound is returned when a puzzle or attempt does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoHint is returned by RevealHint for puzzles without a hint.
	ErrNoHint = errors.New("puzzle has no hint")

	// ErrInvalidGuess reports an empty or oversized guess.
	ErrInvalidGuess = errors.New("invalid guess")

	// ErrInvalidQuestion reports a question payload that does not parse.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrDuplicateDate is returned when a puzzle already exists for a date.
	ErrDuplicateDate = errors.New("puzzle already exists for date")

	// ErrStorage reports a persistence failure.
	ErrStorage = errors.New("storage failure")
)

func notFound(puzzleID int64) error {
	return oops.Code("PUZZLE_NOT_FOUND").With("puzzle_id", puzzleID).Wrap(ErrNotFound)
}

func storageErr(operation string, err error) error {
	return oops.Code("PUZZLE_STORAGE_FAILED").
		With("operation", operation).
		Wrap(errors.Join(ErrStorage, err))
}
