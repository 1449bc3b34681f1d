// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

// Result counts what an import did.
type Result struct {
	Created int
	Skipped int
}

// Importer writes seed puzzles, skipping dates that already have one.
// Each puzzle is created on its own, so rerunning after a failure picks
// up where the last run stopped.
type Importer struct {
	puzzles puzzle.PuzzleRepository
	logger  *slog.Logger
}

// NewImporter creates an Importer. A nil logger uses slog.Default().
func NewImporter(puzzles puzzle.PuzzleRepository, logger *slog.Logger) (*Importer, error) {
	if puzzles == nil {
		return nil, oops.Code("SEED_IMPORTER_INVALID").Errorf("puzzle repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{puzzles: puzzles, logger: logger}, nil
}

// Import creates every puzzle whose date is free.
func (im *Importer) Import(ctx context.Context, puzzles []*puzzle.Puzzle) (Result, error) {
	var res Result
	for _, p := range puzzles {
		date := p.Date.Format(puzzle.DateLayout)

		existing, err := im.puzzles.GetByDate(ctx, p.Date)
		switch {
		case err == nil:
			res.Skipped++
			im.warnMismatch(ctx, existing, p)
			continue
		case !errors.Is(err, puzzle.ErrNotFound):
			return res, oops.Code("SEED_IMPORT_FAILED").With("date", date).Wrap(err)
		}

		if err := im.puzzles.Create(ctx, p); err != nil {
			if errors.Is(err, puzzle.ErrDuplicateDate) {
				// Another importer won the race.
				res.Skipped++
				continue
			}
			return res, oops.Code("SEED_IMPORT_FAILED").With("date", date).Wrap(err)
		}
		res.Created++
		im.logger.DebugContext(ctx, "seed puzzle created", "date", date, "puzzle_id", p.ID)
	}

	im.logger.InfoContext(ctx, "seed import finished", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func (im *Importer) warnMismatch(ctx context.Context, existing, want *puzzle.Puzzle) {
	date := want.Date.Format(puzzle.DateLayout)
	if existing.Name != want.Name {
		im.logger.WarnContext(ctx, "seed puzzle name differs from stored puzzle",
			"date", date, "expected", want.Name, "actual", existing.Name)
	}
	if existing.Type != want.Type {
		im.logger.WarnContext(ctx, "seed puzzle type differs from stored puzzle",
			"date", date, "expected", want.Type, "actual", existing.Type)
	}
	if existing.Answer != want.Answer {
		// Answers are secret; log only that they differ.
		im.logger.WarnContext(ctx, "seed puzzle answer differs from stored puzzle", "date", date)
	}
}
