// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package seed loads puzzle seed files and imports them idempotently.
//
// A seed file is YAML:
//
//	schema_version: "1.0.0"
//	puzzles:
//	  - date: "2026-06-15"
//	    type: text
//	    name: Riddle
//	    question: What has keys but can't open locks?
//	    answer: piano|keyboard
//	    hint: It makes music
//
// Files are checked against a JSON Schema reflected from File, then each
// entry is validated as a puzzle.Puzzle.
package seed

import (
	"bytes"
	"errors"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

// CurrentSchemaVersion is written by tooling and accepted by Parse.
const CurrentSchemaVersion = "1.0.0"

// SupportedSchemaVersions is the semver range Parse accepts.
const SupportedSchemaVersions = "^1.0"

var supported = mustConstraint(SupportedSchemaVersions)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	// ErrInvalid reports a malformed seed file.
	ErrInvalid = errors.New("invalid seed file")

	// ErrUnsupportedVersion reports a schema_version outside SupportedSchemaVersions.
	ErrUnsupportedVersion = errors.New("unsupported seed schema version")
)

// File is the top-level seed document.
type File struct {
	SchemaVersion string   `yaml:"schema_version" jsonschema:"pattern=^[0-9]+\\.[0-9]+\\.[0-9]+$,description=Seed format version (semver)"`
	Puzzles       []Puzzle `yaml:"puzzles" jsonschema:"minItems=1"`
}

// Puzzle is one seed entry.
type Puzzle struct {
	Date     string `yaml:"date" jsonschema:"pattern=^[0-9]{4}-[0-9]{2}-[0-9]{2}$,description=Release date (YYYY-MM-DD) at 09:00 UTC"`
	Type     string `yaml:"type" jsonschema:"minLength=1,maxLength=15,pattern=^[a-z][a-z0-9_]*$"`
	Name     string `yaml:"name,omitempty" jsonschema:"maxLength=127"`
	Question string `yaml:"question" jsonschema:"minLength=1,maxLength=1023"`
	Answer   string `yaml:"answer" jsonschema:"minLength=1,maxLength=1023,description=Accepted answers separated by |"`
	Hint     string `yaml:"hint,omitempty" jsonschema:"maxLength=511"`
}

// ToPuzzle converts and validates the entry.
func (p Puzzle) ToPuzzle() (*puzzle.Puzzle, error) {
	date, err := puzzle.ParseDate(p.Date)
	if err != nil {
		return nil, err
	}
	out := &puzzle.Puzzle{
		Date:     date,
		Type:     p.Type,
		Name:     p.Name,
		Question: p.Question,
		Answer:   p.Answer,
		Hint:     p.Hint,
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads and parses a seed file from disk.
func Load(path string) ([]*puzzle.Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	puzzles, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return puzzles, nil
}

// Parse validates a seed document and returns its puzzles in file order.
// Two entries for the same date are rejected.
func Parse(data []byte) ([]*puzzle.Puzzle, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code("SEED_INVALID").Wrap(errors.Join(ErrInvalid, errors.New("seed file is empty")))
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "parse yaml").Wrap(errors.Join(ErrInvalid, err))
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "decode yaml").Wrap(errors.Join(ErrInvalid, err))
	}

	if err := checkVersion(f.SchemaVersion); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(f.Puzzles))
	out := make([]*puzzle.Puzzle, 0, len(f.Puzzles))
	for i, entry := range f.Puzzles {
		p, err := entry.ToPuzzle()
		if err != nil {
			return nil, oops.Code("SEED_INVALID").
				With("index", i).
				With("date", entry.Date).
				Wrap(errors.Join(ErrInvalid, err))
		}
		key := p.Date.Format(puzzle.DateLayout)
		if first, dup := seen[key]; dup {
			return nil, oops.Code("SEED_DUPLICATE_DATE").
				With("index", i).
				With("first_index", first).
				With("date", key).
				Wrap(errors.Join(ErrInvalid, puzzle.ErrDuplicateDate))
		}
		seen[key] = i
		out = append(out, p)
	}
	return out, nil
}

func checkVersion(v string) error {
	version, err := semver.StrictNewVersion(v)
	if err != nil {
		return oops.Code("SEED_UNSUPPORTED_VERSION").
			With("schema_version", v).
			Wrap(errors.Join(ErrUnsupportedVersion, err))
	}
	if !supported.Check(version) {
		return oops.Code("SEED_UNSUPPORTED_VERSION").
			With("schema_version", v).
			With("supported", SupportedSchemaVersions).
			Wrap(ErrUnsupportedVersion)
	}
	return nil
}
