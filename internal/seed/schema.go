// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

// SchemaID is the $id of the generated seed file schema.
const SchemaID = "https://dailypuzzle.dev/schemas/seed.schema.json"

var (
	compileOnce sync.Once
	compiled    *jschema.Schema
	compileErr  error
)

// GenerateSchema reflects File into an indented JSON Schema document.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		FieldNameTag:   "yaml",
	}
	schema := r.Reflect(&File{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Daily Puzzle seed file"
	schema.Description = "Puzzles imported by `dailypuzzle seed`"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "marshal schema").Wrap(err)
	}
	return data, nil
}

func compiledSchema() (*jschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = oops.Code("SEED_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = oops.Code("SEED_SCHEMA_FAILED").With("operation", "add schema resource").Wrap(err)
			return
		}
		compiled, err = c.Compile(SchemaID)
		if err != nil {
			compileErr = oops.Code("SEED_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
		}
	})
	return compiled, compileErr
}

// validateDocument checks a YAML-decoded document against the schema.
func validateDocument(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so numbers arrive as json.Number.
	raw, err := json.Marshal(toJSONTypes(doc))
	if err != nil {
		return oops.Code("SEED_INVALID").Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("SEED_INVALID").Wrap(err)
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("SEED_SCHEMA_VIOLATION").Wrap(errors.Join(ErrInvalid, err))
	}
	return nil
}

// toJSONTypes rewrites YAML-only values. Unquoted dates decode as
// time.Time and are turned back into YYYY-MM-DD.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = toJSONTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = toJSONTypes(v)
		}
		return out
	case time.Time:
		if val.Equal(val.Truncate(24 * time.Hour)) {
			return val.UTC().Format(puzzle.DateLayout)
		}
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
