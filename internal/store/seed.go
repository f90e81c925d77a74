package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/phantom040901/devpath-cli/internal/assess"
)

// definitionSchema is the JSON schema a definition file must satisfy before
// it is imported. Validation runs against the raw document, so a malformed
// file is rejected whole rather than half-inserted.
var definitionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"collection": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"subject_id": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"title": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"description": map[string]any{
			"type": "string",
		},
		"variant": map[string]any{
			"type": "string",
			"enum": []any{"academic", "technical"},
		},
		"passage": map[string]any{
			"type": "string",
		},
		"passage_secs": map[string]any{
			"type":    "integer",
			"minimum": 0,
		},
		"scoring_mode": map[string]any{
			"type": "string",
			"enum": []any{"percentageCorrect", "numericScale1to9", "tieredLabel"},
		},
		"rated": map[string]any{
			"type": "boolean",
		},
		"sample_size": map[string]any{
			"type":    "integer",
			"minimum": 0,
		},
		"duration_secs": map[string]any{
			"type":    "integer",
			"minimum": 1,
		},
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":      "string",
						"minLength": 1,
					},
					"prompt": map[string]any{
						"type":      "string",
						"minLength": 1,
					},
					"image": map[string]any{
						"type": "string",
					},
					"options": map[string]any{
						"type":     "array",
						"minItems": 2,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id": map[string]any{
									"type":      "string",
									"minLength": 1,
								},
								"label": map[string]any{
									"type":      "string",
									"minLength": 1,
								},
								"correct": map[string]any{
									"type": "boolean",
								},
								"points": map[string]any{
									"type":    "integer",
									"minimum": 0,
									"maximum": 9,
								},
							},
							"required":             []any{"id", "label"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []any{"id", "prompt", "options"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"collection", "subject_id", "title", "variant", "scoring_mode", "duration_secs", "questions"},
	"additionalProperties": false,
}

var (
	compileSchemaOnce sync.Once
	compiledSchema    *jsonschema.Schema
	compileSchemaErr  error
)

func compiledDefinitionSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://definition.json", definitionSchema); err != nil {
			compileSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileSchemaErr = c.Compile("schema://definition.json")
	})
	return compiledSchema, compileSchemaErr
}

// ImportDefinitions reads a JSON file holding one definition or an array of
// them, validates every document against the definition schema, and upserts
// them. Nothing is written unless the whole file validates.
func (r *DefinitionRepo) ImportDefinitions(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	docs, err := splitDefinitionDocs(raw)
	if err != nil {
		return 0, err
	}

	schema, err := compiledDefinitionSchema()
	if err != nil {
		return 0, fmt.Errorf("compile definition schema: %w", err)
	}

	defs := make([]assess.TestDefinition, 0, len(docs))
	for i, doc := range docs {
		var parsed any
		if err := json.Unmarshal(doc, &parsed); err != nil {
			return 0, fmt.Errorf("definition %d: invalid JSON: %w", i+1, err)
		}
		if err := schema.Validate(parsed); err != nil {
			return 0, fmt.Errorf("definition %d: %w", i+1, err)
		}
		var def assess.TestDefinition
		if err := json.Unmarshal(doc, &def); err != nil {
			return 0, fmt.Errorf("definition %d: %w", i+1, err)
		}
		defs = append(defs, def)
	}

	for i := range defs {
		if err := r.Put(ctx, &defs[i]); err != nil {
			return i, err
		}
	}
	return len(defs), nil
}

// splitDefinitionDocs accepts either a single JSON object or a JSON array
// of objects and returns the individual documents.
func splitDefinitionDocs(raw []byte) ([]json.RawMessage, error) {
	trimmed := json.RawMessage(raw)
	var arr []json.RawMessage
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		return arr, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("parse definitions file: %w", err)
	}
	return []json.RawMessage{trimmed}, nil
}
