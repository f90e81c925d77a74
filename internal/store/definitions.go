package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/assess"
)

// DefinitionRepo reads and writes assessment definitions. Reads implement
// the engine's DefinitionStore port; writes exist only for the import path.
type DefinitionRepo struct {
	db *sql.DB
}

// Definition loads one definition by (collection, subject). A missing row
// maps to assess.ErrDefinitionNotFound.
func (r *DefinitionRepo) Definition(ctx context.Context, collection, subjectID string) (*assess.TestDefinition, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT collection, subject_id, title, description, variant,
		       passage, passage_secs, scoring_mode, rated, sample_size,
		       duration_secs, questions
		FROM definitions
		WHERE collection = ? AND subject_id = ?`,
		collection, subjectID)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assess.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("query definition: %w", err)
	}
	return def, nil
}

// List returns all definitions in a collection, ordered by title.
// An empty collection lists everything.
func (r *DefinitionRepo) List(ctx context.Context, collection string) ([]assess.TestDefinition, error) {
	query := `
		SELECT collection, subject_id, title, description, variant,
		       passage, passage_secs, scoring_mode, rated, sample_size,
		       duration_secs, questions
		FROM definitions`
	args := []any{}
	if collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY collection, title`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []assess.TestDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// Put inserts or replaces a definition.
func (r *DefinitionRepo) Put(ctx context.Context, def *assess.TestDefinition) error {
	questions, err := json.Marshal(def.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO definitions
			(collection, subject_id, title, description, variant,
			 passage, passage_secs, scoring_mode, rated, sample_size,
			 duration_secs, questions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.Collection, def.SubjectID, def.Title, def.Description, string(def.Variant),
		def.Passage, def.PassageSecs, string(def.ScoringMode), boolToInt(def.Rated),
		def.SampleSize, def.DurationSecs, string(questions))
	if err != nil {
		return fmt.Errorf("put definition: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(s scanner) (*assess.TestDefinition, error) {
	var def assess.TestDefinition
	var variant, mode, questions string
	var rated int
	err := s.Scan(
		&def.Collection, &def.SubjectID, &def.Title, &def.Description, &variant,
		&def.Passage, &def.PassageSecs, &mode, &rated, &def.SampleSize,
		&def.DurationSecs, &questions,
	)
	if err != nil {
		return nil, err
	}
	def.Variant = assess.Variant(variant)
	def.ScoringMode = assess.ScoringMode(mode)
	def.Rated = rated != 0
	if err := json.Unmarshal([]byte(questions), &def.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
