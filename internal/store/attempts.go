package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/assess"
)

// AttemptRepo is the result store: append-only graded attempt records,
// keyed "{collection}_{subjectID}_{attempt}". It implements the engine's
// AttemptStore port.
type AttemptRepo struct {
	db *sql.DB
}

// ListAttempts returns the graded attempts recorded for one
// (user, collection, subject) scope, oldest first.
func (r *AttemptRepo) ListAttempts(ctx context.Context, userID, collection, subjectID string) ([]assess.AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, collection, subject_id, attempt,
		       score, label, correct, total, answers, submitted_at
		FROM attempts
		WHERE user_id = ? AND collection = ? AND subject_id = ?
		ORDER BY attempt`,
		userID, collection, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// ListByUser returns every attempt a user has recorded, newest first.
func (r *AttemptRepo) ListByUser(ctx context.Context, userID string) ([]assess.AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, collection, subject_id, attempt,
		       score, label, correct, total, answers, submitted_at
		FROM attempts
		WHERE user_id = ?
		ORDER BY submitted_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts by user: %w", err)
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// PutAttempt appends one record. The primary key on the
// "{collection}_{subjectID}_{attempt}" id makes a duplicate write (two
// clients racing for the same attempt number) a hard failure rather than a
// silent overwrite.
func (r *AttemptRepo) PutAttempt(ctx context.Context, rec *assess.AttemptRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO attempts
			(id, session_id, user_id, collection, subject_id, attempt,
			 score, label, correct, total, answers, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.UserID, rec.Collection, rec.SubjectID, rec.Attempt,
		rec.Score, string(rec.Label), rec.Correct, rec.Total, string(answers), rec.SubmittedAt)
	if err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

func collectAttempts(rows *sql.Rows) ([]assess.AttemptRecord, error) {
	var recs []assess.AttemptRecord
	for rows.Next() {
		var rec assess.AttemptRecord
		var label, answers string
		err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.UserID, &rec.Collection, &rec.SubjectID,
			&rec.Attempt, &rec.Score, &label, &rec.Correct, &rec.Total,
			&answers, &rec.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Label = assess.Tier(label)
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
