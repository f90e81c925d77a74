package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheRepo is the durable snapshot cache behind session resume. It
// implements the engine's KV port: Get on an absent key returns (nil, nil).
type CacheRepo struct {
	db *sql.DB
}

func (r *CacheRepo) Get(key string) ([]byte, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM session_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return []byte(value), nil
}

func (r *CacheRepo) Set(key string, value []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO session_cache (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *CacheRepo) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM session_cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Clear drops every cached snapshot. Used by the reset command.
func (r *CacheRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_cache`)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}
