package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
)

// Ensure KVStore implements the interface.
var _ driven.KVStore = (*KVStore)(nil)

// KVStore implements driven.KVStore using PostgreSQL.
// Used when no Redis is available. Expiry is enforced on read: expired rows
// are invisible to Get/GetDel and reaped by Cleanup.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new PostgreSQL-backed KVStore.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Set stores value under key, replacing any prior entry.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO kv_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, created_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value, or domain.ErrNotFound for absent or
// expired keys.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value FROM kv_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// GetDel atomically reads and removes the key via DELETE ... RETURNING.
func (s *KVStore) GetDel(ctx context.Context, key string) (string, error) {
	query := `
		DELETE FROM kv_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
		RETURNING value
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getdel %s: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Cleanup reaps rows whose TTL elapsed.
// Called periodically by the janitor.
func (s *KVStore) Cleanup(ctx context.Context) error {
	query := `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= now()`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cleanup expired entries: %w", err)
	}
	return nil
}
