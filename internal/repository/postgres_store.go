package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type postgresStore struct {
	db        *PostgresDB
	namespace string
}

// NewPostgresStore создаёт таблицу kv_store, если её ещё нет
func NewPostgresStore(ctx context.Context, db *PostgresDB, namespace string) (KeyValueStore, error) {
	if _, err := db.Pool.Exec(ctx, createKVTable); err != nil {
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return &postgresStore{db: db, namespace: namespace}, nil
}

func (s *postgresStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value string
	err := s.db.Pool.QueryRow(ctx, query, namespaced(s.namespace, key)).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	return value, true, nil
}

func (s *postgresStore) SetItem(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Pool.Exec(ctx, query, namespaced(s.namespace, key), value); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}

	return nil
}
