package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Logical keys for the persisted JSON blobs. Missing keys are not an error:
// every consumer defaults to an empty state.
const (
	KeyBudgetData  = "budget_data"
	KeyExpenseLog  = "expense_log"
	KeyReviewStats = "review_stats"
)

// KVStore is the narrow persistence collaborator: whole JSON blobs by key.
type KVStore interface {
	// Get returns the blob stored under key, or (nil, false, nil) when the
	// key has never been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the blob stored under key atomically.
	Set(ctx context.Context, key string, value []byte) error
}

type KVStoreImpl struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStoreImpl {
	return &KVStoreImpl{db: db}
}

func (s *KVStoreImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := "SELECT value FROM kv_store WHERE key = ?"
	row := s.db.QueryRowContext(ctx, query, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		err := fmt.Errorf("could not read key %q: %w", key, err)
		log.Error(err)
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *KVStoreImpl) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, key, string(value)); err != nil {
		err := fmt.Errorf("could not write key %q: %w", key, err)
		log.Error(err)
		return err
	}
	return nil
}
