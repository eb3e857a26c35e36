package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketledger/pocketledger/internal/storage"
	log "github.com/sirupsen/logrus"
)

// Repository persists the full expense log as a single blob. There is no
// partial write: every Save replaces the whole log.
type Repository interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// expenseLogBlob is the stored shape: {"log": [...]}.
type expenseLogBlob struct {
	Log []Entry `json:"log"`
}

type RepositoryImpl struct {
	kv storage.KVStore
}

func NewRepository(kv storage.KVStore) *RepositoryImpl {
	return &RepositoryImpl{kv: kv}
}

func (r *RepositoryImpl) Load(ctx context.Context) ([]Entry, error) {
	data, found, err := r.kv.Get(ctx, storage.KeyExpenseLog)
	if err != nil {
		return nil, fmt.Errorf("could not load expense log: %w", err)
	}
	if !found {
		log.Debug("No expense log stored yet, starting empty")
		return nil, nil
	}

	var blob expenseLogBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		err := fmt.Errorf("could not decode expense log: %w", err)
		log.Error(err)
		return nil, err
	}
	return blob.Log, nil
}

func (r *RepositoryImpl) Save(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(expenseLogBlob{Log: entries})
	if err != nil {
		err := fmt.Errorf("could not encode expense log: %w", err)
		log.Error(err)
		return err
	}
	if err := r.kv.Set(ctx, storage.KeyExpenseLog, data); err != nil {
		return fmt.Errorf("could not persist expense log: %w", err)
	}
	return nil
}
