package allocation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketledger/pocketledger/internal/storage"
	"github.com/pocketledger/pocketledger/pkg/category"
	log "github.com/sirupsen/logrus"
)

// Repository persists the budget configuration as a single blob:
// {"budget": "...", "allocs": {...}, "modes": {...}}.
type Repository interface {
	Load(ctx context.Context) (Config, error)
	Save(ctx context.Context, cfg Config) error
}

type budgetBlob struct {
	Budget string            `json:"budget"`
	Allocs map[string]string `json:"allocs"`
	Modes  map[string]string `json:"modes"`
}

type RepositoryImpl struct {
	kv storage.KVStore
}

func NewRepository(kv storage.KVStore) *RepositoryImpl {
	return &RepositoryImpl{kv: kv}
}

func (r *RepositoryImpl) Load(ctx context.Context) (Config, error) {
	data, found, err := r.kv.Get(ctx, storage.KeyBudgetData)
	if err != nil {
		return Config{}, fmt.Errorf("could not load budget config: %w", err)
	}
	if !found {
		log.Debug("No budget config stored yet, starting empty")
		return NewConfig(), nil
	}

	var blob budgetBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		err := fmt.Errorf("could not decode budget config: %w", err)
		log.Error(err)
		return Config{}, err
	}

	// Missing keys default to the empty/unset state.
	cfg := NewConfig()
	cfg.Budget = blob.Budget
	for _, c := range category.Spendable() {
		if raw, ok := blob.Allocs[string(c.ID)]; ok {
			cfg.Allocs[c.ID] = raw
		}
		if mode, ok := blob.Modes[string(c.ID)]; ok && UnitMode(mode) == UnitDollar {
			cfg.Modes[c.ID] = UnitDollar
		}
	}
	return cfg, nil
}

func (r *RepositoryImpl) Save(ctx context.Context, cfg Config) error {
	blob := budgetBlob{
		Budget: cfg.Budget,
		Allocs: map[string]string{},
		Modes:  map[string]string{},
	}
	for id, raw := range cfg.Allocs {
		blob.Allocs[string(id)] = raw
	}
	for id, mode := range cfg.Modes {
		blob.Modes[string(id)] = string(mode)
	}

	data, err := json.Marshal(blob)
	if err != nil {
		err := fmt.Errorf("could not encode budget config: %w", err)
		log.Error(err)
		return err
	}
	if err := r.kv.Set(ctx, storage.KeyBudgetData, data); err != nil {
		return fmt.Errorf("could not persist budget config: %w", err)
	}
	return nil
}
