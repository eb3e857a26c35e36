package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/storage"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CategoryStat counts the split lines routed to one category and their total
// amount, across all processed follow-ups.
type CategoryStat struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// ReviewStats is the persisted review history: how many follow-ups were
// processed and where their money went.
type ReviewStats struct {
	Processed  int                     `json:"right"`
	ByCategory map[string]CategoryStat `json:"byCategory"`
}

// StatsRecorder keeps the review stats, updated through the event bus on
// every confirmed split and persisted as its own blob.
type StatsRecorder struct {
	mu    sync.Mutex
	kv    storage.KVStore
	stats ReviewStats
}

func NewStatsRecorder(kv storage.KVStore) *StatsRecorder {
	return &StatsRecorder{
		kv:    kv,
		stats: ReviewStats{ByCategory: map[string]CategoryStat{}},
	}
}

// Load reads the persisted stats. A missing blob starts at zero.
func (r *StatsRecorder) Load(ctx context.Context) error {
	data, found, err := r.kv.Get(ctx, storage.KeyReviewStats)
	if err != nil {
		return fmt.Errorf("failed to load review stats: %w", err)
	}
	if !found {
		return nil
	}

	var stats ReviewStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return fmt.Errorf("failed to decode review stats: %w", err)
	}
	if stats.ByCategory == nil {
		stats.ByCategory = map[string]CategoryStat{}
	}
	r.mu.Lock()
	r.stats = stats
	r.mu.Unlock()
	return nil
}

// Register subscribes the recorder to split confirmations.
func (r *StatsRecorder) Register(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.FollowUpSplit, r.onSplit)
}

func (r *StatsRecorder) onSplit(ctx context.Context, event event_bus.FollowUpSplitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Processed++
	for _, line := range event.Lines {
		stat := r.stats.ByCategory[line.CategoryID]
		stat.Count++
		stat.Total = stat.Total.Add(line.Amount)
		r.stats.ByCategory[line.CategoryID] = stat
	}

	data, err := json.Marshal(r.stats)
	if err != nil {
		return fmt.Errorf("failed to encode review stats: %w", err)
	}
	if err := r.kv.Set(ctx, storage.KeyReviewStats, data); err != nil {
		// Same optimistic policy as the ledger: the in-memory stats stand.
		log.Errorf("failed to persist review stats: %v", err)
	}
	return nil
}

// Stats returns a copy of the current review stats.
func (r *StatsRecorder) Stats() ReviewStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := ReviewStats{
		Processed:  r.stats.Processed,
		ByCategory: map[string]CategoryStat{},
	}
	for id, stat := range r.stats.ByCategory {
		copied.ByCategory[id] = stat
	}
	return copied
}
