package snapshot

import (
	"context"

	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/allocation"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Service recomputes snapshots on demand. The log is capped, so a full
// recomputation per request is cheap and avoids incremental-counter drift.
type Service interface {
	GetSnapshot(ctx context.Context, window Window) (Snapshot, error)
	CurrentWindow() Window
}

type ServiceImpl struct {
	store       ledger.Store
	allocations allocation.Service
	clock       utils.Clock
}

func NewServiceImpl(store ledger.Store, allocations allocation.Service, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		store:       store,
		allocations: allocations,
		clock:       clock,
	}
}

func (s *ServiceImpl) GetSnapshot(ctx context.Context, window Window) (Snapshot, error) {
	percents := map[category.ID]decimal.Decimal{}
	for _, c := range category.Spendable() {
		percents[c.ID] = s.allocations.PercentOf(c.ID)
	}

	return Aggregate(s.store.Entries(), percents, s.allocations.TotalBudget(), window), nil
}

func (s *ServiceImpl) CurrentWindow() Window {
	return WindowOf(s.clock.Now())
}
