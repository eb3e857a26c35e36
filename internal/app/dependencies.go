package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pocketledger/pocketledger/internal/config"
	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/storage"
	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/allocation"
	"github.com/pocketledger/pocketledger/pkg/attachment"
	"github.com/pocketledger/pocketledger/pkg/followup"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/pocketledger/pocketledger/pkg/snapshot"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	KVStore  storage.KVStore

	LedgerRepo    ledger.Repository
	LedgerStore   *ledger.StoreImpl
	LedgerHandler *ledger.Handler

	AllocationRepo    allocation.Repository
	AllocationService *allocation.ServiceImpl
	AllocationHandler *allocation.Handler

	SnapshotService *snapshot.ServiceImpl
	SnapshotHandler *snapshot.Handler

	FollowUpService *followup.ServiceImpl
	StatsRecorder   *followup.StatsRecorder
	FollowUpHandler *followup.Handler

	AttachmentService *attachment.ServiceImpl
	AttachmentHandler *attachment.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and
// handlers, loading the persisted state into memory.
func BuildDependencies(ctx context.Context, db *sql.DB, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	deps.KVStore = storage.NewKVStore(db)

	deps.LedgerRepo = ledger.NewRepository(deps.KVStore)
	deps.LedgerStore = ledger.NewStoreImpl(deps.LedgerRepo, deps.Clock, deps.EventBus, cfg.Ledger.RetentionCap)
	if err := deps.LedgerStore.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	deps.LedgerHandler = ledger.NewHandler(deps.LedgerStore)

	deps.AllocationRepo = allocation.NewRepository(deps.KVStore)
	deps.AllocationService = allocation.NewServiceImpl(deps.AllocationRepo)
	if err := deps.AllocationService.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	deps.AllocationHandler = allocation.NewHandler(deps.AllocationService)

	deps.SnapshotService = snapshot.NewServiceImpl(deps.LedgerStore, deps.AllocationService, deps.Clock)
	deps.SnapshotHandler = snapshot.NewHandler(deps.SnapshotService)

	deps.StatsRecorder = followup.NewStatsRecorder(deps.KVStore)
	if err := deps.StatsRecorder.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load review stats: %w", err)
	}
	deps.StatsRecorder.Register(deps.EventBus)
	deps.FollowUpService = followup.NewServiceImpl(deps.LedgerStore, deps.EventBus, deps.Clock)
	deps.FollowUpHandler = followup.NewHandler(deps.FollowUpService, deps.StatsRecorder)

	deps.AttachmentService = attachment.NewServiceImpl(cfg.DataDir, deps.Clock)
	deps.AttachmentHandler = attachment.NewHandler(deps.AttachmentService)

	return deps, nil
}
