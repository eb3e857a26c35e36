package followup

import (
	"context"
	"testing"
	"time"

	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/storage"
	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = &utils.MockClock{FixedNow: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)}

func followUpEntry(id string, amount string, day int) ledger.Entry {
	date := time.Date(2024, time.March, day, 10, 0, 0, 0, time.UTC)
	return ledger.Entry{
		ID:         id,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: category.FollowUp,
		Date:       date,
		InsertedAt: date,
	}
}

func setup(t *testing.T, seed []ledger.Entry) (*ServiceImpl, *ledger.StoreImpl, *ledger.StubRepository) {
	repo := ledger.NewStubRepository()
	repo.Seed(seed)
	t.Cleanup(repo.Cleanup)

	bus := event_bus.NewEventBus()
	store := ledger.NewStoreImpl(repo, clock, bus, 100)
	require.NoError(t, store.Load(context.Background()))

	return NewServiceImpl(store, bus, clock), store, repo
}

func stringPtr(s string) *string { return &s }

func catPtr(id category.ID) *category.ID { return &id }

func TestQueue_onlyPendingFollowUps(t *testing.T) {
	// given: a follow-up, a processed follow-up, and a regular expense
	processed := followUpEntry("f2", "10", 2)
	processed.Processed = true
	regular := followUpEntry("e1", "30", 3)
	regular.CategoryID = category.Food
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1), processed, regular})

	// when
	queue := service.Queue(context.Background())

	// then: only the pending follow-up is queued
	require.Len(t, queue, 1)
	assert.Equal(t, "f1", queue[0].ID)
}

func TestSkip_rotatesHeadToBack(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{
		followUpEntry("f1", "10", 3),
		followUpEntry("f2", "20", 2),
		followUpEntry("f3", "30", 1),
	})

	require.NoError(t, service.Skip(context.Background()))
	queue := service.Queue(context.Background())

	require.Len(t, queue, 3)
	assert.Equal(t, "f2", queue[0].ID)
	assert.Equal(t, "f3", queue[1].ID)
	assert.Equal(t, "f1", queue[2].ID)

	// skipping everything cycles back to the start
	require.NoError(t, service.Skip(context.Background()))
	require.NoError(t, service.Skip(context.Background()))
	queue = service.Queue(context.Background())
	assert.Equal(t, "f1", queue[0].ID)
}

func TestSkip_singleEntryIsANoop(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "10", 1)})

	require.NoError(t, service.Skip(context.Background()))

	queue := service.Queue(context.Background())
	require.Len(t, queue, 1)
	assert.Equal(t, "f1", queue[0].ID)
}

func TestBeginSplit_seedsDefaultLine(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})

	session, err := service.BeginSplit(context.Background(), "f1")

	require.NoError(t, err)
	assert.Equal(t, StateSplitting, session.State)
	require.Len(t, session.Lines, 1)
	assert.Equal(t, "Item 1", session.Lines[0].Description)
	assert.Equal(t, "50", session.Lines[0].Amount)
	assert.Equal(t, category.Shopping, session.Lines[0].CategoryID)
}

func TestBeginSplit_rejectsNonFollowUp(t *testing.T) {
	regular := followUpEntry("e1", "30", 1)
	regular.CategoryID = category.Food
	service, _, _ := setup(t, []ledger.Entry{regular})

	_, err := service.BeginSplit(context.Background(), "e1")
	assert.ErrorIs(t, err, ErrNotFollowUp)

	_, err = service.BeginSplit(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFollowUp)
}

func TestConfirm_splitsFollowUpAcrossCategories(t *testing.T) {
	// given: a $50 follow-up split into food $30 and shopping $20
	service, store, repo := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{
		Description: stringPtr("Groceries"),
		Amount:      stringPtr("30"),
		CategoryID:  catPtr(category.Food),
	})
	require.NoError(t, err)
	session, err = service.AddLine(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[1].ID, LineEdit{
		Description: stringPtr("Batteries"),
		Amount:      stringPtr("20"),
	})
	require.NoError(t, err)
	savesBefore := repo.Saves()

	// when
	records, err := service.Confirm(ctx, "f1")

	// then: two new entries dated like the original, one batched save
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "30", records[0].Amount.String())
	assert.Equal(t, category.Food, records[0].CategoryID)
	assert.Equal(t, "Groceries", records[0].Description)
	assert.Equal(t, category.Shopping, records[1].CategoryID)
	for _, record := range records {
		assert.Equal(t, "f1", record.SplitFromFollowUp)
		assert.Equal(t, time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC), record.Date)
	}
	assert.Equal(t, savesBefore+1, repo.Saves())

	// the original is processed and carries the split snapshot
	originals := store.Query(func(e ledger.Entry) bool { return e.ID == "f1" })
	require.Len(t, originals, 1)
	assert.True(t, originals[0].Processed)
	assert.Equal(t, 2, originals[0].SplitInto)
	require.Len(t, originals[0].SplitItems, 2)

	// the follow-up has left the queue and the session is gone
	assert.Empty(t, service.Queue(ctx))
	_, err = service.ActiveSession("f1")
	assert.ErrorIs(t, err, ErrNoActiveSplit)
}

func TestConfirm_rejectsMismatchedTotal(t *testing.T) {
	// given: a $100 follow-up with only $90 allocated
	service, store, _ := setup(t, []ledger.Entry{followUpEntry("f1", "100", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{Amount: stringPtr("90")})
	require.NoError(t, err)

	// when
	_, err = service.Confirm(ctx, "f1")

	// then: nothing changed, the message names the missing amount
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.EqualError(t, err, "$10.00 remaining to allocate")
	assert.Len(t, store.Entries(), 1)
	assert.False(t, store.Entries()[0].Processed)
	require.Len(t, service.Queue(ctx), 1)

	// the session survives for another attempt
	active, err := service.ActiveSession("f1")
	require.NoError(t, err)
	assert.Equal(t, StateSplitting, active.State)
}

func TestConfirm_reportsOverAllocation(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{Amount: stringPtr("62.50")})
	require.NoError(t, err)

	_, err = service.Confirm(ctx, "f1")

	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.EqualError(t, err, "$12.50 over the original amount")
}

func TestConfirm_toleratesOneCentRounding(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "10", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{Amount: stringPtr("3.33")})
	require.NoError(t, err)
	session, err = service.AddLine(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[1].ID, LineEdit{Amount: stringPtr("6.66")})
	require.NoError(t, err)

	records, err := service.Confirm(ctx, "f1")

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRemoveLine_keepsAtLeastOne(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)

	_, err = service.RemoveLine(ctx, "f1", session.Lines[0].ID)
	assert.ErrorIs(t, err, ErrMinimumOneLine)
}

func TestUpdateLine_rejectsFollowUpCategory(t *testing.T) {
	service, _, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)

	// a split line can never route money back into the follow-up inbox
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{CategoryID: catPtr(category.FollowUp)})
	assert.ErrorIs(t, err, ledger.ErrUnknownCategory)
}

func TestCancel_discardsEdits(t *testing.T) {
	service, store, _ := setup(t, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{Amount: stringPtr("25")})
	require.NoError(t, err)

	require.NoError(t, service.Cancel(ctx, "f1"))

	// back to Queued: the ledger is untouched, a fresh session starts clean
	assert.False(t, store.Entries()[0].Processed)
	require.Len(t, service.Queue(ctx), 1)
	session, err = service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "50", session.Lines[0].Amount)
}

func TestStatsRecorder_accumulatesOnSplit(t *testing.T) {
	kv := storage.NewStubKVStore()
	t.Cleanup(kv.Cleanup)
	bus := event_bus.NewEventBus()
	recorder := NewStatsRecorder(kv)
	recorder.Register(bus)

	service, _, _ := setupWithBus(t, bus, []ledger.Entry{followUpEntry("f1", "50", 1)})
	ctx := context.Background()

	session, err := service.BeginSplit(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[0].ID, LineEdit{
		Amount:     stringPtr("30"),
		CategoryID: catPtr(category.Food),
	})
	require.NoError(t, err)
	session, err = service.AddLine(ctx, "f1")
	require.NoError(t, err)
	_, err = service.UpdateLine(ctx, "f1", session.Lines[1].ID, LineEdit{Amount: stringPtr("20")})
	require.NoError(t, err)
	_, err = service.Confirm(ctx, "f1")
	require.NoError(t, err)

	stats := recorder.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.ByCategory[string(category.Food)].Count)
	assert.Equal(t, "30", stats.ByCategory[string(category.Food)].Total.String())
	assert.Equal(t, "20", stats.ByCategory[string(category.Shopping)].Total.String())

	// stats survive a restart through the kv blob
	restored := NewStatsRecorder(kv)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, 1, restored.Stats().Processed)
	assert.Equal(t, "30", restored.Stats().ByCategory[string(category.Food)].Total.String())
}

func setupWithBus(t *testing.T, bus *event_bus.EventBus, seed []ledger.Entry) (*ServiceImpl, *ledger.StoreImpl, *ledger.StubRepository) {
	repo := ledger.NewStubRepository()
	repo.Seed(seed)
	t.Cleanup(repo.Cleanup)

	store := ledger.NewStoreImpl(repo, clock, bus, 100)
	require.NoError(t, store.Load(context.Background()))
	return NewServiceImpl(store, bus, clock), store, repo
}
