package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = &utils.MockClock{FixedNow: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)}

func setup(t *testing.T, retentionCap int) (*StoreImpl, *StubRepository, func()) {
	repo := NewStubRepository()
	store := NewStoreImpl(repo, clock, event_bus.NewEventBus(), retentionCap)
	require.NoError(t, store.Load(context.Background()))

	return store, repo, func() {
		t.Log("Teardown after test")
		repo.Cleanup()
	}
}

func TestStoreImpl_Append_keepsMostRecentFirst(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	// given
	ctx := context.Background()
	first := Entry{Amount: decimal.NewFromInt(10), CategoryID: category.Food, Date: clock.Now()}
	second := Entry{Amount: decimal.NewFromInt(20), CategoryID: category.Bills, Date: clock.Now()}

	// when
	firstId, err := store.Append(ctx, first)
	require.NoError(t, err)
	secondId, err := store.Append(ctx, second)
	require.NoError(t, err)

	// then
	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, secondId, entries[0].ID)
	assert.Equal(t, firstId, entries[1].ID)
	assert.NotEqual(t, firstId, secondId)
	assert.False(t, entries[0].InsertedAt.IsZero())
}

func TestStoreImpl_Append_enforcesRetentionCap(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	// given
	ctx := context.Background()
	oldestId, err := store.Append(ctx, Entry{
		ID:         "oldest",
		Amount:     decimal.NewFromInt(1),
		CategoryID: category.Food,
		Date:       clock.Now(),
	})
	require.NoError(t, err)

	// when: 100 more appends push the log one past the cap
	for i := 0; i < 100; i++ {
		_, err := store.Append(ctx, Entry{
			ID:         fmt.Sprintf("entry-%d", i),
			Amount:     decimal.NewFromInt(1),
			CategoryID: category.Food,
			Date:       clock.Now(),
		})
		require.NoError(t, err)
	}

	// then: exactly the oldest insert is gone
	entries := store.Entries()
	assert.Len(t, entries, 100)
	for _, entry := range entries {
		assert.NotEqual(t, oldestId, entry.ID)
	}
	assert.Equal(t, "entry-0", entries[99].ID)
}

func TestStoreImpl_MarkProcessed(t *testing.T) {
	store, repo, teardown := setup(t, 100)
	defer teardown()

	// given
	ctx := context.Background()
	id, err := store.Append(ctx, Entry{
		Amount:     decimal.NewFromInt(50),
		CategoryID: category.FollowUp,
		Date:       clock.Now(),
	})
	require.NoError(t, err)
	items := []SplitItem{
		{Description: "Item 1", Amount: decimal.NewFromInt(30), CategoryID: category.Food},
		{Description: "Item 2", Amount: decimal.NewFromInt(20), CategoryID: category.Shopping},
	}

	// when
	err = store.MarkProcessed(ctx, id, items)

	// then
	require.NoError(t, err)
	entry := store.Entries()[0]
	assert.True(t, entry.Processed)
	assert.Equal(t, 2, entry.SplitInto)
	assert.Equal(t, items, entry.SplitItems)
	assert.False(t, entry.IsPendingFollowUp())

	// and the full log was persisted
	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, saved[0].Processed)
}

func TestStoreImpl_MarkProcessed_notFound(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	err := store.MarkProcessed(context.Background(), "missing-id", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreImpl_ApplySplit_isOneBatch(t *testing.T) {
	store, repo, teardown := setup(t, 100)
	defer teardown()

	// given
	ctx := context.Background()
	originalDate := time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)
	originalId, err := store.Append(ctx, Entry{
		Amount:     decimal.NewFromInt(50),
		CategoryID: category.FollowUp,
		Date:       originalDate,
	})
	require.NoError(t, err)
	savesBefore := repo.Saves()

	records := []Entry{
		{Amount: decimal.NewFromInt(30), CategoryID: category.Food, Date: originalDate, Description: "Groceries"},
		{Amount: decimal.NewFromInt(20), CategoryID: category.Shopping, Date: originalDate, Description: "Socks"},
	}
	items := []SplitItem{
		{Description: "Groceries", Amount: decimal.NewFromInt(30), CategoryID: category.Food},
		{Description: "Socks", Amount: decimal.NewFromInt(20), CategoryID: category.Shopping},
	}

	// when
	committed, err := store.ApplySplit(ctx, originalId, records, items)

	// then
	require.NoError(t, err)
	require.Len(t, committed, 2)
	for _, record := range committed {
		assert.Equal(t, originalId, record.SplitFromFollowUp)
		assert.Equal(t, originalDate, record.Date)
		assert.False(t, record.Processed)
	}

	entries := store.Entries()
	require.Len(t, entries, 3)
	original := entries[2]
	assert.Equal(t, originalId, original.ID)
	assert.True(t, original.Processed)
	assert.Equal(t, 2, original.SplitInto)

	// appends and mark-processed went down in a single persisted write
	assert.Equal(t, savesBefore+1, repo.Saves())
}

func TestStoreImpl_ApplySplit_unknownOriginal(t *testing.T) {
	store, repo, teardown := setup(t, 100)
	defer teardown()

	savesBefore := repo.Saves()
	_, err := store.ApplySplit(context.Background(), "missing-id", []Entry{
		{Amount: decimal.NewFromInt(10), CategoryID: category.Food, Date: clock.Now()},
	}, nil)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.Entries())
	assert.Equal(t, savesBefore, repo.Saves())
}

func TestStoreImpl_Query_preservesOrdering(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	ctx := context.Background()
	_, err := store.Append(ctx, Entry{ID: "a", Amount: decimal.NewFromInt(1), CategoryID: category.Food, Date: clock.Now()})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{ID: "b", Amount: decimal.NewFromInt(2), CategoryID: category.Bills, Date: clock.Now()})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{ID: "c", Amount: decimal.NewFromInt(3), CategoryID: category.Food, Date: clock.Now()})
	require.NoError(t, err)

	matched := store.Query(func(e Entry) bool { return e.CategoryID == category.Food })

	require.Len(t, matched, 2)
	assert.Equal(t, "c", matched[0].ID)
	assert.Equal(t, "a", matched[1].ID)
}

func TestStoreImpl_Append_persistFailureKeepsEntry(t *testing.T) {
	store, repo, teardown := setup(t, 100)
	defer teardown()

	// given a repository that rejects writes
	repo.FailWrites(true)

	// when
	id, err := store.Append(context.Background(), Entry{
		Amount:     decimal.NewFromInt(42),
		CategoryID: category.Bills,
		Date:       clock.Now(),
	})

	// then the in-memory log stays authoritative for the session
	require.NoError(t, err)
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}

func TestStoreImpl_LogExpense_validation(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	ctx := context.Background()

	_, err := store.LogExpense(ctx, ExpenseInput{Amount: decimal.Zero, CategoryID: category.Food})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = store.LogExpense(ctx, ExpenseInput{Amount: decimal.NewFromInt(-5), CategoryID: category.Food})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = store.LogExpense(ctx, ExpenseInput{Amount: decimal.NewFromInt(5), CategoryID: "groceries"})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.Empty(t, store.Entries())
}

func TestStoreImpl_LogExpense_defaultsDateToNow(t *testing.T) {
	store, _, teardown := setup(t, 100)
	defer teardown()

	entry, err := store.LogExpense(context.Background(), ExpenseInput{
		Amount:     decimal.RequireFromString("12.50"),
		CategoryID: category.SelfCare,
	})

	require.NoError(t, err)
	assert.Equal(t, clock.Now(), entry.Date)
	assert.NotEmpty(t, entry.ID)
}
