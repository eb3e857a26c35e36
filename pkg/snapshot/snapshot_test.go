package snapshot

import (
	"testing"
	"time"

	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = Window{Month: time.March, Year: 2024}

func entry(id string, amount string, cat category.ID, date time.Time) ledger.Entry {
	return ledger.Entry{
		ID:         id,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: cat,
		Date:       date,
		InsertedAt: date,
	}
}

func marchDay(day int) time.Time {
	return time.Date(2024, time.March, day, 14, 0, 0, 0, time.Local)
}

func TestAggregate_monthIsolation(t *testing.T) {
	// given: two March entries, one February entry, one pending follow-up
	// from January
	entries := []ledger.Entry{
		entry("e1", "30", category.Food, marchDay(10)),
		entry("e2", "20", category.Bills, marchDay(3)),
		entry("e3", "99", category.Food, time.Date(2024, time.February, 20, 9, 0, 0, 0, time.Local)),
		entry("e4", "45", category.FollowUp, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.Local)),
	}

	// when
	snapshot := Aggregate(entries, nil, decimal.NewFromInt(500), march)

	// then: February and January amounts never reach the March totals
	assert.Equal(t, "50.00", snapshot.TotalSpent.StringFixed(2))
	assert.Equal(t, "450.00", snapshot.RemainingBudget.StringFixed(2))
	assert.Equal(t, "30.00", snapshot.PerCategoryTotals[category.Food].StringFixed(2))
	assert.Equal(t, "20.00", snapshot.PerCategoryTotals[category.Bills].StringFixed(2))
	require.Len(t, snapshot.RecentEntries, 2)
	assert.Equal(t, "e1", snapshot.RecentEntries[0].ID)

	// but the follow-up inbox is global: the January entry still counts
	assert.Equal(t, 1, snapshot.PendingFollowUps)
	assert.Equal(t, "45.00", snapshot.FollowUpTotal.StringFixed(2))
}

func TestAggregate_isIdempotent(t *testing.T) {
	entries := []ledger.Entry{
		entry("e1", "12.34", category.Shopping, marchDay(1)),
		entry("e2", "56.78", category.FollowUp, marchDay(2)),
	}
	percents := map[category.ID]decimal.Decimal{
		category.Shopping: decimal.NewFromInt(25),
	}
	budget := decimal.NewFromInt(1000)

	first := Aggregate(entries, percents, budget, march)
	second := Aggregate(entries, percents, budget, march)

	assert.Equal(t, first, second)
}

func TestAggregate_unprocessedFollowUpCountsAsSpent(t *testing.T) {
	entries := []ledger.Entry{
		entry("e1", "60", category.FollowUp, marchDay(5)),
	}

	snapshot := Aggregate(entries, nil, decimal.NewFromInt(100), march)

	// a not-yet-split follow-up still counts toward the month's spending
	assert.Equal(t, "60.00", snapshot.TotalSpent.StringFixed(2))
	assert.Equal(t, "60.00", snapshot.PerCategoryTotals[category.FollowUp].StringFixed(2))
	assert.Equal(t, 1, snapshot.PendingFollowUps)
}

func TestAggregate_processedFollowUpLeavesInbox(t *testing.T) {
	processed := entry("e1", "60", category.FollowUp, marchDay(5))
	processed.Processed = true
	processed.SplitInto = 2

	snapshot := Aggregate([]ledger.Entry{processed}, nil, decimal.NewFromInt(100), march)

	// inert for the inbox, but still part of the month's history
	assert.Equal(t, 0, snapshot.PendingFollowUps)
	assert.Equal(t, "60.00", snapshot.TotalSpent.StringFixed(2))
}

func TestAggregate_pieChart(t *testing.T) {
	entries := []ledger.Entry{
		entry("e1", "75", category.Food, marchDay(1)),
		entry("e2", "25", category.Bills, marchDay(2)),
		entry("e3", "40", category.FollowUp, marchDay(3)),
	}
	percents := map[category.ID]decimal.Decimal{
		category.Food:  decimal.NewFromInt(30),
		category.Bills: decimal.NewFromInt(10),
	}

	snapshot := Aggregate(entries, percents, decimal.NewFromInt(1000), march)

	// follow-up and zero-amount categories never appear in the chart
	require.Len(t, snapshot.PieChart, 2)
	for _, slice := range snapshot.PieChart {
		assert.NotEqual(t, category.FollowUp, slice.Category.ID)
	}

	bills := snapshot.PieChart[0]
	food := snapshot.PieChart[1]
	assert.Equal(t, category.Bills, bills.Category.ID)
	assert.Equal(t, category.Food, food.Category.ID)

	// shares are of total spent (140), allocations of the budget
	assert.Equal(t, "53.6", food.Share.StringFixed(1))
	assert.Equal(t, "17.9", bills.Share.StringFixed(1))
	assert.Equal(t, "300.00", food.AllocatedDollar.StringFixed(2))
	assert.Equal(t, "100.00", bills.AllocatedDollar.StringFixed(2))
}

func TestAggregate_pieChartZeroSpend(t *testing.T) {
	snapshot := Aggregate(nil, nil, decimal.Zero, march)

	assert.Empty(t, snapshot.PieChart)
	assert.Equal(t, "0.00", snapshot.TotalSpent.StringFixed(2))
}

func TestAggregate_recentEntriesCapAtFive(t *testing.T) {
	var entries []ledger.Entry
	for day := 7; day >= 1; day-- {
		entries = append(entries, entry(
			time.Date(2024, time.March, day, 0, 0, 0, 0, time.Local).Format("2006-01-02"),
			"10", category.Food, marchDay(day)))
	}

	snapshot := Aggregate(entries, nil, decimal.Zero, march)

	require.Len(t, snapshot.RecentEntries, 5)
	// truncation keeps the head of the month-filtered, most-recent-first log
	assert.Equal(t, entries[0].ID, snapshot.RecentEntries[0].ID)
	assert.Equal(t, entries[4].ID, snapshot.RecentEntries[4].ID)
	// overspending is allowed; remaining just goes negative
	assert.Equal(t, "-70.00", snapshot.RemainingBudget.StringFixed(2))
}
