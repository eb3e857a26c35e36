package snapshot

import (
	"time"

	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Window is the (month, year) pair that scopes aggregation. It is independent
// of the current calendar month: any month can be viewed.
type Window struct {
	Month time.Month
	Year  int
}

// WindowOf returns the window containing t (local time).
func WindowOf(t time.Time) Window {
	return Window{Month: t.Month(), Year: t.Year()}
}

// Contains reports whether t falls in the window's calendar month.
func (w Window) Contains(t time.Time) bool {
	return t.Month() == w.Month && t.Year() == w.Year
}

// PieSlice is one spending-chart entry: a category's month total, its share
// of the total spent, and its allocated dollar budget for comparison.
type PieSlice struct {
	Category        category.Category
	Amount          decimal.Decimal
	Share           decimal.Decimal
	AllocatedDollar decimal.Decimal
}

// Snapshot is everything the presentation layer shows for one month window.
// It is a pure projection of the expense log plus the budget configuration;
// nothing here is cached between calls.
type Snapshot struct {
	Window            Window
	PerCategoryTotals map[category.ID]decimal.Decimal
	TotalSpent        decimal.Decimal
	RemainingBudget   decimal.Decimal
	RecentEntries     []ledger.Entry
	// PendingFollowUps and FollowUpTotal cover the whole log, not the month
	// window: the follow-up inbox is global.
	PendingFollowUps int
	FollowUpTotal    decimal.Decimal
	PieChart         []PieSlice
}

const recentEntriesLimit = 5

// Aggregate recomputes the full snapshot from the log. entries must be
// most-recent-first; percents maps each spendable category to its allocated
// percent of totalBudget.
func Aggregate(entries []ledger.Entry, percents map[category.ID]decimal.Decimal, totalBudget decimal.Decimal, window Window) Snapshot {
	snapshot := Snapshot{
		Window:            window,
		PerCategoryTotals: map[category.ID]decimal.Decimal{},
		TotalSpent:        decimal.Zero,
		FollowUpTotal:     decimal.Zero,
	}

	for _, entry := range entries {
		if window.Contains(entry.Date) {
			total := snapshot.PerCategoryTotals[entry.CategoryID]
			snapshot.PerCategoryTotals[entry.CategoryID] = total.Add(entry.Amount)
			snapshot.TotalSpent = snapshot.TotalSpent.Add(entry.Amount)
			if len(snapshot.RecentEntries) < recentEntriesLimit {
				snapshot.RecentEntries = append(snapshot.RecentEntries, entry)
			}
		}

		// The follow-up inbox deliberately ignores the month filter.
		if entry.IsPendingFollowUp() {
			snapshot.PendingFollowUps++
			snapshot.FollowUpTotal = snapshot.FollowUpTotal.Add(entry.Amount)
		}
	}

	snapshot.RemainingBudget = totalBudget.Sub(snapshot.TotalSpent)

	for _, c := range category.Spendable() {
		amount, ok := snapshot.PerCategoryTotals[c.ID]
		if !ok || amount.IsZero() {
			continue
		}
		share := decimal.Zero
		if snapshot.TotalSpent.IsPositive() {
			share = amount.Div(snapshot.TotalSpent).Mul(oneHundred)
		}
		snapshot.PieChart = append(snapshot.PieChart, PieSlice{
			Category:        c,
			Amount:          amount,
			Share:           share,
			AllocatedDollar: percents[c.ID].Div(oneHundred).Mul(totalBudget),
		})
	}

	return snapshot
}
