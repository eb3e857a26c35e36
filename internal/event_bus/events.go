package event_bus

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ExpenseLogged EventType = "expense.logged"
	FollowUpSplit EventType = "followup.split"
)

// ExpenseLoggedEvent is published after an expense entry has been appended to
// the ledger.
type ExpenseLoggedEvent struct {
	EntryID    string
	CategoryID string
	Amount     decimal.Decimal
	Date       time.Time
}

// FollowUpSplitEvent is published after a follow-up entry has been split and
// marked processed. Lines carry the committed split lines in order.
type FollowUpSplitEvent struct {
	OriginalID string
	Lines      []SplitLine
}

// SplitLine mirrors a committed split line for subscribers that only need the
// category/amount breakdown (e.g. the review-stats recorder).
type SplitLine struct {
	CategoryID string
	Amount     decimal.Decimal
}
