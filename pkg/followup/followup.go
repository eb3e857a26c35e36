package followup

import (
	"errors"
	"fmt"

	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFollowUp is returned when a split is started on an entry that is
	// not a pending follow-up.
	ErrNotFollowUp = errors.New("entry is not a pending follow-up")
	// ErrNoActiveSplit is returned for split-line operations without a
	// matching active split session.
	ErrNoActiveSplit = errors.New("no active split for this entry")
	// ErrLineNotFound is returned for edits referencing an unknown line id.
	ErrLineNotFound = errors.New("split line not found")
	// ErrMinimumOneLine guards RemoveLine: a split always keeps at least one line.
	ErrMinimumOneLine = errors.New("a split needs at least one line")
	// ErrAmountMismatch blocks a confirm whose line total diverges from the
	// original amount by more than one cent.
	ErrAmountMismatch = errors.New("split total does not match original amount")
)

// conservationTolerance is the maximum divergence between the line total and
// the original amount that a confirm accepts.
var conservationTolerance = decimal.RequireFromString("0.01")

// AmountMismatchError carries the precise figure still to allocate (positive)
// or over the original (negative). It unwraps to ErrAmountMismatch.
type AmountMismatchError struct {
	Difference decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	if e.Difference.IsNegative() {
		return fmt.Sprintf("$%s over the original amount", e.Difference.Neg().StringFixed(2))
	}
	return fmt.Sprintf("$%s remaining to allocate", e.Difference.StringFixed(2))
}

func (e *AmountMismatchError) Unwrap() error {
	return ErrAmountMismatch
}

// SplitLine is one editable line of an in-progress split. Amount stays a raw
// string while the user is editing; it is parsed on confirm.
type SplitLine struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Amount      string      `json:"amount"`
	CategoryID  category.ID `json:"categoryId"`
}

func (l SplitLine) amount() decimal.Decimal {
	value, err := decimal.NewFromString(l.Amount)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// State of a follow-up entry in the review workflow. An entry is Queued until
// a split session starts, Splitting while lines are edited, and Committed
// once the split has been applied to the ledger. Cancel returns to Queued.
type State string

const (
	StateQueued    State = "queued"
	StateSplitting State = "splitting"
	StateCommitted State = "committed"
)

// LineEdit is a partial update of one split line; nil fields stay unchanged.
type LineEdit struct {
	Description *string
	Amount      *string
	CategoryID  *category.ID
}
