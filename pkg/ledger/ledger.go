package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an operation references an entry id that
	// is no longer in the log (e.g. trimmed by retention).
	ErrNotFound = errors.New("ledger entry not found")
	// ErrInvalidAmount is returned for a missing, zero, or negative amount.
	ErrInvalidAmount = errors.New("expense amount must be positive")
	// ErrUnknownCategory is returned for a category id outside the fixed set.
	ErrUnknownCategory = errors.New("unknown expense category")
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentPDF   AttachmentKind = "pdf"
)

// Attachment references a receipt file owned by the attachment storage; the
// ledger only carries the reference.
type Attachment struct {
	LocationRef string         `json:"uri"`
	Kind        AttachmentKind `json:"type"`
	Name        string         `json:"name"`
}

// SplitItem is the audit snapshot of one split line, recorded on the original
// follow-up entry once it has been processed.
type SplitItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  category.ID     `json:"categoryId"`
}

// Entry is the atomic unit of the expense log.
//
// Date is the user-chosen calendar timestamp used for all financial
// reporting; InsertedAt only orders retention trimming. Processed, SplitInto
// and SplitItems are meaningful only on follow-up entries; SplitFromFollowUp
// only on entries produced by the split workflow.
type Entry struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	CategoryID        category.ID     `json:"categoryId"`
	Date              time.Time       `json:"date"`
	InsertedAt        time.Time       `json:"insertedAt"`
	Description       string          `json:"description,omitempty"`
	Attachment        *Attachment     `json:"attachment,omitempty"`
	Processed         bool            `json:"processed,omitempty"`
	SplitFromFollowUp string          `json:"splitFromFollowUp,omitempty"`
	SplitInto         int             `json:"splitInto,omitempty"`
	SplitItems        []SplitItem     `json:"splitItems,omitempty"`
}

// IsPendingFollowUp reports whether the entry sits in the follow-up inbox.
func (e Entry) IsPendingFollowUp() bool {
	return e.CategoryID == category.FollowUp && !e.Processed
}

// InMonth reports whether the entry's user-chosen date falls in the given
// calendar month and year (local time).
func (e Entry) InMonth(month time.Month, year int) bool {
	return e.Date.Month() == month && e.Date.Year() == year
}

// NewEntryID builds a time-based id with a random suffix so that rapid
// inserts cannot collide.
func NewEntryID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
