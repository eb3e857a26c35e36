package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ExpenseInput is the user-facing "log expense" request.
type ExpenseInput struct {
	Amount     decimal.Decimal
	CategoryID category.ID
	Date       time.Time
	Attachment *Attachment
}

// Store owns the append-mostly expense log. Entries are kept most-recent-first
// by insertion; the log is the single source of truth and every other view is
// recomputed from it.
type Store interface {
	// LogExpense validates input and appends a new entry.
	LogExpense(ctx context.Context, input ExpenseInput) (Entry, error)
	// Append adds an entry without validation; the caller is responsible for
	// the amount sign and category membership.
	Append(ctx context.Context, entry Entry) (string, error)
	// MarkProcessed flags a follow-up entry processed and records the split
	// snapshot on it.
	MarkProcessed(ctx context.Context, id string, items []SplitItem) error
	// ApplySplit appends the split records and marks the original processed
	// as one batch, so partial application is not observable.
	ApplySplit(ctx context.Context, originalID string, records []Entry, items []SplitItem) ([]Entry, error)
	// Query returns entries matching the predicate, ordering preserved.
	Query(predicate func(Entry) bool) []Entry
	// Entries returns a copy of the full log, most-recent-first.
	Entries() []Entry
}

type StoreImpl struct {
	mu           sync.Mutex
	entries      []Entry
	repo         Repository
	clock        utils.Clock
	bus          *event_bus.EventBus
	retentionCap int
}

func NewStoreImpl(repo Repository, clock utils.Clock, bus *event_bus.EventBus, retentionCap int) *StoreImpl {
	return &StoreImpl{
		repo:         repo,
		clock:        clock,
		bus:          bus,
		retentionCap: retentionCap,
	}
}

// Load reads the persisted log into memory. A missing blob starts empty.
func (s *StoreImpl) Load(ctx context.Context) error {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load expense log: %w", err)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	log.Infof("Loaded expense log with %d entries", len(entries))
	return nil
}

func (s *StoreImpl) LogExpense(ctx context.Context, input ExpenseInput) (Entry, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, ErrInvalidAmount
	}
	if !category.IsValid(input.CategoryID) {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, input.CategoryID)
	}

	date := input.Date
	if date.IsZero() {
		date = s.clock.Now()
	}
	entry := Entry{
		Amount:     input.Amount,
		CategoryID: input.CategoryID,
		Date:       date,
		Attachment: input.Attachment,
	}
	id, err := s.Append(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id

	s.bus.Publish(event_bus.NewEvent(ctx, event_bus.ExpenseLogged, event_bus.ExpenseLoggedEvent{
		EntryID:    id,
		CategoryID: string(input.CategoryID),
		Amount:     input.Amount,
		Date:       date,
	}))
	return entry, nil
}

func (s *StoreImpl) Append(ctx context.Context, entry Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if entry.ID == "" {
		entry.ID = NewEntryID(now)
	}
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = now
	}

	s.entries = append([]Entry{entry}, s.entries...)
	// Retention is by insertion order, not by date: drop the oldest inserts
	// past the cap.
	if s.retentionCap > 0 && len(s.entries) > s.retentionCap {
		s.entries = s.entries[:s.retentionCap]
	}

	s.persist(ctx)
	return entry.ID, nil
}

func (s *StoreImpl) MarkProcessed(ctx context.Context, id string, items []SplitItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.markProcessedLocked(id, items); err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

func (s *StoreImpl) ApplySplit(ctx context.Context, originalID string, records []Entry, items []SplitItem) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(originalID) == -1 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, originalID)
	}

	now := s.clock.Now()
	committed := make([]Entry, 0, len(records))
	for _, record := range records {
		if record.ID == "" {
			record.ID = NewEntryID(now)
		}
		record.InsertedAt = now
		record.SplitFromFollowUp = originalID
		s.entries = append([]Entry{record}, s.entries...)
		committed = append(committed, record)
	}
	// The original cannot be missing here; it was checked above and nothing
	// ran in between.
	if err := s.markProcessedLocked(originalID, items); err != nil {
		return nil, err
	}

	s.persist(ctx)
	return committed, nil
}

func (s *StoreImpl) Query(predicate func(Entry) bool) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Entry
	for _, entry := range s.entries {
		if predicate(entry) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (s *StoreImpl) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

func (s *StoreImpl) markProcessedLocked(id string, items []SplitItem) error {
	idx := s.indexOf(id)
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	snapshot := make([]SplitItem, len(items))
	copy(snapshot, items)

	s.entries[idx].Processed = true
	s.entries[idx].SplitInto = len(items)
	s.entries[idx].SplitItems = snapshot
	return nil
}

func (s *StoreImpl) indexOf(id string) int {
	for idx, entry := range s.entries {
		if entry.ID == id {
			return idx
		}
	}
	return -1
}

// persist writes the full log through the repository. The store is optimistic:
// the in-memory log was already updated and stays authoritative for the
// session, so a failed write is logged and surfaced nowhere else. A local
// single-writer store cannot expose the divergence to another actor.
func (s *StoreImpl) persist(ctx context.Context) {
	if err := s.repo.Save(ctx, s.entries); err != nil {
		log.Errorf("failed to persist expense log, keeping in-memory state: %v", err)
	}
}
