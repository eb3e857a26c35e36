package followup

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketledger/pocketledger/internal/event_bus"
	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// defaultLineCategory seeds new split lines. It is a safe default, not
// inherited from anywhere.
const defaultLineCategory = category.Shopping

// Session is the state of one in-progress split.
type Session struct {
	Original ledger.Entry
	Lines    []SplitLine
	State    State
}

// Service drives the follow-up review workflow: a queue of pending follow-up
// entries (recomputed from the ledger, so skip order never survives a
// restart) and at most one split session at a time.
type Service interface {
	// Queue returns the pending follow-ups in presentation order: ledger
	// order with skipped entries rotated to the back for this session.
	Queue(ctx context.Context) []ledger.Entry
	// Skip moves the queue head to the back. No ledger mutation.
	Skip(ctx context.Context) error
	BeginSplit(ctx context.Context, entryID string) (Session, error)
	ActiveSession(entryID string) (Session, error)
	AddLine(ctx context.Context, entryID string) (Session, error)
	UpdateLine(ctx context.Context, entryID string, lineID string, edit LineEdit) (Session, error)
	RemoveLine(ctx context.Context, entryID string, lineID string) (Session, error)
	// Confirm applies the split to the ledger as one batch: N new entries
	// dated like the original plus the processed-marking of the original.
	Confirm(ctx context.Context, entryID string) ([]ledger.Entry, error)
	Cancel(ctx context.Context, entryID string) error
}

type ServiceImpl struct {
	mu      sync.Mutex
	store   ledger.Store
	bus     *event_bus.EventBus
	clock   utils.Clock
	skipped []string
	session *Session
}

func NewServiceImpl(store ledger.Store, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{store: store, bus: bus, clock: clock}
}

func (s *ServiceImpl) Queue(ctx context.Context) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueLocked()
}

func (s *ServiceImpl) queueLocked() []ledger.Entry {
	pending := s.store.Query(ledger.Entry.IsPendingFollowUp)

	skippedAt := map[string]int{}
	for idx, id := range s.skipped {
		skippedAt[id] = idx
	}

	head := make([]ledger.Entry, 0, len(pending))
	tail := make([]ledger.Entry, len(s.skipped))
	var extra []ledger.Entry
	for _, entry := range pending {
		if idx, ok := skippedAt[entry.ID]; ok {
			tail[idx] = entry
		} else {
			head = append(head, entry)
		}
	}
	for _, entry := range tail {
		if entry.ID != "" {
			extra = append(extra, entry)
		}
	}
	return append(head, extra...)
}

func (s *ServiceImpl) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queueLocked()
	if len(queue) <= 1 {
		return nil
	}
	skipped := queue[0].ID

	// Rebuild the rotation list to match the new presentation order.
	rotation := make([]string, 0, len(queue))
	for _, entry := range queue[1:] {
		if s.isSkipped(entry.ID) {
			rotation = append(rotation, entry.ID)
		}
	}
	s.skipped = append(rotation, skipped)
	log.Debugf("follow-up %s skipped to the back of the queue", skipped)
	return nil
}

func (s *ServiceImpl) isSkipped(id string) bool {
	for _, skipped := range s.skipped {
		if skipped == id {
			return true
		}
	}
	return false
}

func (s *ServiceImpl) BeginSplit(ctx context.Context, entryID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var original *ledger.Entry
	for _, entry := range s.store.Query(ledger.Entry.IsPendingFollowUp) {
		if entry.ID == entryID {
			found := entry
			original = &found
			break
		}
	}
	if original == nil {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFollowUp, entryID)
	}

	if s.session != nil {
		log.Warnf("abandoning split session for %s in favour of %s", s.session.Original.ID, entryID)
	}
	s.session = &Session{
		Original: *original,
		Lines: []SplitLine{{
			ID:          "1",
			Description: "Item 1",
			Amount:      original.Amount.String(),
			CategoryID:  defaultLineCategory,
		}},
		State: StateSplitting,
	}
	return *s.session, nil
}

func (s *ServiceImpl) ActiveSession(entryID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionLocked(entryID)
	if err != nil {
		return Session{}, err
	}
	return *session, nil
}

func (s *ServiceImpl) AddLine(ctx context.Context, entryID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionLocked(entryID)
	if err != nil {
		return Session{}, err
	}
	session.Lines = append(session.Lines, SplitLine{
		ID:          fmt.Sprintf("%d", s.clock.Now().UnixMilli()),
		Description: fmt.Sprintf("Item %d", len(session.Lines)+1),
		Amount:      "0",
		CategoryID:  defaultLineCategory,
	})
	return *session, nil
}

func (s *ServiceImpl) UpdateLine(ctx context.Context, entryID string, lineID string, edit LineEdit) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionLocked(entryID)
	if err != nil {
		return Session{}, err
	}
	for idx := range session.Lines {
		if session.Lines[idx].ID != lineID {
			continue
		}
		if edit.Description != nil {
			session.Lines[idx].Description = *edit.Description
		}
		if edit.Amount != nil {
			session.Lines[idx].Amount = *edit.Amount
		}
		if edit.CategoryID != nil {
			if !category.IsSpendable(*edit.CategoryID) {
				return Session{}, fmt.Errorf("%w: %q", ledger.ErrUnknownCategory, *edit.CategoryID)
			}
			session.Lines[idx].CategoryID = *edit.CategoryID
		}
		return *session, nil
	}
	return Session{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
}

func (s *ServiceImpl) RemoveLine(ctx context.Context, entryID string, lineID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionLocked(entryID)
	if err != nil {
		return Session{}, err
	}
	if len(session.Lines) <= 1 {
		return Session{}, ErrMinimumOneLine
	}
	for idx := range session.Lines {
		if session.Lines[idx].ID == lineID {
			session.Lines = append(session.Lines[:idx], session.Lines[idx+1:]...)
			return *session, nil
		}
	}
	return Session{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
}

func (s *ServiceImpl) Confirm(ctx context.Context, entryID string) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessionLocked(entryID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range session.Lines {
		total = total.Add(line.amount())
	}
	difference := session.Original.Amount.Sub(total)
	if difference.Abs().GreaterThan(conservationTolerance) {
		return nil, &AmountMismatchError{Difference: difference}
	}

	records := make([]ledger.Entry, 0, len(session.Lines))
	items := make([]ledger.SplitItem, 0, len(session.Lines))
	for _, line := range session.Lines {
		records = append(records, ledger.Entry{
			Amount:      line.amount(),
			CategoryID:  line.CategoryID,
			Date:        session.Original.Date,
			Description: line.Description,
		})
		items = append(items, ledger.SplitItem{
			Description: line.Description,
			Amount:      line.amount(),
			CategoryID:  line.CategoryID,
		})
	}

	committed, err := s.store.ApplySplit(ctx, session.Original.ID, records, items)
	if err != nil {
		return nil, fmt.Errorf("failed to apply split: %w", err)
	}
	session.State = StateCommitted
	s.session = nil

	eventLines := make([]event_bus.SplitLine, 0, len(items))
	for _, item := range items {
		eventLines = append(eventLines, event_bus.SplitLine{
			CategoryID: string(item.CategoryID),
			Amount:     item.Amount,
		})
	}
	s.bus.Publish(event_bus.NewEvent(ctx, event_bus.FollowUpSplit, event_bus.FollowUpSplitEvent{
		OriginalID: session.Original.ID,
		Lines:      eventLines,
	}))

	return committed, nil
}

func (s *ServiceImpl) Cancel(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionLocked(entryID); err != nil {
		return err
	}
	// Back to Queued: edits are discarded, the ledger was never touched.
	s.session = nil
	return nil
}

func (s *ServiceImpl) sessionLocked(entryID string) (*Session, error) {
	if s.session == nil || s.session.Original.ID != entryID {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveSplit, entryID)
	}
	return s.session, nil
}
