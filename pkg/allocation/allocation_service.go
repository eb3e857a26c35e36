package allocation

import (
	"context"
	"fmt"
	"sync"

	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	oneHundred = decimal.NewFromInt(100)
	// Edits are clamped only when they push the allocated total past this
	// bound; the tolerance absorbs rounding from dollar conversions.
	sumBound = decimal.RequireFromString("100.01")
)

// Service is the allocation-consistency engine: it keeps percent and dollar
// representations of the per-category allocations mutually consistent and the
// allocated total bounded at 100%.
type Service interface {
	SetTotalBudget(ctx context.Context, raw string) error
	SetAllocation(ctx context.Context, categoryID category.ID, raw string, mode UnitMode) (Result, error)
	ToggleUnitMode(ctx context.Context, categoryID category.ID) (Result, error)
	DistributeEvenly(ctx context.Context) error
	Reset(ctx context.Context) error

	TotalBudget() decimal.Decimal
	PercentOf(categoryID category.ID) decimal.Decimal
	DollarOf(categoryID category.ID) decimal.Decimal
	TotalPercent(excluding category.ID) decimal.Decimal
	View() Config
}

type ServiceImpl struct {
	mu   sync.Mutex
	cfg  Config
	repo Repository
}

func NewServiceImpl(repo Repository) *ServiceImpl {
	return &ServiceImpl{cfg: NewConfig(), repo: repo}
}

// Load reads the persisted configuration. A missing blob starts empty.
func (s *ServiceImpl) Load(ctx context.Context) error {
	cfg, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load budget config: %w", err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *ServiceImpl) SetTotalBudget(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Percents stay fixed when the budget changes; only the dollar amounts
	// the user sees move. Allocation is percent-of-budget by design.
	s.cfg.Budget = cleanNumeric(raw)
	s.persist(ctx)
	return nil
}

func (s *ServiceImpl) SetAllocation(ctx context.Context, categoryID category.ID, raw string, mode UnitMode) (Result, error) {
	if !category.IsSpendable(categoryID) {
		return Result{}, fmt.Errorf("%w: %q", ErrNotAllocatable, categoryID)
	}
	if mode != UnitDollar {
		mode = UnitPercent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Modes[categoryID] = mode

	// Empty input is the valid "unset" state, not an error.
	cleaned := cleanNumeric(raw)
	if cleaned == "" {
		s.cfg.Allocs[categoryID] = ""
		s.persist(ctx)
		return Result{Stored: ""}, nil
	}

	budget := s.budgetLocked()
	value := parseDecimal(cleaned)
	percent := value
	if mode == UnitDollar {
		// With no budget a dollar edit is meaningless: it allocates 0%.
		percent = decimal.Zero
		if budget.IsPositive() {
			percent = value.Div(budget).Mul(oneHundred)
		}
	}

	others := s.totalPercentLocked(categoryID)
	if others.Add(percent).GreaterThan(sumBound) {
		maxPercent := oneHundred.Sub(others)
		if maxPercent.IsNegative() {
			maxPercent = decimal.Zero
		}

		stored := ""
		maxAllowed := maxPercent.String()
		if mode == UnitDollar {
			maxDollar := maxPercent.Div(oneHundred).Mul(budget)
			maxAllowed = maxDollar.StringFixed(2)
			if maxDollar.IsPositive() {
				stored = maxAllowed
			}
		} else if maxPercent.IsPositive() {
			stored = maxPercent.String()
		}

		s.cfg.Allocs[categoryID] = stored
		s.persist(ctx)
		log.Debugf("allocation for %s clamped to %s%s", categoryID, maxAllowed, unitSuffix(mode))
		return Result{
			Stored:  stored,
			Clamped: true,
			Notice:  &Notice{MaxAllowed: maxAllowed, Unit: mode},
		}, nil
	}

	// Preserve what the user typed (minus stripped characters) so the value
	// is not reformatted mid-edit.
	s.cfg.Allocs[categoryID] = cleaned
	s.persist(ctx)
	return Result{Stored: cleaned}, nil
}

func (s *ServiceImpl) ToggleUnitMode(ctx context.Context, categoryID category.ID) (Result, error) {
	if !category.IsSpendable(categoryID) {
		return Result{}, fmt.Errorf("%w: %q", ErrNotAllocatable, categoryID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	budget := s.budgetLocked()
	mode := s.cfg.Modes[categoryID]
	value := parseDecimal(s.cfg.Allocs[categoryID])

	// Re-express the stored value in the new unit. Display rounding only:
	// dollars to 2 decimals, percent to 1.
	newValue := ""
	if budget.IsPositive() {
		if mode == UnitPercent {
			newValue = value.Div(oneHundred).Mul(budget).StringFixed(2)
		} else {
			newValue = value.Div(budget).Mul(oneHundred).StringFixed(1)
		}
	}

	s.cfg.Modes[categoryID] = mode.toggled()
	s.cfg.Allocs[categoryID] = newValue
	s.persist(ctx)
	return Result{Stored: newValue}, nil
}

func (s *ServiceImpl) DistributeEvenly(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spendable := category.Spendable()
	even := 100 / len(spendable)
	remainder := 100 - even*len(spendable)

	for idx, c := range spendable {
		share := even
		if idx == 0 {
			share += remainder
		}
		s.cfg.Allocs[c.ID] = fmt.Sprintf("%d", share)
		s.cfg.Modes[c.ID] = UnitPercent
	}
	s.persist(ctx)
	return nil
}

func (s *ServiceImpl) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	budget := s.cfg.Budget
	s.cfg = NewConfig()
	s.cfg.Budget = budget
	s.persist(ctx)
	return nil
}

func (s *ServiceImpl) TotalBudget() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgetLocked()
}

func (s *ServiceImpl) PercentOf(categoryID category.ID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percentOfLocked(categoryID)
}

func (s *ServiceImpl) DollarOf(categoryID category.ID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percentOfLocked(categoryID).Div(oneHundred).Mul(s.budgetLocked())
}

func (s *ServiceImpl) TotalPercent(excluding category.ID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPercentLocked(excluding)
}

func (s *ServiceImpl) View() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := Config{
		Budget: s.cfg.Budget,
		Allocs: map[category.ID]string{},
		Modes:  map[category.ID]UnitMode{},
	}
	for id, raw := range s.cfg.Allocs {
		view.Allocs[id] = raw
	}
	for id, mode := range s.cfg.Modes {
		view.Modes[id] = mode
	}
	return view
}

func (s *ServiceImpl) budgetLocked() decimal.Decimal {
	return parseDecimal(s.cfg.Budget)
}

func (s *ServiceImpl) percentOfLocked(categoryID category.ID) decimal.Decimal {
	value := parseDecimal(s.cfg.Allocs[categoryID])
	if s.cfg.Modes[categoryID] == UnitDollar {
		budget := s.budgetLocked()
		if !budget.IsPositive() {
			return decimal.Zero
		}
		return value.Div(budget).Mul(oneHundred)
	}
	return value
}

func (s *ServiceImpl) totalPercentLocked(excluding category.ID) decimal.Decimal {
	total := decimal.Zero
	for _, c := range category.Spendable() {
		if c.ID == excluding {
			continue
		}
		total = total.Add(s.percentOfLocked(c.ID))
	}
	return total
}

// persist writes the configuration through the repository, optimistic like
// the ledger: the in-memory config stays authoritative for the session.
func (s *ServiceImpl) persist(ctx context.Context) {
	if err := s.repo.Save(ctx, s.cfg); err != nil {
		log.Errorf("failed to persist budget config, keeping in-memory state: %v", err)
	}
}

func unitSuffix(mode UnitMode) string {
	if mode == UnitDollar {
		return "$"
	}
	return "%"
}
