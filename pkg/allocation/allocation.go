package allocation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotAllocatable is returned for the follow-up pseudo-category and
	// unknown ids: only spendable categories take part in allocation.
	ErrNotAllocatable = errors.New("category cannot receive budget allocation")
)

// UnitMode is the unit a category's allocation is currently edited in. It is
// display state: the stored raw value is expressed in this unit, but the
// engine always reasons in percent terms.
type UnitMode string

const (
	UnitPercent UnitMode = "percent"
	UnitDollar  UnitMode = "dollar"
)

func (m UnitMode) toggled() UnitMode {
	if m == UnitPercent {
		return UnitDollar
	}
	return UnitPercent
}

// Config is the process-wide budget configuration: the total monthly budget
// and one raw allocation value per spendable category. Raw values preserve
// exactly what the user typed until a clamp rewrites them.
type Config struct {
	Budget string
	Allocs map[category.ID]string
	Modes  map[category.ID]UnitMode
}

// NewConfig returns an empty configuration: no budget, every spendable
// category unset and in percent mode.
func NewConfig() Config {
	cfg := Config{
		Budget: "",
		Allocs: map[category.ID]string{},
		Modes:  map[category.ID]UnitMode{},
	}
	for _, c := range category.Spendable() {
		cfg.Allocs[c.ID] = ""
		cfg.Modes[c.ID] = UnitPercent
	}
	return cfg
}

// Notice reports a clamped edit: the maximum value that keeps the total at
// 100%, expressed in the unit the user was typing in.
type Notice struct {
	MaxAllowed string
	Unit       UnitMode
}

// Result is the outcome of a SetAllocation call.
type Result struct {
	Stored  string
	Clamped bool
	Notice  *Notice
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// cleanNumeric strips everything that is not a digit or a dot from raw user
// input, so "$1,200" and "40%" parse the way the user meant them.
func cleanNumeric(raw string) string {
	return nonNumeric.ReplaceAllString(strings.TrimSpace(raw), "")
}

// parseDecimal interprets raw user input as a non-negative decimal. An empty
// or unparsable string is the valid "unset" state, i.e. zero.
func parseDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(cleanNumeric(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}
