/*
Package generic provides the domain-agnostic building blocks of the leave ledger.

PURPOSE:
  This package holds the primitives every other package leans on: point
  amounts with exact decimal arithmetic, day-granular time points, inclusive
  periods with business-day math, a version-keyed result cache, and the
  persistence contract for refresh runs. Nothing here knows what a leave
  request or a department is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 1.5 points, 3 days)
  - EntityID: Type-safe identifier for the person a ledger row belongs to
  - RefreshRun: Audit record of one recompute cycle

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.25 + 0.25 is exactly 0.5
  2. Purity: Values are copied, never shared; helpers return new values
  3. Type Safety: Strong typing for IDs and units

USAGE:
  cost := generic.NewAmount(5, generic.UnitPoints)
  perDay := cost.Div(decimal.NewFromInt(5)) // 1 point

SEE ALSO:
  - time.go: TimePoint and business-day math
  - period.go: Inclusive date ranges
  - cache.go: VersionCache
  - store.go: RunStore interface
*/
package generic

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitPoints Unit = "points"
	UnitDays   Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// ParseAmount parses a decimal string such as "0.25" or " 3 ".
func ParseAmount(s string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{Unit: unit}, err
	}
	return Amount{Value: d, Unit: unit}, nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) EqualFloat(f float64) bool    { return a.Value.Equal(decimal.NewFromFloat(f)) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Round(places int32) Amount    { return Amount{Value: a.Value.Round(places), Unit: a.Unit} }

// Float64 is for presentation only. Arithmetic stays in decimal.
func (a Amount) Float64() float64 { return a.Value.InexactFloat64() }

func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }

// SumAmounts adds amounts of the same unit. An empty slice sums to zero points.
func SumAmounts(amounts []Amount) Amount {
	total := Amount{Value: decimal.Zero, Unit: UnitPoints}
	for i, a := range amounts {
		if i == 0 {
			total.Unit = a.Unit
		}
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type RunID string

// =============================================================================
// REFRESH RUN - Audit record of one recompute cycle
// =============================================================================

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunUnchanged RunStatus = "unchanged" // same version as the previous run
	RunMissing   RunStatus = "source_missing"
	RunFailed    RunStatus = "failed"
)

// RefreshRun records what one refresh trigger did.
type RefreshRun struct {
	ID           RunID
	Trigger      string // "poll", "watch", "manual", "startup"
	Version      string
	Status       RunStatus
	RequestCount int
	SummaryCount int
	DailyCount   int
	SkippedRows  int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time the run took.
func (r RefreshRun) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
