/*
policies.go - Loan ceiling policies

PURPOSE:
  The standard maximum loan amount relative to an employee's gross monthly
  salary is an organizational policy, not engine logic. The engine takes an
  injected CeilingPolicy; HR picks the formula.

POLICIES:
  MultipleOfGross: ceiling = multiplier × grossMonthly (the common case)
  FixedCap:        one flat ceiling regardless of salary
  Tiered:          per-salary-band ceilings

All arithmetic is decimal; the result is rounded to a whole currency unit
because the ledger works in integer amounts.

SEE ALSO:
  - factory/policy.go: Builds these from JSON configuration
  - ledger.go: Applies the ceiling in RequestLoan
*/
package loan

import (
	"github.com/shopspring/decimal"
)

// CeilingPolicy computes the standard maximum loan amount for a gross monthly
// salary. Amounts exceeding it require a MaxLoanOverride approval.
type CeilingPolicy interface {
	StandardMax(grossMonthly decimal.Decimal) int64
}

// =============================================================================
// MULTIPLE OF GROSS - ceiling = multiplier × grossMonthly
// =============================================================================

type MultipleOfGross struct {
	Multiplier decimal.Decimal
}

func (p MultipleOfGross) StandardMax(grossMonthly decimal.Decimal) int64 {
	return grossMonthly.Mul(p.Multiplier).Round(0).IntPart()
}

// DefaultCeiling is the demo policy: three months of gross salary.
var DefaultCeiling = MultipleOfGross{Multiplier: decimal.NewFromInt(3)}

// =============================================================================
// FIXED CAP - one flat ceiling
// =============================================================================

type FixedCap struct {
	Cap int64
}

func (p FixedCap) StandardMax(decimal.Decimal) int64 { return p.Cap }

// =============================================================================
// TIERED - per-salary-band ceilings
// =============================================================================

// Tier applies Max to salaries up to UpToGross inclusive.
// A zero UpToGross means "no upper bound" and should be the last tier.
type Tier struct {
	UpToGross decimal.Decimal
	Max       int64
}

type Tiered struct {
	Tiers []Tier
}

func (p Tiered) StandardMax(grossMonthly decimal.Decimal) int64 {
	for _, t := range p.Tiers {
		if t.UpToGross.IsZero() || grossMonthly.LessThanOrEqual(t.UpToGross) {
			return t.Max
		}
	}
	return 0
}
