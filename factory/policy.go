/*
Package factory provides JSON to Go ceiling-policy conversion.

PURPOSE:
  Converts JSON ceiling definitions into loan.CeilingPolicy values. This
  enables policy configuration without code changes - HR can tune the loan
  ceiling in JSON, and the factory creates the proper Go value.

JSON SCHEMA:
  {"type": "multiple_of_gross", "multiplier": "3"}
  {"type": "fixed_cap", "cap": 300000}
  {"type": "tiered", "tiers": [
      {"up_to_gross": "50000",  "max": 100000},
      {"up_to_gross": "100000", "max": 250000},
      {"max": 500000}
  ]}

  Decimal fields (multiplier, up_to_gross) are JSON strings so precision is
  never lost in transit. A tier without up_to_gross is the unbounded last
  band.

USAGE:
  policy, err := factory.ParseCeiling(configJSON)
  ledger := loan.NewLedger(store, directory, policy)

SEE ALSO:
  - loan/policies.go: The policy implementations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/loan-engine/loan"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CeilingJSON is the JSON representation of a ceiling policy.
type CeilingJSON struct {
	Type       string     `json:"type"`
	Multiplier string     `json:"multiplier,omitempty"`
	Cap        int64      `json:"cap,omitempty"`
	Tiers      []TierJSON `json:"tiers,omitempty"`
}

type TierJSON struct {
	UpToGross string `json:"up_to_gross,omitempty"`
	Max       int64  `json:"max"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCeiling converts a JSON config into a CeilingPolicy.
func ParseCeiling(configJSON string) (loan.CeilingPolicy, error) {
	var cfg CeilingJSON
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("invalid ceiling config: %w", err)
	}
	return BuildCeiling(cfg)
}

// BuildCeiling converts a parsed config into a CeilingPolicy.
func BuildCeiling(cfg CeilingJSON) (loan.CeilingPolicy, error) {
	switch cfg.Type {
	case "multiple_of_gross":
		m, err := decimal.NewFromString(cfg.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("multiple_of_gross: invalid multiplier %q: %w", cfg.Multiplier, err)
		}
		if !m.IsPositive() {
			return nil, fmt.Errorf("multiple_of_gross: multiplier must be positive, got %s", m)
		}
		return loan.MultipleOfGross{Multiplier: m}, nil

	case "fixed_cap":
		if cfg.Cap <= 0 {
			return nil, fmt.Errorf("fixed_cap: cap must be positive, got %d", cfg.Cap)
		}
		return loan.FixedCap{Cap: cfg.Cap}, nil

	case "tiered":
		if len(cfg.Tiers) == 0 {
			return nil, fmt.Errorf("tiered: at least one tier required")
		}
		tiers := make([]loan.Tier, len(cfg.Tiers))
		for i, t := range cfg.Tiers {
			var upTo decimal.Decimal
			if t.UpToGross != "" {
				var err error
				upTo, err = decimal.NewFromString(t.UpToGross)
				if err != nil {
					return nil, fmt.Errorf("tiered: invalid up_to_gross %q: %w", t.UpToGross, err)
				}
			} else if i != len(cfg.Tiers)-1 {
				return nil, fmt.Errorf("tiered: only the last tier may omit up_to_gross")
			}
			tiers[i] = loan.Tier{UpToGross: upTo, Max: t.Max}
		}
		return loan.Tiered{Tiers: tiers}, nil

	default:
		return nil, fmt.Errorf("unknown ceiling policy type %q", cfg.Type)
	}
}
