package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Damage is the post-return assessment of the copy.
type Damage uint8

const (
	DamageNone Damage = iota + 1
	DamageSmall
	DamageLarge
	DamageLost
)

func (d Damage) String() string {
	switch d {
	case DamageNone:
		return "NONE"
	case DamageSmall:
		return "SMALL"
	case DamageLarge:
		return "LARGE"
	case DamageLost:
		return "LOST"
	default:
		return fmt.Sprintf("Damage(%d)", uint8(d))
	}
}

func ParseDamage(v string) (Damage, error) {
	switch v {
	case "NONE":
		return DamageNone, nil
	case "SMALL":
		return DamageSmall, nil
	case "LARGE":
		return DamageLarge, nil
	case "LOST":
		return DamageLost, nil
	}
	return 0, fmt.Errorf("unknown damage classification %q", v)
}

func (d Damage) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Damage) UnmarshalText(b []byte) error {
	v, err := ParseDamage(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// FineLine is one itemized charge.
type FineLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// MarshalJSON keeps amount a JSON number rather than decimal's default quoted string.
func (l FineLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label  string      `json:"label"`
		Amount json.Number `json:"amount"`
	}{Label: l.Label, Amount: json.Number(l.Amount.String())})
}

// FineBreakdown is the ordered, immutable list of charges written at approval.
type FineBreakdown []FineLine

// Sum totals all lines.
func (fb FineBreakdown) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, l := range fb {
		total = total.Add(l.Amount)
	}
	return total
}

// FinePolicy holds the global penalty parameters.
type FinePolicy struct {
	LateFeePerDay           decimal.Decimal `json:"lateFeePerDay"`
	MissingOrLostMultiplier decimal.Decimal `json:"missingOrLostMultiplier"`
	SmallDamageFraction     decimal.Decimal `json:"smallDamageFraction"`
	LargeDamageFraction     decimal.Decimal `json:"largeDamageFraction"`
}

// DefaultFinePolicy returns the built-in parameters.
func DefaultFinePolicy() FinePolicy {
	return FinePolicy{
		LateFeePerDay:           decimal.NewFromInt(50),
		MissingOrLostMultiplier: decimal.NewFromInt(2),
		SmallDamageFraction:     decimal.RequireFromString("0.10"),
		LargeDamageFraction:     decimal.RequireFromString("0.50"),
	}
}

// Validate rejects negative parameters.
func (p FinePolicy) Validate() error {
	fields := map[string]decimal.Decimal{
		"lateFeePerDay":           p.LateFeePerDay,
		"missingOrLostMultiplier": p.MissingOrLostMultiplier,
		"smallDamageFraction":     p.SmallDamageFraction,
		"largeDamageFraction":     p.LargeDamageFraction,
	}
	for name, v := range fields {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
