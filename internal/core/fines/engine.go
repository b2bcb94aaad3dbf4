// Package fines computes itemized penalty breakdowns. Everything here is pure:
// the same inputs always produce the same breakdown.
package fines

import (
	"fmt"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// CurrencyScale is the number of decimal places every charged amount is rounded to.
// It matches the NUMERIC(12,2) fine and settled_fee columns.
const CurrencyScale = 2

var hundred = decimal.NewFromInt(100)

// Result is the output of Compute.
type Result struct {
	Breakdown domain.FineBreakdown
	Total     decimal.Decimal
	DaysLate  int64
}

// DaysLate is max(0, ceil((now - due) / 1 day)).
func DaysLate(due, now time.Time) int64 {
	elapsed := now.Sub(due)
	if elapsed <= 0 {
		return 0
	}
	days := int64(elapsed / day)
	if elapsed%day != 0 {
		days++
	}
	return days
}

// Compute builds the breakdown for a return assessed at now.
//
// A late return is charged the missing-book fee even when the copy comes back
// undamaged; Lost replaces that line with the lost-book line.
func Compute(due, now time.Time, unitPrice decimal.Decimal, damage domain.Damage, policy domain.FinePolicy) (Result, error) {
	daysLate := DaysLate(due, now)
	breakdown := domain.FineBreakdown{}

	missingFee := money(unitPrice.Mul(policy.MissingOrLostMultiplier))
	missingPct := percent(policy.MissingOrLostMultiplier)

	switch damage {
	case domain.DamageLost:
		breakdown = append(breakdown, domain.FineLine{
			Label:  fmt.Sprintf("Lost/Missing book (%s)", missingPct),
			Amount: missingFee,
		})
		if daysLate > 0 {
			breakdown = append(breakdown, lateFeeLine(daysLate, policy.LateFeePerDay))
		}
	case domain.DamageNone, domain.DamageSmall, domain.DamageLarge:
		if daysLate > 0 {
			breakdown = append(breakdown,
				domain.FineLine{
					Label:  fmt.Sprintf("Missing book fee (%s)", missingPct),
					Amount: missingFee,
				},
				lateFeeLine(daysLate, policy.LateFeePerDay),
			)
		}
		switch damage {
		case domain.DamageSmall:
			breakdown = append(breakdown, domain.FineLine{
				Label:  fmt.Sprintf("Small damage (%s)", percent(policy.SmallDamageFraction)),
				Amount: money(unitPrice.Mul(policy.SmallDamageFraction)),
			})
		case domain.DamageLarge:
			breakdown = append(breakdown, domain.FineLine{
				Label:  fmt.Sprintf("Large damage (%s)", percent(policy.LargeDamageFraction)),
				Amount: money(unitPrice.Mul(policy.LargeDamageFraction)),
			})
		}
	default:
		return Result{}, fmt.Errorf("unknown damage classification %s", damage)
	}

	return Result{Breakdown: breakdown, Total: breakdown.Sum(), DaysLate: daysLate}, nil
}

func lateFeeLine(daysLate int64, rate decimal.Decimal) domain.FineLine {
	return domain.FineLine{
		Label:  fmt.Sprintf("Late fee (%d days × %s)", daysLate, rate.String()),
		Amount: money(rate.Mul(decimal.NewFromInt(daysLate))),
	}
}

// money rounds half away from zero, so the total is the sum of the rounded lines.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

func percent(fraction decimal.Decimal) string {
	return fraction.Mul(hundred).String() + "%"
}
