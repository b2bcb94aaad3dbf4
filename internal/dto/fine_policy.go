package dto

import (
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// UpdateFinePolicyRequest replaces the global fine policy. All fields are required.
type UpdateFinePolicyRequest struct {
	LateFeePerDay           *decimal.Decimal `json:"lateFeePerDay" binding:"required"`
	MissingOrLostMultiplier *decimal.Decimal `json:"missingOrLostMultiplier" binding:"required"`
	SmallDamageFraction     *decimal.Decimal `json:"smallDamageFraction" binding:"required"`
	LargeDamageFraction     *decimal.Decimal `json:"largeDamageFraction" binding:"required"`
}

// ToDomain converts the request; callers must have validated it.
func (r UpdateFinePolicyRequest) ToDomain() domain.FinePolicy {
	return domain.FinePolicy{
		LateFeePerDay:           deref(r.LateFeePerDay),
		MissingOrLostMultiplier: deref(r.MissingOrLostMultiplier),
		SmallDamageFraction:     deref(r.SmallDamageFraction),
		LargeDamageFraction:     deref(r.LargeDamageFraction),
	}
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// FinePolicyResponse mirrors domain.FinePolicy.
type FinePolicyResponse = domain.FinePolicy
