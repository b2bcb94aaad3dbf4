package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Borrowing is the row shape of the borrowings table.
// Enum columns hold their text form; fine_breakdown is raw JSONB.
type Borrowing struct {
	BorrowingID          string          `db:"borrowing_id"`
	ItemID               string          `db:"item_id"`
	BorrowerID           string          `db:"borrower_id"`
	Mode                 string          `db:"mode"`
	GroupID              *string         `db:"group_id"`
	BorrowedAt           time.Time       `db:"borrowed_at"`
	DueDate              time.Time       `db:"due_date"`
	Status               string          `db:"status"`
	ReturnRequestedAt    *time.Time      `db:"return_requested_at"`
	ReturnApprovedAt     *time.Time      `db:"return_approved_at"`
	ReturnedAt           *time.Time      `db:"returned_at"`
	DamageClassification *string         `db:"damage_classification"`
	Fine                 decimal.Decimal `db:"fine"`
	SettledFee           decimal.Decimal `db:"settled_fee"`
	FineBreakdown        []byte          `db:"fine_breakdown"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// BorrowingColumns lists the borrowings columns in struct order.
var BorrowingColumns = []any{
	"borrowing_id", "item_id", "borrower_id", "mode", "group_id", "borrowed_at", "due_date", "status",
	"return_requested_at", "return_approved_at", "returned_at", "damage_classification",
	"fine", "settled_fee", "fine_breakdown", "updated_at",
}

// FinePolicy is the single row of the fine_policy table.
type FinePolicy struct {
	ID                      int             `db:"id"`
	LateFeePerDay           decimal.Decimal `db:"late_fee_per_day"`
	MissingOrLostMultiplier decimal.Decimal `db:"missing_or_lost_multiplier"`
	SmallDamageFraction     decimal.Decimal `db:"small_damage_fraction"`
	LargeDamageFraction     decimal.Decimal `db:"large_damage_fraction"`
	UpdatedBy               string          `db:"updated_by"`
	UpdatedAt               time.Time       `db:"updated_at"`
}
