package models

import "github.com/shopspring/decimal"

// Item is a row of the catalog items table.
type Item struct {
	ItemID          string          `db:"item_id"`
	Title           string          `db:"title"`
	Author          string          `db:"author"`
	TotalCopies     int             `db:"total_copies"`
	AvailableCopies int             `db:"available_copies"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
}

// Borrower is a row of the borrowers table.
type Borrower struct {
	BorrowerID string `db:"borrower_id"`
	Name       string `db:"name"`
	Email      string `db:"email"`
	Role       string `db:"role"`
}

// Group is a row of the borrowing_groups table.
type Group struct {
	GroupID string `db:"group_id"`
	Name    string `db:"name"`
}
