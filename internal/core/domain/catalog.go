package domain

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Item is a lendable title with a bounded number of copies. Owned by the catalog;
// the ledger only changes AvailableCopies.
type Item struct {
	ItemID          string          `json:"itemID"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	TotalCopies     int             `json:"totalCopies"`
	AvailableCopies int             `json:"availableCopies"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
}

// BorrowerRole distinguishes library staff from members.
type BorrowerRole string

const (
	RoleMember BorrowerRole = "member"
	RoleStaff  BorrowerRole = "staff"
)

func ParseBorrowerRole(v string) (BorrowerRole, error) {
	switch BorrowerRole(v) {
	case RoleMember, RoleStaff:
		return BorrowerRole(v), nil
	}
	return "", fmt.Errorf("unknown borrower role %q", v)
}

// Borrower is a directory user.
type Borrower struct {
	BorrowerID string       `json:"borrowerID"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Role       BorrowerRole `json:"role"`
}

// Group is a borrowing group; membership is a read-only predicate for the ledger.
type Group struct {
	GroupID   string   `json:"groupID"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIDs"`
}

// IsMember reports whether borrowerID belongs to the group.
func (g Group) IsMember(borrowerID string) bool {
	return slices.Contains(g.MemberIDs, borrowerID)
}
