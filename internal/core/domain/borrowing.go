package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BorrowingStatus is the stored lifecycle state of a borrowing.
// Overdue is not a status; see Borrowing.IsOverdue.
type BorrowingStatus uint8

const (
	StatusActive BorrowingStatus = iota + 1
	StatusReturnRequested
	StatusReturnApproved
	StatusReturned
)

func (s BorrowingStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusReturnRequested:
		return "RETURN_REQUESTED"
	case StatusReturnApproved:
		return "RETURN_APPROVED"
	case StatusReturned:
		return "RETURNED"
	default:
		return fmt.Sprintf("BorrowingStatus(%d)", uint8(s))
	}
}

// IsOpen reports whether the copy is still out (the status holds inventory).
func (s BorrowingStatus) IsOpen() bool {
	switch s {
	case StatusActive, StatusReturnRequested, StatusReturnApproved:
		return true
	default:
		return false
	}
}

// ParseBorrowingStatus is the inverse of String.
func ParseBorrowingStatus(v string) (BorrowingStatus, error) {
	switch v {
	case "ACTIVE":
		return StatusActive, nil
	case "RETURN_REQUESTED":
		return StatusReturnRequested, nil
	case "RETURN_APPROVED":
		return StatusReturnApproved, nil
	case "RETURNED":
		return StatusReturned, nil
	}
	return 0, fmt.Errorf("unknown borrowing status %q", v)
}

func (s BorrowingStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *BorrowingStatus) UnmarshalText(b []byte) error {
	v, err := ParseBorrowingStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OpenStatuses lists the statuses that count against inventory.
var OpenStatuses = []BorrowingStatus{StatusActive, StatusReturnRequested, StatusReturnApproved}

// BorrowingMode selects the loan duration.
type BorrowingMode uint8

const (
	ModeIndividual BorrowingMode = iota + 1
	ModeGroup
)

func (m BorrowingMode) String() string {
	switch m {
	case ModeIndividual:
		return "INDIVIDUAL"
	case ModeGroup:
		return "GROUP"
	default:
		return fmt.Sprintf("BorrowingMode(%d)", uint8(m))
	}
}

func ParseBorrowingMode(v string) (BorrowingMode, error) {
	switch v {
	case "INDIVIDUAL":
		return ModeIndividual, nil
	case "GROUP":
		return ModeGroup, nil
	}
	return 0, fmt.Errorf("unknown borrowing mode %q", v)
}

func (m BorrowingMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *BorrowingMode) UnmarshalText(b []byte) error {
	v, err := ParseBorrowingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

const (
	individualLoanDays  = 30
	groupLoanMonths     = 6
	ReferenceWindowDays = 30 // used by return approval when computing fines
)

// DueDate computes the due date for a loan starting at borrowedAt.
func (m BorrowingMode) DueDate(borrowedAt time.Time) (time.Time, error) {
	switch m {
	case ModeIndividual:
		return borrowedAt.AddDate(0, 0, individualLoanDays), nil
	case ModeGroup:
		return borrowedAt.AddDate(0, groupLoanMonths, 0), nil
	default:
		return time.Time{}, fmt.Errorf("no loan duration for %s", m)
	}
}

// Borrowing is one loan of one copy to one borrower. It is never deleted.
type Borrowing struct {
	BorrowingID          string          `json:"borrowingID"`
	ItemID               string          `json:"itemID"`
	BorrowerID           string          `json:"borrowerID"`
	Mode                 BorrowingMode   `json:"mode"`
	GroupID              *string         `json:"groupID,omitempty"`
	BorrowedAt           time.Time       `json:"borrowedAt"`
	DueDate              time.Time       `json:"dueDate"`
	Status               BorrowingStatus `json:"status"`
	ReturnRequestedAt    *time.Time      `json:"returnRequestedAt,omitempty"`
	ReturnApprovedAt     *time.Time      `json:"returnApprovedAt,omitempty"`
	ReturnedAt           *time.Time      `json:"returnedAt,omitempty"`
	DamageClassification *Damage         `json:"damageClassification,omitempty"`
	Fine                 decimal.Decimal `json:"fine"`
	SettledFee           decimal.Decimal `json:"settledFee"`
	FineBreakdown        FineBreakdown   `json:"fineBreakdown"`
	UpdatedAt            time.Time       `json:"updatedAt"`

	// Display snapshots resolved from the read model; not persisted.
	Item     *Item     `json:"item,omitempty"`
	Borrower *Borrower `json:"borrower,omitempty"`
	Group    *Group    `json:"group,omitempty"`
}

// IsOverdue is the derived overdue predicate.
func (b Borrowing) IsOverdue(now time.Time) bool {
	switch b.Status {
	case StatusActive, StatusReturnRequested:
		return now.After(b.DueDate)
	default:
		return false
	}
}
