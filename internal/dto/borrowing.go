package dto

import (
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateBorrowingRequest defines the data needed to borrow a copy.
type CreateBorrowingRequest struct {
	ItemID     string  `json:"itemID" binding:"required"`
	BorrowerID string  `json:"borrowerID"` // Optional for staff; members always borrow for themselves
	Mode       string  `json:"mode" binding:"required,oneof=INDIVIDUAL GROUP"`
	GroupID    *string `json:"groupID"` // Required when mode is GROUP
}

// ApproveReturnRequest carries the staff assessment of a returned copy.
type ApproveReturnRequest struct {
	DamageClassification string     `json:"damageClassification" binding:"required,oneof=NONE SMALL LARGE LOST"`
	BorrowedAtOverride   *time.Time `json:"borrowedAtOverride"` // Optional: corrects a wrongly recorded borrow date for the fine
}

// ListBorrowingsParams holds paging for the full ledger listing.
type ListBorrowingsParams struct {
	Limit  int `form:"limit,default=50" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// FineLineResponse is one persisted breakdown line.
type FineLineResponse = domain.FineLine

// BorrowingResponse defines the data returned for a borrowing.
type BorrowingResponse struct {
	BorrowingID          string             `json:"borrowingID"`
	ItemID               string             `json:"itemID"`
	BorrowerID           string             `json:"borrowerID"`
	Mode                 string             `json:"mode"`
	GroupID              *string            `json:"groupID,omitempty"`
	BorrowedAt           time.Time          `json:"borrowedAt"`
	DueDate              time.Time          `json:"dueDate"`
	Status               string             `json:"status"`
	Overdue              bool               `json:"overdue"`
	ReturnRequestedAt    *time.Time         `json:"returnRequestedAt,omitempty"`
	ReturnApprovedAt     *time.Time         `json:"returnApprovedAt,omitempty"`
	ReturnedAt           *time.Time         `json:"returnedAt,omitempty"`
	DamageClassification *string            `json:"damageClassification,omitempty"`
	Fine                 decimal.Decimal    `json:"fine"`
	SettledFee           decimal.Decimal    `json:"settledFee"`
	FineBreakdown        []FineLineResponse `json:"fineBreakdown"`
	Item                 *domain.Item       `json:"item,omitempty"`
	Borrower             *domain.Borrower   `json:"borrower,omitempty"`
	Group                *GroupSnapshot     `json:"group,omitempty"`
}

// GroupSnapshot is the group summary shown with a borrowing.
type GroupSnapshot struct {
	GroupID string `json:"groupID"`
	Name    string `json:"name"`
}

// ToBorrowingResponse converts a domain.Borrowing; overdue is evaluated at now.
func ToBorrowingResponse(b *domain.Borrowing, now time.Time) BorrowingResponse {
	resp := BorrowingResponse{
		BorrowingID:       b.BorrowingID,
		ItemID:            b.ItemID,
		BorrowerID:        b.BorrowerID,
		Mode:              b.Mode.String(),
		GroupID:           b.GroupID,
		BorrowedAt:        b.BorrowedAt,
		DueDate:           b.DueDate,
		Status:            b.Status.String(),
		Overdue:           b.IsOverdue(now),
		ReturnRequestedAt: b.ReturnRequestedAt,
		ReturnApprovedAt:  b.ReturnApprovedAt,
		ReturnedAt:        b.ReturnedAt,
		Fine:              b.Fine,
		SettledFee:        b.SettledFee,
		FineBreakdown:     []FineLineResponse(b.FineBreakdown),
		Item:              b.Item,
		Borrower:          b.Borrower,
	}
	if resp.FineBreakdown == nil {
		resp.FineBreakdown = []FineLineResponse{}
	}
	if b.DamageClassification != nil {
		d := b.DamageClassification.String()
		resp.DamageClassification = &d
	}
	if b.Group != nil {
		resp.Group = &GroupSnapshot{GroupID: b.Group.GroupID, Name: b.Group.Name}
	}
	return resp
}

// ToBorrowingResponses converts a slice of domain.Borrowing.
func ToBorrowingResponses(bs []domain.Borrowing, now time.Time) []BorrowingResponse {
	res := make([]BorrowingResponse, len(bs))
	for i := range bs {
		res[i] = ToBorrowingResponse(&bs[i], now)
	}
	return res
}

// OpenBorrowingsResponse answers the catalog's deletion guard.
type OpenBorrowingsResponse struct {
	ItemID string `json:"itemID"`
	Open   int    `json:"open"`
}
