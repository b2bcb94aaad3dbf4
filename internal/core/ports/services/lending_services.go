package services

import (
	"context"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/dto"
)

// BorrowingWriterSvc creates ledger entries.
type BorrowingWriterSvc interface {
	// CreateBorrowing validates the request, then atomically checks for a duplicate open
	// borrowing, checks availability, decrements inventory and inserts the record.
	CreateBorrowing(ctx context.Context, req dto.CreateBorrowingRequest) (*domain.Borrowing, error)
}

// BorrowingReaderSvc exposes ledger queries.
type BorrowingReaderSvc interface {
	GetBorrowing(ctx context.Context, borrowingID string) (*domain.Borrowing, error)
	GetBorrowingsForBorrower(ctx context.Context, borrowerID string) ([]domain.Borrowing, error)
	ListBorrowings(ctx context.Context, params dto.ListBorrowingsParams) ([]domain.Borrowing, error)
	ListOverdueBorrowings(ctx context.Context) ([]domain.Borrowing, error)
	CountOpenBorrowingsForItem(ctx context.Context, itemID string) (int, error)
}

// LedgerSvcFacade combines ledger reads and writes.
type LedgerSvcFacade interface {
	BorrowingWriterSvc
	BorrowingReaderSvc
}

// ReturnWorkflowSvc drives ACTIVE -> RETURN_REQUESTED -> RETURN_APPROVED -> RETURNED,
// plus rejection back to ACTIVE and the direct ACTIVE -> RETURNED path.
type ReturnWorkflowSvc interface {
	RequestReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error)
	ListPendingReturnRequests(ctx context.Context) ([]domain.Borrowing, error)
	ApproveReturn(ctx context.Context, borrowingID string, req dto.ApproveReturnRequest) (*domain.Borrowing, error)
	RejectReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error)
	PayFine(ctx context.Context, borrowingID string) (*domain.Borrowing, error)
	DirectReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error)
}

// DirectorySvc resolves directory users for authentication.
type DirectorySvc interface {
	GetBorrower(ctx context.Context, borrowerID string) (*domain.Borrower, error)
}
