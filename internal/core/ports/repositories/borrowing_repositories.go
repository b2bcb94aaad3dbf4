package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
)

// BorrowingReader defines read operations outside a unit of work.
type BorrowingReader interface {
	// FindBorrowingByID returns apperrors.ErrNotFound for unknown ids.
	FindBorrowingByID(ctx context.Context, borrowingID string) (*domain.Borrowing, error)

	// ListBorrowingsByBorrower returns every borrowing of a borrower, newest first.
	ListBorrowingsByBorrower(ctx context.Context, borrowerID string) ([]domain.Borrowing, error)

	// ListPendingReturnRequests returns RETURN_REQUESTED borrowings ordered by request time ascending.
	ListPendingReturnRequests(ctx context.Context) ([]domain.Borrowing, error)

	// ListBorrowings returns all borrowings, newest first.
	ListBorrowings(ctx context.Context, limit int, offset int) ([]domain.Borrowing, error)

	// ListOpenBorrowingsDueBefore returns ACTIVE or RETURN_REQUESTED borrowings with due_date < before, oldest due first.
	ListOpenBorrowingsDueBefore(ctx context.Context, before time.Time) ([]domain.Borrowing, error)

	// CountOpenBorrowingsForItem counts borrowings still holding a copy of the item.
	CountOpenBorrowingsForItem(ctx context.Context, itemID string) (int, error)
}

// InventoryStore mutates the available-copy counter inside a unit of work.
type InventoryStore interface {
	// TryDecrementAvailable decrements only when at least one copy is available and reports whether it did.
	TryDecrementAvailable(ctx context.Context, itemID string) (bool, error)

	// IncrementAvailable returns a copy to the shelf.
	IncrementAvailable(ctx context.Context, itemID string) error
}

// LedgerTx is the view of the store inside a unit of work. Reads ending in ForUpdate
// lock the row until the unit of work ends.
type LedgerTx interface {
	InventoryStore

	// FindItemForUpdate returns apperrors.ErrNotFound for unknown items.
	FindItemForUpdate(ctx context.Context, itemID string) (*domain.Item, error)

	// FindOpenBorrowing returns the open borrowing for the pair or apperrors.ErrNotFound.
	FindOpenBorrowing(ctx context.Context, itemID, borrowerID string) (*domain.Borrowing, error)

	// FindBorrowingForUpdate returns apperrors.ErrNotFound for unknown ids.
	FindBorrowingForUpdate(ctx context.Context, borrowingID string) (*domain.Borrowing, error)

	// InsertBorrowing persists a new borrowing. A second open borrowing for the same pair is apperrors.ErrConflict.
	InsertBorrowing(ctx context.Context, b domain.Borrowing) error

	// UpdateBorrowing writes b only if the stored status still equals expected;
	// otherwise it returns a *apperrors.StateError.
	UpdateBorrowing(ctx context.Context, b domain.Borrowing, expected domain.BorrowingStatus) error
}

// BorrowingRepositoryWithTx is the full ledger store.
type BorrowingRepositoryWithTx interface {
	BorrowingReader
	UnitOfWork
}
