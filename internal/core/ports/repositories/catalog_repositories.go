package repositories

import (
	"context"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
)

// ItemReader reads the catalog read model.
type ItemReader interface {
	FindItemByID(ctx context.Context, itemID string) (*domain.Item, error)
}

// BorrowerReader reads the user directory.
type BorrowerReader interface {
	FindBorrowerByID(ctx context.Context, borrowerID string) (*domain.Borrower, error)
}

// GroupReader reads borrowing groups with their member ids.
type GroupReader interface {
	FindGroupByID(ctx context.Context, groupID string) (*domain.Group, error)
}

// DirectoryReaderFacade combines the read-only collaborators the ledger consults.
// All lookups return apperrors.ErrNotFound for unknown ids.
type DirectoryReaderFacade interface {
	ItemReader
	BorrowerReader
	GroupReader
}
