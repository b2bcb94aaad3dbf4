package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 50

// ledgerService creates borrowings and answers ledger queries.
type ledgerService struct {
	BaseService
	repo      portsrepo.BorrowingRepositoryWithTx
	directory *directoryService
	inventory InventoryCounter
}

// NewLedgerService creates the borrowing ledger.
func NewLedgerService(repo portsrepo.BorrowingRepositoryWithTx, directory portsrepo.DirectoryReaderFacade, options ...ServiceOption) portssvc.LedgerSvcFacade {
	return &ledgerService{
		BaseService: newBaseService(options...),
		repo:        repo,
		directory:   newDirectoryService(directory, options...),
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) CreateBorrowing(ctx context.Context, req dto.CreateBorrowingRequest) (*domain.Borrowing, error) {
	logger := s.GetLogger(ctx).With(
		slog.String("item_id", req.ItemID),
		slog.String("borrower_id", req.BorrowerID),
		slog.String("mode", req.Mode))

	mode, err := domain.ParseBorrowingMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if req.ItemID == "" || req.BorrowerID == "" {
		return nil, fmt.Errorf("%w: itemID and borrowerID are required", apperrors.ErrValidation)
	}
	hasGroup := req.GroupID != nil && *req.GroupID != ""
	switch mode {
	case domain.ModeGroup:
		if !hasGroup {
			return nil, fmt.Errorf("%w: groupID is required for group borrowing", apperrors.ErrValidation)
		}
	case domain.ModeIndividual:
		if hasGroup {
			return nil, fmt.Errorf("%w: groupID is only allowed for group borrowing", apperrors.ErrValidation)
		}
	}

	borrower, err := s.directory.freshBorrower(ctx, req.BorrowerID)
	if err != nil {
		logger.Warn("Borrower lookup failed", slog.String("error", err.Error()))
		return nil, err
	}

	var group *domain.Group
	if mode == domain.ModeGroup {
		group, err = s.directory.freshGroup(ctx, *req.GroupID)
		if err != nil {
			logger.Warn("Group lookup failed", slog.String("error", err.Error()))
			return nil, err
		}
		if !group.IsMember(req.BorrowerID) {
			return nil, fmt.Errorf("%w: borrower %s is not a member of group %s",
				apperrors.ErrValidation, req.BorrowerID, group.GroupID)
		}
	}

	var created domain.Borrowing
	var item domain.Item
	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		it, err := tx.FindItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", req.ItemID, err)
		}

		existing, err := tx.FindOpenBorrowing(ctx, req.ItemID, req.BorrowerID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: open borrowing %s", apperrors.ErrConflict, existing.BorrowingID)
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		if err := s.inventory.TryDecrement(ctx, tx, req.ItemID); err != nil {
			return err
		}

		now := s.Now()
		due, err := mode.DueDate(now)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
		}
		b := domain.Borrowing{
			BorrowingID:   uuid.NewString(),
			ItemID:        req.ItemID,
			BorrowerID:    req.BorrowerID,
			Mode:          mode,
			BorrowedAt:    now,
			DueDate:       due,
			Status:        domain.StatusActive,
			Fine:          decimal.Zero,
			SettledFee:    decimal.Zero,
			FineBreakdown: domain.FineBreakdown{},
			UpdatedAt:     now,
		}
		if mode == domain.ModeGroup {
			gid := group.GroupID
			b.GroupID = &gid
		}
		if err := tx.InsertBorrowing(ctx, b); err != nil {
			return err
		}

		it.AvailableCopies--
		item = *it
		created = b
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrOutOfStock), errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Borrowing rejected", slog.String("error", err.Error()))
		default:
			s.LogError(ctx, err, "Failed to create borrowing",
				slog.String("item_id", req.ItemID),
				slog.String("borrower_id", req.BorrowerID))
		}
		return nil, err
	}

	created.Item = &item
	created.Borrower = borrower
	created.Group = group

	logger.Info("Borrowing created",
		slog.String("borrowing_id", created.BorrowingID),
		slog.Time("due_date", created.DueDate))
	return &created, nil
}

func (s *ledgerService) GetBorrowing(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	b, err := s.repo.FindBorrowingByID(ctx, borrowingID)
	if err != nil {
		return nil, fmt.Errorf("borrowing %s: %w", borrowingID, err)
	}
	if err := s.directory.hydrate(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *ledgerService) GetBorrowingsForBorrower(ctx context.Context, borrowerID string) ([]domain.Borrowing, error) {
	bs, err := s.repo.ListBorrowingsByBorrower(ctx, borrowerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list borrowings", slog.String("borrower_id", borrowerID))
		return nil, err
	}
	if err := s.directory.hydrateAll(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

func (s *ledgerService) ListBorrowings(ctx context.Context, params dto.ListBorrowingsParams) ([]domain.Borrowing, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(params.Offset, 0)
	bs, err := s.repo.ListBorrowings(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list borrowings", slog.Int("limit", limit), slog.Int("offset", offset))
		return nil, err
	}
	if err := s.directory.hydrateAll(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// ListOverdueBorrowings evaluates the overdue predicate at call time.
func (s *ledgerService) ListOverdueBorrowings(ctx context.Context) ([]domain.Borrowing, error) {
	now := s.Now()
	bs, err := s.repo.ListOpenBorrowingsDueBefore(ctx, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to list overdue borrowings")
		return nil, err
	}
	overdue := bs[:0]
	for _, b := range bs {
		if b.IsOverdue(now) {
			overdue = append(overdue, b)
		}
	}
	if err := s.directory.hydrateAll(ctx, overdue); err != nil {
		return nil, err
	}
	return overdue, nil
}

func (s *ledgerService) CountOpenBorrowingsForItem(ctx context.Context, itemID string) (int, error) {
	n, err := s.repo.CountOpenBorrowingsForItem(ctx, itemID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count open borrowings", slog.String("item_id", itemID))
		return 0, err
	}
	return n, nil
}
