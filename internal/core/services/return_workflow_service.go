package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/core/fines"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/shopspring/decimal"
)

// returnWorkflowService advances borrowings through the return state machine.
type returnWorkflowService struct {
	BaseService
	repo      portsrepo.BorrowingRepositoryWithTx
	directory *directoryService
	policy    portssvc.FinePolicySvc
	inventory InventoryCounter
}

// NewReturnWorkflowService creates the return workflow.
func NewReturnWorkflowService(
	repo portsrepo.BorrowingRepositoryWithTx,
	directory portsrepo.DirectoryReaderFacade,
	policy portssvc.FinePolicySvc,
	options ...ServiceOption,
) portssvc.ReturnWorkflowSvc {
	return &returnWorkflowService{
		BaseService: newBaseService(options...),
		repo:        repo,
		directory:   newDirectoryService(directory, options...),
		policy:      policy,
	}
}

var _ portssvc.ReturnWorkflowSvc = (*returnWorkflowService)(nil)

// applyFunc mutates b in place; now is the transition time.
type applyFunc func(ctx context.Context, tx portsrepo.LedgerTx, b *domain.Borrowing, now time.Time) error

// transition is one atomic read-modify-write of a borrowing, conditioned on its
// status being one of from.
func (s *returnWorkflowService) transition(ctx context.Context, op, borrowingID string, from []domain.BorrowingStatus, apply applyFunc) (*domain.Borrowing, error) {
	var out domain.Borrowing
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		b, err := tx.FindBorrowingForUpdate(ctx, borrowingID)
		if err != nil {
			return fmt.Errorf("borrowing %s: %w", borrowingID, err)
		}
		if !slices.Contains(from, b.Status) {
			return stateError(op, b.Status, from...)
		}

		source := b.Status
		now := s.Now()
		if err := apply(ctx, tx, b, now); err != nil {
			return err
		}
		b.UpdatedAt = now
		if err := tx.UpdateBorrowing(ctx, *b, source); err != nil {
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrState) || errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
			s.LogWarn(ctx, err, "Return workflow transition rejected",
				slog.String("operation", op),
				slog.String("borrowing_id", borrowingID))
		} else {
			s.LogError(ctx, err, "Return workflow transition failed",
				slog.String("operation", op),
				slog.String("borrowing_id", borrowingID))
		}
		return nil, err
	}

	if err := s.directory.hydrate(ctx, &out); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Borrowing transitioned",
		slog.String("operation", op),
		slog.String("borrowing_id", out.BorrowingID),
		slog.String("status", out.Status.String()))
	return &out, nil
}

func stateError(op string, actual domain.BorrowingStatus, expected ...domain.BorrowingStatus) *apperrors.StateError {
	exp := make([]fmt.Stringer, len(expected))
	for i, st := range expected {
		exp[i] = st
	}
	return apperrors.NewStateError(op, actual, exp...)
}

func (s *returnWorkflowService) RequestReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	return s.transition(ctx, "requestReturn", borrowingID,
		[]domain.BorrowingStatus{domain.StatusActive},
		func(_ context.Context, _ portsrepo.LedgerTx, b *domain.Borrowing, now time.Time) error {
			b.ReturnRequestedAt = &now
			b.Status = domain.StatusReturnRequested
			return nil
		})
}

func (s *returnWorkflowService) RejectReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	return s.transition(ctx, "rejectReturn", borrowingID,
		[]domain.BorrowingStatus{domain.StatusReturnRequested},
		func(_ context.Context, _ portsrepo.LedgerTx, b *domain.Borrowing, _ time.Time) error {
			b.ReturnRequestedAt = nil
			b.Status = domain.StatusActive
			return nil
		})
}

// ApproveReturn computes and freezes the fine breakdown. The fine is assessed
// against a fixed window from the (possibly corrected) borrow date.
func (s *returnWorkflowService) ApproveReturn(ctx context.Context, borrowingID string, req dto.ApproveReturnRequest) (*domain.Borrowing, error) {
	damage, err := domain.ParseDamage(req.DamageClassification)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if req.BorrowedAtOverride != nil && req.BorrowedAtOverride.After(s.Now()) {
		return nil, fmt.Errorf("%w: borrowedAtOverride is in the future", apperrors.ErrValidation)
	}

	policy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load fine policy")
		return nil, err
	}

	return s.transition(ctx, "approveReturn", borrowingID,
		[]domain.BorrowingStatus{domain.StatusReturnRequested},
		func(ctx context.Context, tx portsrepo.LedgerTx, b *domain.Borrowing, now time.Time) error {
			item, err := tx.FindItemForUpdate(ctx, b.ItemID)
			if err != nil {
				return fmt.Errorf("item %s: %w", b.ItemID, err)
			}

			reference := b.BorrowedAt
			if req.BorrowedAtOverride != nil {
				reference = req.BorrowedAtOverride.UTC()
			}
			due := reference.AddDate(0, 0, domain.ReferenceWindowDays)

			result, err := fines.Compute(due, now, item.UnitPrice, damage, *policy)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
			}

			b.FineBreakdown = result.Breakdown
			b.Fine = result.Total
			b.DamageClassification = &damage
			b.ReturnApprovedAt = &now
			b.Status = domain.StatusReturnApproved
			return nil
		})
}

// PayFine settles the fine and restores inventory. Borrowings that never
// accrued a fine may be settled before approval.
func (s *returnWorkflowService) PayFine(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	return s.transition(ctx, "payFine", borrowingID,
		[]domain.BorrowingStatus{domain.StatusReturnApproved, domain.StatusActive, domain.StatusReturnRequested},
		func(ctx context.Context, tx portsrepo.LedgerTx, b *domain.Borrowing, now time.Time) error {
			if b.Status != domain.StatusReturnApproved && !b.Fine.IsZero() {
				return stateError("payFine", b.Status, domain.StatusReturnApproved)
			}
			if err := s.inventory.Increment(ctx, tx, b.ItemID); err != nil {
				return err
			}
			b.SettledFee = b.Fine
			b.Fine = decimal.Zero
			b.ReturnedAt = &now
			b.Status = domain.StatusReturned
			return nil
		})
}

func (s *returnWorkflowService) DirectReturn(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	return s.transition(ctx, "directReturn", borrowingID,
		[]domain.BorrowingStatus{domain.StatusActive},
		func(ctx context.Context, tx portsrepo.LedgerTx, b *domain.Borrowing, now time.Time) error {
			if err := s.inventory.Increment(ctx, tx, b.ItemID); err != nil {
				return err
			}
			b.ReturnedAt = &now
			b.Status = domain.StatusReturned
			return nil
		})
}

func (s *returnWorkflowService) ListPendingReturnRequests(ctx context.Context) ([]domain.Borrowing, error) {
	bs, err := s.repo.ListPendingReturnRequests(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list pending return requests")
		return nil, err
	}
	if err := s.directory.hydrateAll(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}
