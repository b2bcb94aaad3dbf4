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
	"github.com/SscSPs/book_lending_app/internal/utils/readcache"
)

func itemCacheKey(id string) string     { return "item:" + id }
func borrowerCacheKey(id string) string { return "borrower:" + id }
func groupCacheKey(id string) string    { return "group:" + id }

// directoryService resolves read-model records through the request cache.
type directoryService struct {
	BaseService
	repo portsrepo.DirectoryReaderFacade
}

// NewDirectoryService creates the directory lookup service.
func NewDirectoryService(repo portsrepo.DirectoryReaderFacade, options ...ServiceOption) portssvc.DirectorySvc {
	return newDirectoryService(repo, options...)
}

func newDirectoryService(repo portsrepo.DirectoryReaderFacade, options ...ServiceOption) *directoryService {
	return &directoryService{BaseService: newBaseService(options...), repo: repo}
}

var _ portssvc.DirectorySvc = (*directoryService)(nil)

func (s *directoryService) GetBorrower(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	return readcache.Get(ctx, borrowerCacheKey(borrowerID), func(ctx context.Context) (*domain.Borrower, error) {
		b, err := s.repo.FindBorrowerByID(ctx, borrowerID)
		if err != nil {
			return nil, fmt.Errorf("borrower %s: %w", borrowerID, err)
		}
		return b, nil
	})
}

func (s *directoryService) getItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return readcache.Get(ctx, itemCacheKey(itemID), func(ctx context.Context) (*domain.Item, error) {
		it, err := s.repo.FindItemByID(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", itemID, err)
		}
		return it, nil
	})
}

func (s *directoryService) getGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	return readcache.Get(ctx, groupCacheKey(groupID), func(ctx context.Context) (*domain.Group, error) {
		g, err := s.repo.FindGroupByID(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", groupID, err)
		}
		return g, nil
	})
}

// freshBorrower and freshGroup bypass any cached entry and re-read the record.
// Precondition checks use them so every attempt of an operation sees current data.
func (s *directoryService) freshBorrower(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	readcache.Invalidate(ctx, borrowerCacheKey(borrowerID))
	return s.GetBorrower(ctx, borrowerID)
}

func (s *directoryService) freshGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	readcache.Invalidate(ctx, groupCacheKey(groupID))
	return s.getGroup(ctx, groupID)
}

// hydrate attaches display snapshots. Records that no longer exist are left nil.
func (s *directoryService) hydrate(ctx context.Context, b *domain.Borrowing) error {
	item, err := s.getItem(ctx, b.ItemID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	b.Item = item

	borrower, err := s.GetBorrower(ctx, b.BorrowerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	b.Borrower = borrower

	if b.GroupID != nil {
		group, err := s.getGroup(ctx, *b.GroupID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		b.Group = group
	}
	return nil
}

func (s *directoryService) hydrateAll(ctx context.Context, bs []domain.Borrowing) error {
	for i := range bs {
		if err := s.hydrate(ctx, &bs[i]); err != nil {
			s.LogError(ctx, err, "Failed to resolve borrowing snapshots",
				slog.String("borrowing_id", bs[i].BorrowingID))
			return err
		}
	}
	return nil
}
