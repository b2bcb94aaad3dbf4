// Package memory is an in-process implementation of the ledger, read-model and
// policy ports. A single mutex serializes units of work; each unit keeps an undo
// log that is replayed when its function fails.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
)

// Store holds items, borrowers, groups, borrowings and the fine policy.
type Store struct {
	mu         sync.RWMutex
	items      map[string]domain.Item
	borrowers  map[string]domain.Borrower
	groups     map[string]domain.Group
	borrowings map[string]domain.Borrowing
	policy     *domain.FinePolicy
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		items:      make(map[string]domain.Item),
		borrowers:  make(map[string]domain.Borrower),
		groups:     make(map[string]domain.Group),
		borrowings: make(map[string]domain.Borrowing),
	}
}

var (
	_ portsrepo.BorrowingRepositoryWithTx = (*Store)(nil)
	_ portsrepo.DirectoryReaderFacade     = (*Store)(nil)
	_ portsrepo.FinePolicyRepository      = (*Store)(nil)
)

// NewRepositoryProvider exposes the store through every repository port.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		BorrowingRepo: s,
		DirectoryRepo: s,
		PolicyRepo:    s,
	}
}

// PutItem adds or replaces a catalog item.
func (s *Store) PutItem(it domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ItemID] = it
}

// PutBorrower adds or replaces a directory user.
func (s *Store) PutBorrower(b domain.Borrower) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.borrowers[b.BorrowerID] = b
}

// PutGroup adds or replaces a borrowing group.
func (s *Store) PutGroup(g domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.MemberIDs = slices.Clone(g.MemberIDs)
	s.groups[g.GroupID] = g
}

func cloneBorrowing(b domain.Borrowing) domain.Borrowing {
	b.FineBreakdown = slices.Clone(b.FineBreakdown)
	b.Item, b.Borrower, b.Group = nil, nil, nil
	return b
}

// --- read model ---

func (s *Store) FindItemByID(_ context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &it, nil
}

func (s *Store) FindBorrowerByID(_ context.Context, borrowerID string) (*domain.Borrower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.borrowers[borrowerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &b, nil
}

func (s *Store) FindGroupByID(_ context.Context, groupID string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	g.MemberIDs = slices.Clone(g.MemberIDs)
	return &g, nil
}

// --- ledger reads ---

func (s *Store) FindBorrowingByID(_ context.Context, borrowingID string) (*domain.Borrowing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.borrowings[borrowingID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	b = cloneBorrowing(b)
	return &b, nil
}

func (s *Store) collect(keep func(domain.Borrowing) bool, less func(a, b domain.Borrowing) int) []domain.Borrowing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Borrowing, 0)
	for _, b := range s.borrowings {
		if keep(b) {
			out = append(out, cloneBorrowing(b))
		}
	}
	slices.SortFunc(out, less)
	return out
}

func newestFirst(a, b domain.Borrowing) int {
	if c := b.BorrowedAt.Compare(a.BorrowedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.BorrowingID, b.BorrowingID)
}

func (s *Store) ListBorrowingsByBorrower(_ context.Context, borrowerID string) ([]domain.Borrowing, error) {
	return s.collect(func(b domain.Borrowing) bool { return b.BorrowerID == borrowerID }, newestFirst), nil
}

func (s *Store) ListPendingReturnRequests(_ context.Context) ([]domain.Borrowing, error) {
	return s.collect(
		func(b domain.Borrowing) bool {
			return b.Status == domain.StatusReturnRequested && b.ReturnRequestedAt != nil
		},
		func(a, b domain.Borrowing) int {
			if c := a.ReturnRequestedAt.Compare(*b.ReturnRequestedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.BorrowingID, b.BorrowingID)
		}), nil
}

func (s *Store) ListBorrowings(_ context.Context, limit int, offset int) ([]domain.Borrowing, error) {
	all := s.collect(func(domain.Borrowing) bool { return true }, newestFirst)
	if offset >= len(all) {
		return []domain.Borrowing{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *Store) ListOpenBorrowingsDueBefore(_ context.Context, before time.Time) ([]domain.Borrowing, error) {
	return s.collect(
		func(b domain.Borrowing) bool {
			return (b.Status == domain.StatusActive || b.Status == domain.StatusReturnRequested) && b.DueDate.Before(before)
		},
		func(a, b domain.Borrowing) int {
			if c := a.DueDate.Compare(b.DueDate); c != 0 {
				return c
			}
			return cmp.Compare(a.BorrowingID, b.BorrowingID)
		}), nil
}

func (s *Store) CountOpenBorrowingsForItem(_ context.Context, itemID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.borrowings {
		if b.ItemID == itemID && b.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

// --- policy ---

func (s *Store) FindPolicy(_ context.Context) (*domain.FinePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.policy == nil {
		return nil, apperrors.ErrNotFound
	}
	p := *s.policy
	return &p, nil
}

func (s *Store) SavePolicy(_ context.Context, policy domain.FinePolicy, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = &policy
	return nil
}

// --- units of work ---

// WithinTx runs fn under the store's write lock. Writes made by a failing fn are undone.
func (s *Store) WithinTx(ctx context.Context, fn portsrepo.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(ctx, tx)
}

// memTx is a LedgerTx over a locked Store.
type memTx struct {
	s    *Store
	undo []func()
}

var _ portsrepo.LedgerTx = (*memTx)(nil)

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) FindItemForUpdate(_ context.Context, itemID string) (*domain.Item, error) {
	it, ok := t.s.items[itemID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &it, nil
}

func (t *memTx) TryDecrementAvailable(_ context.Context, itemID string) (bool, error) {
	it, ok := t.s.items[itemID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if it.AvailableCopies <= 0 {
		return false, nil
	}
	prev := it
	it.AvailableCopies--
	t.s.items[itemID] = it
	t.undo = append(t.undo, func() { t.s.items[itemID] = prev })
	return true, nil
}

func (t *memTx) IncrementAvailable(_ context.Context, itemID string) error {
	it, ok := t.s.items[itemID]
	if !ok {
		return apperrors.ErrNotFound
	}
	prev := it
	it.AvailableCopies++
	t.s.items[itemID] = it
	t.undo = append(t.undo, func() { t.s.items[itemID] = prev })
	return nil
}

func (t *memTx) FindOpenBorrowing(_ context.Context, itemID, borrowerID string) (*domain.Borrowing, error) {
	for _, b := range t.s.borrowings {
		if b.ItemID == itemID && b.BorrowerID == borrowerID && b.Status.IsOpen() {
			b = cloneBorrowing(b)
			return &b, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (t *memTx) FindBorrowingForUpdate(_ context.Context, borrowingID string) (*domain.Borrowing, error) {
	b, ok := t.s.borrowings[borrowingID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	b = cloneBorrowing(b)
	return &b, nil
}

func (t *memTx) InsertBorrowing(ctx context.Context, b domain.Borrowing) error {
	if _, exists := t.s.borrowings[b.BorrowingID]; exists {
		return fmt.Errorf("borrowing %s already exists: %w", b.BorrowingID, apperrors.ErrConflict)
	}
	if b.Status.IsOpen() {
		if _, err := t.FindOpenBorrowing(ctx, b.ItemID, b.BorrowerID); err == nil {
			return fmt.Errorf("item %s borrower %s: %w", b.ItemID, b.BorrowerID, apperrors.ErrConflict)
		}
	}
	t.s.borrowings[b.BorrowingID] = cloneBorrowing(b)
	id := b.BorrowingID
	t.undo = append(t.undo, func() { delete(t.s.borrowings, id) })
	return nil
}

func (t *memTx) UpdateBorrowing(_ context.Context, b domain.Borrowing, expected domain.BorrowingStatus) error {
	prev, ok := t.s.borrowings[b.BorrowingID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if prev.Status != expected {
		return apperrors.NewStateError("update", prev.Status, expected)
	}
	t.s.borrowings[b.BorrowingID] = cloneBorrowing(b)
	t.undo = append(t.undo, func() { t.s.borrowings[prev.BorrowingID] = prev })
	return nil
}
