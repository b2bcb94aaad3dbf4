package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore() *Store {
	s := NewStore()
	s.PutItem(domain.Item{ItemID: "i1", TotalCopies: 1, AvailableCopies: 1, UnitPrice: decimal.NewFromInt(300)})
	return s
}

func activeBorrowing(id, itemID, borrowerID string, at time.Time) domain.Borrowing {
	return domain.Borrowing{
		BorrowingID: id,
		ItemID:      itemID,
		BorrowerID:  borrowerID,
		Mode:        domain.ModeIndividual,
		BorrowedAt:  at,
		DueDate:     at.AddDate(0, 0, 30),
		Status:      domain.StatusActive,
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		ok, err := tx.TryDecrementAvailable(ctx, "i1")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.InsertBorrowing(ctx, activeBorrowing("b1", "i1", "u1", time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	it, err := s.FindItemByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, it.AvailableCopies)

	_, err = s.FindBorrowingByID(ctx, "b1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTryDecrementAvailable_NeverNegative(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()

	for i, want := range []bool{true, false} {
		err := s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			ok, err := tx.TryDecrementAvailable(ctx, "i1")
			assert.Equal(t, want, ok, "attempt %d", i)
			return err
		})
		require.NoError(t, err)
	}

	it, _ := s.FindItemByID(ctx, "i1")
	assert.Equal(t, 0, it.AvailableCopies)
}

func TestInsertBorrowing_OpenPairIsConflict(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	now := time.Now()

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertBorrowing(ctx, activeBorrowing("b1", "i1", "u1", now))
	}))

	err := s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertBorrowing(ctx, activeBorrowing("b2", "i1", "u1", now))
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateBorrowing_ExpectedStatusMismatch(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	b := activeBorrowing("b1", "i1", "u1", time.Now())
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.InsertBorrowing(ctx, b)
	}))

	b.Status = domain.StatusReturned
	err := s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.UpdateBorrowing(ctx, b, domain.StatusReturnRequested)
	})

	var stateErr *apperrors.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "ACTIVE", stateErr.Actual)

	got, _ := s.FindBorrowingByID(ctx, "b1")
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	old := activeBorrowing("b-old", "i1", "u1", base)
	newer := activeBorrowing("b-new", "i2", "u1", base.AddDate(0, 2, 0))
	other := activeBorrowing("b-other", "i3", "u2", base.AddDate(0, 1, 0))
	req1, req2 := base.Add(2*time.Hour), base.Add(time.Hour)
	old.Status, old.ReturnRequestedAt = domain.StatusReturnRequested, &req1
	other.Status, other.ReturnRequestedAt = domain.StatusReturnRequested, &req2

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for _, b := range []domain.Borrowing{old, newer, other} {
			if err := tx.InsertBorrowing(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))

	mine, err := s.ListBorrowingsByBorrower(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b-new", mine[0].BorrowingID)

	pending, err := s.ListPendingReturnRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b-other", pending[0].BorrowingID)
	assert.Equal(t, "b-old", pending[1].BorrowingID)

	due, err := s.ListOpenBorrowingsDueBefore(ctx, base.AddDate(0, 1, 15))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "b-old", due[0].BorrowingID)

	page, err := s.ListBorrowings(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b-other", page[0].BorrowingID)

	n, err := s.CountOpenBorrowingsForItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPolicy_NotFoundUntilSaved(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.FindPolicy(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.SavePolicy(ctx, domain.DefaultFinePolicy(), "system", time.Now()))
	p, err := s.FindPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, p.LateFeePerDay.Equal(decimal.NewFromInt(50)))
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }

	ok, err := s.SetIdempotency(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.SetIdempotency(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, s.ReleaseIdempotency(ctx, "k"))
	ok, _ = s.SetIdempotency(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.SetIdempotency(ctx, "k")
	assert.True(t, ok, "expired keys can be claimed again")
}
