package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/core/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/SscSPs/book_lending_app/internal/repositories/memory"
	"github.com/SscSPs/book_lending_app/internal/utils/readcache"
	"github.com/SscSPs/book_lending_app/internal/utils/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// lendingFixture wires the real services over the in-memory store.
type lendingFixture struct {
	store   *memory.Store
	now     time.Time
	ledger  portssvc.LedgerSvcFacade
	returns portssvc.ReturnWorkflowSvc
	policy  portssvc.FinePolicySvc
}

func newLendingFixture() *lendingFixture {
	f := &lendingFixture{
		store: memory.NewStore(),
		now:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := services.WithClock(func() time.Time { return f.now })

	f.store.PutItem(domain.Item{ItemID: "book-1", Title: "Book One", TotalCopies: 2, AvailableCopies: 2, UnitPrice: decimal.NewFromInt(300)})
	f.store.PutItem(domain.Item{ItemID: "book-last", Title: "Last Copy", TotalCopies: 1, AvailableCopies: 1, UnitPrice: decimal.NewFromInt(300)})
	for _, id := range []string{"alice", "bob", "carol"} {
		f.store.PutBorrower(domain.Borrower{BorrowerID: id, Name: id, Role: domain.RoleMember})
	}
	f.store.PutGroup(domain.Group{GroupID: "club", Name: "Book Club", MemberIDs: []string{"alice", "bob"}})

	f.policy = services.NewFinePolicyService(f.store, services.WithPolicyServiceOptions(clock))
	f.ledger = services.NewLedgerService(f.store, f.store, clock)
	f.returns = services.NewReturnWorkflowService(f.store, f.store, f.policy, clock)
	return f
}

func (f *lendingFixture) available(itemID string) int {
	it, err := f.store.FindItemByID(context.Background(), itemID)
	if err != nil {
		panic(err)
	}
	return it.AvailableCopies
}

func strPtr(s string) *string { return &s }

// --- Test Suite ---
type LedgerServiceTestSuite struct {
	suite.Suite
	f   *lendingFixture
	ctx context.Context
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.f = newLendingFixture()
	suite.ctx = context.Background()
}

func (suite *LedgerServiceTestSuite) borrow(itemID, borrowerID string) *domain.Borrowing {
	b, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{
		ItemID: itemID, BorrowerID: borrowerID, Mode: "INDIVIDUAL",
	})
	suite.Require().NoError(err)
	return b
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_Individual() {
	b := suite.borrow("book-1", "alice")

	suite.Equal(domain.StatusActive, b.Status)
	suite.Equal(domain.ModeIndividual, b.Mode)
	suite.Nil(b.GroupID)
	suite.Equal(suite.f.now, b.BorrowedAt)
	suite.Equal(suite.f.now.AddDate(0, 0, 30), b.DueDate)
	suite.True(b.Fine.IsZero())
	suite.Empty(b.FineBreakdown)
	suite.Require().NotNil(b.Item)
	suite.Equal(1, b.Item.AvailableCopies)
	suite.Require().NotNil(b.Borrower)
	suite.Equal("alice", b.Borrower.BorrowerID)
	suite.Equal(1, suite.f.available("book-1"))
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_GroupDueDateIsSixMonths() {
	suite.f.now = time.Date(2024, 8, 31, 12, 0, 0, 0, time.UTC)
	b, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{
		ItemID: "book-1", BorrowerID: "bob", Mode: "GROUP", GroupID: strPtr("club"),
	})

	suite.Require().NoError(err)
	suite.Equal(suite.f.now.AddDate(0, 6, 0), b.DueDate)
	suite.Require().NotNil(b.GroupID)
	suite.Equal("club", *b.GroupID)
	suite.Require().NotNil(b.Group)
	suite.Equal("Book Club", b.Group.Name)
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_ValidationFailures() {
	cases := []struct {
		name string
		req  dto.CreateBorrowingRequest
	}{
		{"unknown mode", dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "FAMILY"}},
		{"group without groupID", dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "GROUP"}},
		{"individual with groupID", dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "INDIVIDUAL", GroupID: strPtr("club")}},
		{"not a member", dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "carol", Mode: "GROUP", GroupID: strPtr("club")}},
		{"missing borrower", dto.CreateBorrowingRequest{ItemID: "book-1", Mode: "INDIVIDUAL"}},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			b, err := suite.f.ledger.CreateBorrowing(suite.ctx, tc.req)
			suite.Nil(b)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}
	suite.Equal(2, suite.f.available("book-1"), "validation failures never touch inventory")
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_NotFound() {
	_, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "nope", BorrowerID: "alice", Mode: "INDIVIDUAL"})
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "nobody", Mode: "INDIVIDUAL"})
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "GROUP", GroupID: strPtr("ghosts")})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_NoDoubleBorrow() {
	suite.borrow("book-1", "alice")

	b, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "INDIVIDUAL"})
	suite.Nil(b)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal(1, suite.f.available("book-1"))
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_ConflictCheckedBeforeStock() {
	suite.borrow("book-last", "alice")

	_, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "book-last", BorrowerID: "alice", Mode: "INDIVIDUAL"})
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_OutOfStock() {
	suite.borrow("book-last", "alice")

	_, err := suite.f.ledger.CreateBorrowing(suite.ctx, dto.CreateBorrowingRequest{ItemID: "book-last", BorrowerID: "bob", Mode: "INDIVIDUAL"})
	suite.ErrorIs(err, apperrors.ErrOutOfStock)
	suite.Equal(0, suite.f.available("book-last"))
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_BorrowAgainAfterReturn() {
	b := suite.borrow("book-1", "alice")
	_, err := suite.f.returns.DirectReturn(suite.ctx, b.BorrowingID)
	suite.Require().NoError(err)

	again := suite.borrow("book-1", "alice")
	suite.NotEqual(b.BorrowingID, again.BorrowingID)
}

func (suite *LedgerServiceTestSuite) TestSingleCopyRace() {
	const callers = 16
	var wg sync.WaitGroup
	var successes, outOfStock, other atomic.Int32

	for i := 0; i < callers; i++ {
		borrowerID := fmt.Sprintf("racer-%d", i)
		suite.f.store.PutBorrower(domain.Borrower{BorrowerID: borrowerID, Role: domain.RoleMember})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.f.ledger.CreateBorrowing(context.Background(), dto.CreateBorrowingRequest{
				ItemID: "book-last", BorrowerID: borrowerID, Mode: "INDIVIDUAL",
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, apperrors.ErrOutOfStock):
				outOfStock.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	suite.Equal(int32(1), successes.Load())
	suite.Equal(int32(callers-1), outOfStock.Load())
	suite.Zero(other.Load())
	suite.Equal(0, suite.f.available("book-last"))
}

func (suite *LedgerServiceTestSuite) TestInventoryConservation() {
	check := func() {
		n, err := suite.f.ledger.CountOpenBorrowingsForItem(suite.ctx, "book-1")
		suite.Require().NoError(err)
		suite.Equal(2-n, suite.f.available("book-1"))
	}

	a := suite.borrow("book-1", "alice")
	check()
	b := suite.borrow("book-1", "bob")
	check()

	_, err := suite.f.returns.RequestReturn(suite.ctx, a.BorrowingID)
	suite.Require().NoError(err)
	check()
	_, err = suite.f.returns.ApproveReturn(suite.ctx, a.BorrowingID, dto.ApproveReturnRequest{DamageClassification: "SMALL"})
	suite.Require().NoError(err)
	check()
	_, err = suite.f.returns.PayFine(suite.ctx, a.BorrowingID)
	suite.Require().NoError(err)
	check()
	_, err = suite.f.returns.DirectReturn(suite.ctx, b.BorrowingID)
	suite.Require().NoError(err)
	check()
	suite.Equal(2, suite.f.available("book-1"))
}

func (suite *LedgerServiceTestSuite) TestQueries() {
	a := suite.borrow("book-1", "alice")
	suite.f.now = suite.f.now.Add(time.Hour)
	suite.borrow("book-last", "alice")

	got, err := suite.f.ledger.GetBorrowing(suite.ctx, a.BorrowingID)
	suite.Require().NoError(err)
	suite.Equal(a.BorrowingID, got.BorrowingID)
	suite.Require().NotNil(got.Item)
	suite.Equal("Book One", got.Item.Title)

	_, err = suite.f.ledger.GetBorrowing(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	mine, err := suite.f.ledger.GetBorrowingsForBorrower(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Require().Len(mine, 2)
	suite.Equal("book-last", mine[0].ItemID)

	all, err := suite.f.ledger.ListBorrowings(suite.ctx, dto.ListBorrowingsParams{Limit: 1})
	suite.Require().NoError(err)
	suite.Len(all, 1)
	suite.NotNil(all[0].Item)
	suite.NotNil(all[0].Borrower)

	overdue, err := suite.f.ledger.ListOverdueBorrowings(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(overdue)

	suite.f.now = a.DueDate.Add(time.Minute)
	overdue, err = suite.f.ledger.ListOverdueBorrowings(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(overdue, 1)
	suite.Equal(a.BorrowingID, overdue[0].BorrowingID)
}

// flakyStore fails the first unit of work with a transient error after running
// beforeFail, the way a serialization failure would.
type flakyStore struct {
	*memory.Store
	calls      atomic.Int32
	beforeFail func()
}

func (s *flakyStore) WithinTx(ctx context.Context, fn portsrepo.TxFunc) error {
	if s.calls.Add(1) == 1 {
		s.beforeFail()
		return fmt.Errorf("commit: %w", apperrors.ErrTransient)
	}
	return s.Store.WithinTx(ctx, fn)
}

func (suite *LedgerServiceTestSuite) TestCreateBorrowing_RetryRechecksMembership() {
	flaky := &flakyStore{Store: suite.f.store}
	flaky.beforeFail = func() {
		suite.f.store.PutGroup(domain.Group{GroupID: "club", Name: "Book Club", MemberIDs: []string{"bob"}})
	}
	ledger := services.NewLedgerService(flaky, suite.f.store)

	ctx := readcache.WithCache(suite.ctx, readcache.New())
	req := dto.CreateBorrowingRequest{ItemID: "book-1", BorrowerID: "alice", Mode: "GROUP", GroupID: strPtr("club")}
	err := retry.Do(ctx, func(ctx context.Context) error {
		_, err := ledger.CreateBorrowing(ctx, req)
		return err
	}, retry.WithMaxAttempts(3), retry.WithBaseDelay(time.Millisecond))

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(int32(1), flaky.calls.Load(), "second attempt must stop at the membership check")
	suite.Equal(2, suite.f.available("book-1"))
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
