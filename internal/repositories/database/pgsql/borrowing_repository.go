package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/SscSPs/book_lending_app/internal/models"
	"github.com/SscSPs/book_lending_app/internal/utils/mapping"
	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxBorrowingRepository implements portsrepo.BorrowingRepositoryWithTx using pgxpool.
type PgxBorrowingRepository struct {
	BaseRepository
}

// newPgxBorrowingRepository creates a new repository for borrowing data.
func newPgxBorrowingRepository(pool *pgxpool.Pool) portsrepo.BorrowingRepositoryWithTx {
	return &PgxBorrowingRepository{BaseRepository: newBaseRepository(pool)}
}

// Ensure PgxBorrowingRepository implements the interface
var _ portsrepo.BorrowingRepositoryWithTx = (*PgxBorrowingRepository)(nil)

func selectBorrowings() *goqu.SelectDataset {
	return dialect.From(tableBorrowings).Select(models.BorrowingColumns...)
}

// FindBorrowingByID retrieves a borrowing by its id.
func (r *PgxBorrowingRepository) FindBorrowingByID(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	list, err := r.query(ctx, "find borrowing", selectBorrowings().Where(goqu.C("borrowing_id").Eq(borrowingID)))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("borrowing %s: %w", borrowingID, apperrors.ErrNotFound)
	}
	return &list[0], nil
}

// ListBorrowingsByBorrower returns every borrowing of a borrower, newest first.
func (r *PgxBorrowingRepository) ListBorrowingsByBorrower(ctx context.Context, borrowerID string) ([]domain.Borrowing, error) {
	return r.query(ctx, "list borrowings by borrower", selectBorrowings().
		Where(goqu.C("borrower_id").Eq(borrowerID)).
		Order(goqu.C("borrowed_at").Desc(), goqu.C("borrowing_id").Desc()))
}

// ListPendingReturnRequests returns RETURN_REQUESTED borrowings, oldest request first.
func (r *PgxBorrowingRepository) ListPendingReturnRequests(ctx context.Context) ([]domain.Borrowing, error) {
	return r.query(ctx, "list pending return requests", selectBorrowings().
		Where(goqu.C("status").Eq(domain.StatusReturnRequested.String())).
		Order(goqu.C("return_requested_at").Asc(), goqu.C("borrowing_id").Asc()))
}

// ListBorrowings returns a page of all borrowings, newest first.
func (r *PgxBorrowingRepository) ListBorrowings(ctx context.Context, limit int, offset int) ([]domain.Borrowing, error) {
	return r.query(ctx, "list borrowings", selectBorrowings().
		Order(goqu.C("borrowed_at").Desc(), goqu.C("borrowing_id").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)))
}

// ListOpenBorrowingsDueBefore returns open borrowings whose due date has passed, oldest due first.
func (r *PgxBorrowingRepository) ListOpenBorrowingsDueBefore(ctx context.Context, before time.Time) ([]domain.Borrowing, error) {
	return r.query(ctx, "list overdue borrowings", selectBorrowings().
		Where(
			goqu.C("status").In(overdueStatuses),
			goqu.C("due_date").Lt(before),
		).
		Order(goqu.C("due_date").Asc(), goqu.C("borrowing_id").Asc()))
}

// CountOpenBorrowingsForItem counts borrowings still holding a copy of the item.
func (r *PgxBorrowingRepository) CountOpenBorrowingsForItem(ctx context.Context, itemID string) (int, error) {
	query, args, err := dialect.From(tableBorrowings).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.C("item_id").Eq(itemID),
			goqu.C("status").In(openStatuses),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building count open borrowings: %w", err)
	}
	var count int
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, mapPgError("count open borrowings", err)
	}
	return count, nil
}

func (r *PgxBorrowingRepository) query(ctx context.Context, op string, ds *goqu.SelectDataset) ([]domain.Borrowing, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", op, err)
	}
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(op, err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Borrowing])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Borrowing{}, nil
		}
		return nil, mapPgError(op, err)
	}
	return mapping.ToDomainBorrowings(list)
}
