package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/models"
	"github.com/SscSPs/book_lending_app/internal/utils/mapping"
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
)

const (
	tableBorrowings = "borrowings"
	tableItems      = "items"
)

// openStatuses are the statuses in which a borrowing still holds a copy.
var openStatuses = statusNames(domain.OpenStatuses...)

// overdueStatuses excludes RETURN_APPROVED, whose fine is already fixed.
var overdueStatuses = statusNames(domain.StatusActive, domain.StatusReturnRequested)

func statusNames(statuses ...domain.BorrowingStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return names
}

// ledgerTx implements repositories.LedgerTx on a pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

func (l *ledgerTx) FindItemForUpdate(ctx context.Context, itemID string) (*domain.Item, error) {
	query := `
		SELECT item_id, title, author, total_copies, available_copies, unit_price
		FROM items
		WHERE item_id = $1
		FOR UPDATE
	`
	rows, err := l.tx.Query(ctx, query, itemID)
	if err != nil {
		return nil, mapPgError("find item for update", err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Item])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", itemID, apperrors.ErrNotFound)
		}
		return nil, mapPgError("find item for update", err)
	}
	d := mapping.ToDomainItem(item)
	return &d, nil
}

func (l *ledgerTx) TryDecrementAvailable(ctx context.Context, itemID string) (bool, error) {
	tag, err := l.tx.Exec(ctx,
		`UPDATE items SET available_copies = available_copies - 1 WHERE item_id = $1 AND available_copies > 0`,
		itemID)
	if err != nil {
		return false, mapDecrementError("decrement available copies", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *ledgerTx) IncrementAvailable(ctx context.Context, itemID string) error {
	tag, err := l.tx.Exec(ctx,
		`UPDATE items SET available_copies = available_copies + 1 WHERE item_id = $1`,
		itemID)
	if err != nil {
		return mapPgError("increment available copies", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", itemID, apperrors.ErrNotFound)
	}
	return nil
}

func (l *ledgerTx) FindOpenBorrowing(ctx context.Context, itemID, borrowerID string) (*domain.Borrowing, error) {
	ds := dialect.From(tableBorrowings).
		Select(models.BorrowingColumns...).
		Where(
			goqu.C("item_id").Eq(itemID),
			goqu.C("borrower_id").Eq(borrowerID),
			goqu.C("status").In(openStatuses),
		).
		Limit(1).
		ForUpdate(exp.Wait)
	return l.selectOneBorrowing(ctx, ds, "find open borrowing")
}

func (l *ledgerTx) FindBorrowingForUpdate(ctx context.Context, borrowingID string) (*domain.Borrowing, error) {
	ds := dialect.From(tableBorrowings).
		Select(models.BorrowingColumns...).
		Where(goqu.C("borrowing_id").Eq(borrowingID)).
		ForUpdate(exp.Wait)
	b, err := l.selectOneBorrowing(ctx, ds, "find borrowing for update")
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("borrowing %s: %w", borrowingID, apperrors.ErrNotFound)
	}
	return b, err
}

func (l *ledgerTx) InsertBorrowing(ctx context.Context, b domain.Borrowing) error {
	row, err := mapping.ToModelBorrowing(b)
	if err != nil {
		return err
	}
	query, args, err := dialect.Insert(tableBorrowings).Rows(goqu.Record{
		"borrowing_id":          row.BorrowingID,
		"item_id":               row.ItemID,
		"borrower_id":           row.BorrowerID,
		"mode":                  row.Mode,
		"group_id":              row.GroupID,
		"borrowed_at":           row.BorrowedAt,
		"due_date":              row.DueDate,
		"status":                row.Status,
		"return_requested_at":   row.ReturnRequestedAt,
		"return_approved_at":    row.ReturnApprovedAt,
		"returned_at":           row.ReturnedAt,
		"damage_classification": row.DamageClassification,
		"fine":                  row.Fine,
		"settled_fee":           row.SettledFee,
		"fine_breakdown":        row.FineBreakdown,
		"updated_at":            row.UpdatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building insert borrowing: %w", err)
	}
	if _, err := l.tx.Exec(ctx, query, args...); err != nil {
		return mapPgError("insert borrowing", err)
	}
	return nil
}

func (l *ledgerTx) UpdateBorrowing(ctx context.Context, b domain.Borrowing, expected domain.BorrowingStatus) error {
	row, err := mapping.ToModelBorrowing(b)
	if err != nil {
		return err
	}
	query, args, err := dialect.Update(tableBorrowings).
		Set(goqu.Record{
			"status":                row.Status,
			"return_requested_at":   row.ReturnRequestedAt,
			"return_approved_at":    row.ReturnApprovedAt,
			"returned_at":           row.ReturnedAt,
			"damage_classification": row.DamageClassification,
			"fine":                  row.Fine,
			"settled_fee":           row.SettledFee,
			"fine_breakdown":        row.FineBreakdown,
			"updated_at":            row.UpdatedAt,
		}).
		Where(
			goqu.C("borrowing_id").Eq(b.BorrowingID),
			goqu.C("status").Eq(expected.String()),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building update borrowing: %w", err)
	}

	tag, err := l.tx.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError("update borrowing", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual string
	err = l.tx.QueryRow(ctx, `SELECT status FROM borrowings WHERE borrowing_id = $1`, b.BorrowingID).Scan(&actual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("borrowing %s: %w", b.BorrowingID, apperrors.ErrNotFound)
		}
		return mapPgError("read borrowing status", err)
	}
	status, err := domain.ParseBorrowingStatus(actual)
	if err != nil {
		return err
	}
	return apperrors.NewStateError("update", status, expected)
}

func (l *ledgerTx) selectOneBorrowing(ctx context.Context, ds *goqu.SelectDataset, op string) (*domain.Borrowing, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", op, err)
	}
	rows, err := l.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(op, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Borrowing])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, mapPgError(op, err)
	}
	d, err := mapping.ToDomainBorrowing(row)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
