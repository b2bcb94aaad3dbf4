package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	dialectPostgres = "postgres"

	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	// availableCopiesRange keeps available_copies within 0..total_copies.
	availableCopiesRange = "items_available_copies_range"
)

// dialect builds every generated query.
var dialect = goqu.Dialect(dialectPostgres)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool   *pgxpool.Pool
	tracer trace.Tracer
}

func newBaseRepository(pool *pgxpool.Pool) BaseRepository {
	return BaseRepository{Pool: pool, tracer: otel.Tracer("book_lending_app/pgsql")}
}

// Begin starts a serializable transaction.
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, mapPgError("begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return mapPgError("commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// WithinTx runs fn in one serializable transaction. Nothing fn wrote survives an error.
func (r *BaseRepository) WithinTx(ctx context.Context, fn portsrepo.TxFunc) error {
	ctx, span := r.tracer.Start(ctx, "ledger.unit_of_work",
		trace.WithAttributes(attribute.String("db.isolation", "serializable")))
	defer span.End()

	tx, err := r.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return err
	}
	defer r.Rollback(ctx, tx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		mapped := mapPgError("unit of work", err)
		span.RecordError(mapped)
		span.SetAttributes(attribute.Bool("ledger.transient", errors.Is(mapped, apperrors.ErrTransient)))
		return mapped
	}

	if err := r.Commit(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return err
	}
	span.SetAttributes(attribute.Bool("ledger.committed", true))
	return nil
}

// mapDecrementError treats a decrement that hits the available-copies range
// check as out of stock. Everything else goes through mapPgError.
func mapDecrementError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation && pgErr.ConstraintName == availableCopiesRange {
		return fmt.Errorf("%s: %w", op, apperrors.ErrOutOfStock)
	}
	return mapPgError(op, err)
}

// mapPgError translates driver errors into apperrors categories. Errors that
// already carry a category pass through unchanged.
func mapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		apperrors.ErrNotFound, apperrors.ErrValidation, apperrors.ErrConflict, apperrors.ErrOutOfStock,
		apperrors.ErrState, apperrors.ErrTransient, apperrors.ErrForbidden, apperrors.ErrInternal,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w: %v", op, apperrors.ErrTransient, err)
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %v", op, apperrors.ErrConflict, err)
		case pgCheckViolation:
			return fmt.Errorf("%s: %w: constraint %s: %v", op, apperrors.ErrInternal, pgErr.ConstraintName, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
