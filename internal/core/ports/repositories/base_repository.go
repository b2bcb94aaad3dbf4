package repositories

import (
	"context"
)

// TxFunc is the body of a unit of work. It must re-read everything it depends on;
// the store may run it again after a transient failure.
type TxFunc func(ctx context.Context, tx LedgerTx) error

// UnitOfWork runs a TxFunc atomically. If fn returns an error nothing it wrote is kept.
// Contention and connection failures are reported wrapped in apperrors.ErrTransient.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}
