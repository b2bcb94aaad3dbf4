package pgsql

import (
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the Postgres ledger stores. The directory
// (items, borrowers, groups) is read through its own adapter.
func NewRepositoryProvider(dbPool *pgxpool.Pool, directory portsrepo.DirectoryReaderFacade) portsrepo.RepositoryProvider {
	borrowingRepo := newPgxBorrowingRepository(dbPool)
	policyRepo := newPgxFinePolicyRepository(dbPool)

	return portsrepo.RepositoryProvider{
		BorrowingRepo: borrowingRepo,
		DirectoryRepo: directory,
		PolicyRepo:    policyRepo,
	}
}
