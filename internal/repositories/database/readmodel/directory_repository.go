// Package readmodel reads the catalog and user directory that the ledger only consults.
package readmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/SscSPs/book_lending_app/internal/models"
	"github.com/SscSPs/book_lending_app/internal/utils/mapping"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	defaultMaxOpenConnections = 20
	defaultMaxIdleConnections = 5
	defaultMaxConnLifetime    = time.Hour
	defaultMaxConnIdleTime    = 5 * time.Minute
)

// Open connects to the read model database and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("read model DSN cannot be empty")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open read model connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping read model database: %w", err)
	}
	return db, nil
}

// DirectoryRepository implements portsrepo.DirectoryReaderFacade with sqlx.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository wraps an open read model connection.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

var _ portsrepo.DirectoryReaderFacade = (*DirectoryRepository)(nil)

// FindItemByID reads a catalog item.
func (r *DirectoryRepository) FindItemByID(ctx context.Context, itemID string) (*domain.Item, error) {
	var row models.Item
	err := r.db.GetContext(ctx, &row, `
		SELECT item_id, title, author, total_copies, available_copies, unit_price
		FROM items
		WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, notFoundOr(err, "item", itemID)
	}
	item := mapping.ToDomainItem(row)
	return &item, nil
}

// FindBorrowerByID reads a directory user.
func (r *DirectoryRepository) FindBorrowerByID(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	var row models.Borrower
	err := r.db.GetContext(ctx, &row, `
		SELECT borrower_id, name, email, role
		FROM borrowers
		WHERE borrower_id = $1`, borrowerID)
	if err != nil {
		return nil, notFoundOr(err, "borrower", borrowerID)
	}
	b, err := mapping.ToDomainBorrower(row)
	if err != nil {
		return nil, fmt.Errorf("borrower %s: %w", borrowerID, err)
	}
	return &b, nil
}

// FindGroupByID reads a group together with its member ids.
func (r *DirectoryRepository) FindGroupByID(ctx context.Context, groupID string) (*domain.Group, error) {
	var row models.Group
	err := r.db.GetContext(ctx, &row, `
		SELECT group_id, name
		FROM borrowing_groups
		WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, notFoundOr(err, "group", groupID)
	}

	var memberIDs []string
	err = r.db.SelectContext(ctx, &memberIDs, `
		SELECT borrower_id
		FROM group_members
		WHERE group_id = $1
		ORDER BY borrower_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("reading members of group %s: %w", groupID, err)
	}
	g := mapping.ToDomainGroup(row, memberIDs)
	return &g, nil
}

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("reading %s %s: %w", kind, id, err)
}
