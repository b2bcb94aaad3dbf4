package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	"github.com/SscSPs/book_lending_app/internal/utils/readcache"
)

// InventoryCounter keeps available copies in step with ledger transitions. It only
// runs inside a unit of work, so a failed decrement aborts the enclosing operation.
type InventoryCounter struct{}

// TryDecrement takes one copy off the shelf or fails with apperrors.ErrOutOfStock.
func (InventoryCounter) TryDecrement(ctx context.Context, store portsrepo.InventoryStore, itemID string) error {
	ok, err := store.TryDecrementAvailable(ctx, itemID)
	if err != nil {
		return fmt.Errorf("decrementing available copies of %s: %w", itemID, err)
	}
	if !ok {
		return fmt.Errorf("item %s has no available copies: %w", itemID, apperrors.ErrOutOfStock)
	}
	readcache.Invalidate(ctx, itemCacheKey(itemID))
	return nil
}

// Increment puts one copy back.
func (InventoryCounter) Increment(ctx context.Context, store portsrepo.InventoryStore, itemID string) error {
	if err := store.IncrementAvailable(ctx, itemID); err != nil {
		return fmt.Errorf("incrementing available copies of %s: %w", itemID, err)
	}
	readcache.Invalidate(ctx, itemCacheKey(itemID))
	return nil
}
