package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
)

// FinePolicyRepository stores the single global fine policy record.
type FinePolicyRepository interface {
	// FindPolicy returns apperrors.ErrNotFound when no record exists yet.
	FindPolicy(ctx context.Context) (*domain.FinePolicy, error)

	// SavePolicy creates or replaces the record.
	SavePolicy(ctx context.Context, policy domain.FinePolicy, updatedBy string, now time.Time) error
}
