package services

import (
	"context"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/dto"
)

// FinePolicySvc reads and replaces the global fine policy.
type FinePolicySvc interface {
	// GetPolicy returns the stored policy, creating it from defaults on first use.
	GetPolicy(ctx context.Context) (*domain.FinePolicy, error)
	UpdatePolicy(ctx context.Context, req dto.UpdateFinePolicyRequest, userID string) (*domain.FinePolicy, error)
}
