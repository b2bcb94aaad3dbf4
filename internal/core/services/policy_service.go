package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/book_lending_app/internal/apperrors"
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/dto"
	"github.com/go-playground/validator/v10"
)

const systemUserID = "system"

// finePolicyService owns the single global fine policy record.
type finePolicyService struct {
	BaseService
	repo     portsrepo.FinePolicyRepository
	defaults domain.FinePolicy
	validate *validator.Validate
}

// PolicyOption configures the fine policy service.
type PolicyOption func(*finePolicyService)

// WithDefaultPolicy sets the parameters written when no record exists yet.
func WithDefaultPolicy(p domain.FinePolicy) PolicyOption {
	return func(s *finePolicyService) {
		s.defaults = p
	}
}

// WithPolicyServiceOptions applies shared service options.
func WithPolicyServiceOptions(options ...ServiceOption) PolicyOption {
	return func(s *finePolicyService) {
		for _, option := range options {
			option(&s.BaseService)
		}
	}
}

// NewFinePolicyService creates the fine policy service.
func NewFinePolicyService(repo portsrepo.FinePolicyRepository, options ...PolicyOption) portssvc.FinePolicySvc {
	v := validator.New()
	v.SetTagName("binding")
	svc := &finePolicyService{
		BaseService: newBaseService(),
		repo:        repo,
		defaults:    domain.DefaultFinePolicy(),
		validate:    v,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.FinePolicySvc = (*finePolicyService)(nil)

func (s *finePolicyService) GetPolicy(ctx context.Context) (*domain.FinePolicy, error) {
	p, err := s.repo.FindPolicy(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to load fine policy")
		return nil, err
	}

	defaults := s.defaults
	if err := s.repo.SavePolicy(ctx, defaults, systemUserID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to create default fine policy")
		return nil, err
	}
	s.LogInfo(ctx, "Created default fine policy")
	return &defaults, nil
}

func (s *finePolicyService) UpdatePolicy(ctx context.Context, req dto.UpdateFinePolicyRequest, userID string) (*domain.FinePolicy, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	p := req.ToDomain()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if err := s.repo.SavePolicy(ctx, p, userID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to save fine policy", slog.String("user_id", userID))
		return nil, err
	}
	s.LogInfo(ctx, "Fine policy updated",
		slog.String("user_id", userID),
		slog.String("late_fee_per_day", p.LateFeePerDay.String()))
	return &p, nil
}
