package services

import (
	portsrepo "github.com/SscSPs/book_lending_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/book_lending_app/internal/core/ports/services"
	"github.com/SscSPs/book_lending_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ServiceOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Policy first; the return workflow reads it at approval time
	container.Policy = NewFinePolicyService(
		repos.PolicyRepo,
		WithDefaultPolicy(cfg.FinePolicyDefaults),
		WithPolicyServiceOptions(options...),
	)

	container.Ledger = NewLedgerService(repos.BorrowingRepo, repos.DirectoryRepo, options...)
	container.Returns = NewReturnWorkflowService(repos.BorrowingRepo, repos.DirectoryRepo, container.Policy, options...)
	container.Directory = NewDirectoryService(repos.DirectoryRepo, options...)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.LedgerSvcFacade   = (*ledgerService)(nil)
	_ portssvc.ReturnWorkflowSvc = (*returnWorkflowService)(nil)
	_ portssvc.FinePolicySvc     = (*finePolicyService)(nil)
	_ portssvc.DirectorySvc      = (*directoryService)(nil)
)
