package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/infra/observability"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var directoryTracer = otel.Tracer("service/directory")

// DirectoryService manages branches, employees and customers, and serves
// the admin dashboard.
type DirectoryService struct {
	store      port.Store
	auth       *AuthService
	statsCache port.Cache[*domain.DashboardStats]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewDirectoryService creates a new directory service. auth hashes employee
// passwords; statsCache holds the dashboard aggregate.
func NewDirectoryService(store port.Store, auth *AuthService, statsCache port.Cache[*domain.DashboardStats], metrics *observability.Metrics, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		store:      store,
		auth:       auth,
		statsCache: statsCache,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Branches
// ============================================================

// ListBranches returns every branch.
func (s *DirectoryService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListBranches")
	defer span.End()

	var branches []domain.Branch
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		branches, err = tx.ListBranches(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	if branches == nil {
		branches = []domain.Branch{}
	}
	return branches, nil
}

// CreateBranch adds a branch. Names are unique, case-insensitively.
func (s *DirectoryService) CreateBranch(ctx context.Context, req *domain.CreateBranchRequest) (*domain.Branch, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.CreateBranch")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	}
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		existing, err := tx.FindBranchByName(ctx, branch.Name)
		if err != nil {
			return fmt.Errorf("find branch: %w", err)
		}
		if existing != nil {
			return &domain.ErrConflict{Message: "branch name already exists"}
		}
		return tx.InsertBranch(ctx, branch)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats()
	s.logger.Info("branch created", zap.String("branch_id", branch.ID), zap.String("name", branch.Name))
	return branch, nil
}

// DeleteBranch removes a branch that has no accounts and no employees.
func (s *DirectoryService) DeleteBranch(ctx context.Context, id string) error {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.DeleteBranch")
	defer span.End()
	span.SetAttributes(attribute.String("branch_id", id))

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		if _, err := tx.GetBranch(ctx, id); err != nil {
			return err
		}
		accounts, err := tx.CountAccountsByBranch(ctx, id)
		if err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		employees, err := tx.CountEmployeesByBranch(ctx, id)
		if err != nil {
			return fmt.Errorf("count employees: %w", err)
		}
		if accounts > 0 || employees > 0 {
			return &domain.ErrInvalidState{
				Resource: "branch",
				ID:       id,
				Message:  fmt.Sprintf("branch %s still has %d account(s) and %d employee(s)", id, accounts, employees),
			}
		}
		return tx.DeleteBranch(ctx, id)
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return err
	}

	s.invalidateStats()
	s.logger.Info("branch deleted", zap.String("branch_id", id))
	return nil
}

// ============================================================
// Customers
// ============================================================

// ListCustomers returns every customer.
func (s *DirectoryService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListCustomers")
	defer span.End()

	var customers []domain.Customer
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		customers, err = tx.ListCustomers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	return customers, nil
}

// DeleteCustomer removes the customer, their accounts with loans and ledger,
// and their login.
func (s *DirectoryService) DeleteCustomer(ctx context.Context, id string) error {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.DeleteCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer_id", id))

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		customer, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCustomer(ctx, id); err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		if customer.UserID != "" {
			if err := tx.DeleteUser(ctx, customer.UserID); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return err
	}

	s.invalidateStats()
	s.logger.Info("customer deleted", zap.String("customer_id", id))
	return nil
}
