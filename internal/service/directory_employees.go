package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Employees
// ============================================================

// GetEmployee returns one employee.
func (s *DirectoryService) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.GetEmployee")
	defer span.End()
	span.SetAttributes(attribute.String("employee_id", id))

	var emp *domain.Employee
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		return err
	})
	return emp, err
}

// ListEmployees returns every employee.
func (s *DirectoryService) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.ListEmployees")
	defer span.End()

	var employees []domain.Employee
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		employees, err = tx.ListEmployees(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	if employees == nil {
		employees = []domain.Employee{}
	}
	return employees, nil
}

// CreateEmployee creates an EMPLOYEE login and its employee record at an
// existing branch. Emails are unique across all logins.
func (s *DirectoryService) CreateEmployee(ctx context.Context, req *domain.CreateEmployeeRequest) (*domain.Employee, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.CreateEmployee")
	defer span.End()
	span.SetAttributes(attribute.String("branch_id", req.BranchID))

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ts := now()
	if err := req.Validate(ts); err != nil {
		return nil, err
	}
	dob, _ := domain.ParseBirthDate("dob", req.DOB, ts)

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
		EmployeeID:   uuid.NewString(),
		CreatedAt:    ts,
	}
	emp := &domain.Employee{
		ID:       user.EmployeeID,
		UserID:   user.ID,
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		DOB:      dob,
		Phone:    req.Phone,
		BranchID: req.BranchID,
	}

	err = s.store.WithinTx(ctx, func(tx port.Tx) error {
		existing, err := tx.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}
		if existing != nil {
			return &domain.ErrConflict{Message: "email is already registered"}
		}
		if _, err := tx.GetBranch(ctx, req.BranchID); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		return tx.InsertEmployee(ctx, emp)
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	s.invalidateStats()
	s.logger.Info("employee created",
		zap.String("employee_id", emp.ID),
		zap.String("branch_id", emp.BranchID),
	)
	return emp, nil
}

// UpdateEmployee applies a partial update. A new branch must exist.
func (s *DirectoryService) UpdateEmployee(ctx context.Context, id string, patch *domain.EmployeePatch) (*domain.Employee, error) {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.UpdateEmployee")
	defer span.End()
	span.SetAttributes(attribute.String("employee_id", id))

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var emp *domain.Employee
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			emp.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Phone != nil {
			emp.Phone = *patch.Phone
		}
		if patch.BranchID != nil {
			if _, err := tx.GetBranch(ctx, *patch.BranchID); err != nil {
				return err
			}
			emp.BranchID = *patch.BranchID
		}
		return tx.UpdateEmployee(ctx, emp)
	})
	if err != nil {
		recordRejection(s.metrics, err)
		return nil, err
	}

	s.logger.Info("employee updated", zap.String("employee_id", id))
	return emp, nil
}

// DeleteEmployee removes the employee and their login.
func (s *DirectoryService) DeleteEmployee(ctx context.Context, id string) error {
	ctx, span := directoryTracer.Start(ctx, "DirectoryService.DeleteEmployee")
	defer span.End()
	span.SetAttributes(attribute.String("employee_id", id))

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		emp, err := tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteEmployee(ctx, id); err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		if emp.UserID != "" {
			if err := tx.DeleteUser(ctx, emp.UserID); err != nil {
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
	s.logger.Info("employee deleted", zap.String("employee_id", id))
	return nil
}
