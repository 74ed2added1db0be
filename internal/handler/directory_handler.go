package handler

import (
	"net/http"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Admin: dashboard, branches, employees, customers
// ============================================================

func dashboardHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/admin/dashboard")
		defer span.End()

		stats, err := svc.DashboardStats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func listBranchesHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/admin/branches")
		defer span.End()

		branches, err := svc.ListBranches(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, branches)
	}
}

func createBranchHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/admin/branches")
		defer span.End()

		var req domain.CreateBranchRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		branch, err := svc.CreateBranch(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, branch)
	}
}

func deleteBranchHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/admin/branches/{id}")
		defer span.End()

		if err := svc.DeleteBranch(ctx, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Branch deleted"})
	}
}

func listEmployeesHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/admin/employees")
		defer span.End()

		employees, err := svc.ListEmployees(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, employees)
	}
}

func getEmployeeHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/employee/employees/{id}")
		defer span.End()

		employee, err := svc.GetEmployee(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	}
}

func createEmployeeHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/admin/employees")
		defer span.End()

		var req domain.CreateEmployeeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		employee, err := svc.CreateEmployee(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, employee)
	}
}

func updateEmployeeHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/admin/employees/{id}")
		defer span.End()

		var patch domain.EmployeePatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		employee, err := svc.UpdateEmployee(ctx, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	}
}

func deleteEmployeeHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/admin/employees/{id}")
		defer span.End()

		if err := svc.DeleteEmployee(ctx, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Employee deleted"})
	}
}

func listCustomersHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/admin/customers")
		defer span.End()

		customers, err := svc.ListCustomers(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, customers)
	}
}

func deleteCustomerHandler(svc *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/admin/customers/{id}")
		defer span.End()

		if err := svc.DeleteCustomer(ctx, chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Customer deleted"})
	}
}
