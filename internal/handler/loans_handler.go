package handler

import (
	"net/http"

	"github.com/boddenberg/bank-backend-go/internal/domain"
	"github.com/boddenberg/bank-backend-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Loans
// ============================================================

func applyLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/user/loans/apply")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		var req domain.LoanApplication
		if !decodeJSON(w, r, &req) {
			return
		}

		loan, err := svc.Apply(ctx, customerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, loan)
	}
}

func listLoansHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/employee/loans")
		defer span.End()

		loans, err := svc.ListAll(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func setLoanStatusHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/employee/loans/{id}/status")
		defer span.End()

		loanID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("loan_id", loanID))

		var req domain.LoanStatusUpdate
		if !decodeJSON(w, r, &req) {
			return
		}

		loan, err := svc.SetStatus(ctx, loanID, req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}
