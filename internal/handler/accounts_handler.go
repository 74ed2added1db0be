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
// Accounts: customer routes
// ============================================================

func listMyAccountsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/user/accounts")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		accounts, err := svc.ListAccounts(ctx, customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func createAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/user/accounts")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		var req domain.CreateAccountRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		account, err := svc.CreateAccount(ctx, customerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

func depositHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/user/accounts/deposit")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		var req domain.DepositRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("account_id", req.AccountID))

		result, err := svc.Deposit(ctx, customerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func withdrawHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/user/accounts/withdraw")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		var req domain.WithdrawRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("account_id", req.AccountID))

		result, err := svc.Withdraw(ctx, customerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func listMyTransactionsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/user/accounts/{id}/transactions")
		defer span.End()

		customerID, ok := customerFromRequest(w, r)
		if !ok {
			return
		}

		txs, err := svc.ListTransactions(ctx, chi.URLParam(r, "id"), customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

// ============================================================
// Accounts: employee routes
// ============================================================

func getAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/employee/accounts/{id}")
		defer span.End()

		account, err := svc.GetAccount(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func updateAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/employee/accounts/{id}")
		defer span.End()

		var patch domain.AccountPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		account, err := svc.UpdateDetails(ctx, chi.URLParam(r, "id"), &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func setAccountStatusHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/employee/accounts/{id}/status/{status}")
		defer span.End()

		account, err := svc.SetStatus(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func listTransactionsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/employee/accounts/{id}/transactions")
		defer span.End()

		txs, err := svc.ListTransactions(ctx, chi.URLParam(r, "id"), "")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}
