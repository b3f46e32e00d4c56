package handler

import (
	"net/http"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/extract"
	"github.com/mohangy/azii/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		q := r.URL.Query()
		txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{
			Status: domain.TransactionStatus(q.Get("status")),
			Type:   q.Get("type"),
			User:   q.Get("user"),
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, paginate(txs, page, pageSize))
	}
}

func upsertTransactionHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var tx domain.Transaction
		if err := decodeJSON(r, &tx); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		stored, err := svc.UpsertTransaction(ctx, tx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

type resolveRequest struct {
	User string `json:"user"`
}

func resolveTransactionHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{ref}/resolve")
		defer span.End()

		ref := chi.URLParam(r, "ref")
		span.SetAttributes(attribute.String("transaction.ref", ref))

		var req resolveRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.ResolveTransaction(ctx, ref, req.User)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

// ============================================================
// Income
// ============================================================

type syncRequest struct {
	Transactions []domain.Transaction `json:"transactions"`
	Income       []domain.IncomeEntry `json:"income"`
}

func syncIncomeHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/income/sync")
		defer span.End()

		var req syncRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, svc.SyncTransactions(ctx, req.Transactions, req.Income))
	}
}

func syncStoredIncomeHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/income/sync/store")
		defer span.End()

		result, err := svc.SyncStored(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("income.added", result.Added))
		writeJSON(w, http.StatusOK, result)
	}
}

func retractIncomeHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/income/{ref}")
		defer span.End()

		ref := chi.URLParam(r, "ref")
		removed, err := svc.RetractIncome(ctx, ref)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactionRef": ref,
			"removed":        removed,
		})
	}
}

func listIncomeHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/income")
		defer span.End()

		entries, err := svc.ListIncome(ctx, parseDateRange(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, paginate(entries, page, pageSize))
	}
}

// ============================================================
// Expenses
// ============================================================

func listExpensesHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		entries, err := svc.ListExpenses(ctx, parseDateRange(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, paginate(entries, page, pageSize))
	}
}

func addExpenseHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		var e domain.ExpenseEntry
		if err := decodeJSON(r, &e); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		stored, err := svc.AddExpense(ctx, e)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func taxonomyHandler(svc *service.AccountingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Taxonomy())
	}
}

// ============================================================
// Reference extraction
// ============================================================

type extractRequest struct {
	Kind    extract.Kind `json:"kind"`
	Message string       `json:"message"`
}

type extractResponse struct {
	Kind      extract.Kind `json:"kind"`
	Reference string       `json:"reference"`
	Found     bool         `json:"found"`
}

func extractHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/extract")
		defer span.End()

		var req extractRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		ref, ok := extract.Reference(req.Kind, req.Message)
		if !ok {
			handleServiceError(w, &domain.ErrValidation{Field: "kind", Message: "must be mpesa or bank"}, logger)
			return
		}
		writeJSON(w, http.StatusOK, extractResponse{Kind: req.Kind, Reference: ref, Found: ref != ""})
	}
}
