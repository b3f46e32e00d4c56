package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/mohangy/azii/internal/infra/export"
	"github.com/mohangy/azii/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports
// ============================================================

// defaultGroupBy picks the dimension used when groupBy is omitted.
func defaultGroupBy(kind, groupBy string) string {
	if groupBy != "" {
		return groupBy
	}
	if kind == service.ReportExpenses {
		return service.GroupByCategory
	}
	return service.GroupByRouter
}

func reportHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/{kind}")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		groupBy := defaultGroupBy(kind, r.URL.Query().Get("groupBy"))
		span.SetAttributes(attribute.String("report.kind", kind), attribute.String("report.group_by", groupBy))

		report, err := svc.BuildReport(ctx, kind, groupBy, parseDateRange(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func summaryHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/summary")
		defer span.End()

		summary, err := svc.Summary(ctx, parseDateRange(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func exportReportHandler(svc *service.AccountingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/{kind}/export.xlsx")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		groupBy := defaultGroupBy(kind, r.URL.Query().Get("groupBy"))

		// Render fully before writing so failures still produce a JSON error.
		var buf bytes.Buffer
		if err := svc.ExportReport(ctx, &buf, kind, groupBy, parseDateRange(r)); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-by-%s.xlsx"`, kind, groupBy))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("failed to write export", zap.Error(err))
		}
	}
}
