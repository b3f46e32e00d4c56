package handler

import (
	"net/http"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Subscriber search
// ============================================================

type statelessSearchRequest struct {
	Query      string              `json:"query"`
	Records    []domain.Subscriber `json:"records"`
	Threshold  *float64            `json:"threshold,omitempty"`
	MaxResults *int                `json:"maxResults,omitempty"`
	Fuzzy      *bool               `json:"fuzzy,omitempty"`
}

func statelessSearchHandler(svc *service.SearchService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/search")
		defer span.End()

		var req statelessSearchRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		opts := svc.Defaults()
		if req.Threshold != nil {
			opts.Threshold = *req.Threshold
		}
		if req.MaxResults != nil {
			opts.MaxResults = *req.MaxResults
		}
		if req.Fuzzy != nil {
			opts.Fuzzy = *req.Fuzzy
		}

		results := svc.Rank(req.Records, req.Query, opts)
		if results == nil {
			results = []domain.Subscriber{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": results,
			"total":   len(results),
		})
	}
}

func searchSubscribersHandler(svc *service.SearchService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/subscribers")
		defer span.End()

		opts, err := parseSearchOptions(r, svc.Defaults())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		q := r.URL.Query()
		query := service.SearchQuery{
			Query: q.Get("q"),
			Filter: domain.SubscriberFilter{
				Type:     domain.ServiceType(q.Get("type")),
				Status:   q.Get("status"),
				Package:  q.Get("package"),
				Location: q.Get("location"),
				Router:   q.Get("router"),
			},
			Options: opts,
		}
		span.SetAttributes(attribute.String("search.query", query.Query))

		results, err := svc.Search(ctx, query)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, paginate(results, page, pageSize))
	}
}

func upsertSubscriberHandler(svc *service.SearchService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/subscribers/{username}")
		defer span.End()

		var sub domain.Subscriber
		if err := decodeJSON(r, &sub); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sub.Username = chi.URLParam(r, "username")

		stored, err := svc.UpsertSubscriber(ctx, sub)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}
