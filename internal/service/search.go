package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/fuzzy"
	"github.com/mohangy/azii/internal/infra/observability"
	"github.com/mohangy/azii/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var searchTracer = otel.Tracer("service/search")

const directoryCacheKey = "subscribers"

// SearchQuery is a subscriber search: strict filters first, then the text query.
type SearchQuery struct {
	Query   string
	Filter  domain.SubscriberFilter
	Options fuzzy.Options
}

// SearchService answers subscriber searches and user lookups from a cached
// copy of the subscriber directory.
type SearchService struct {
	subscribers port.RecordStore[domain.Subscriber]
	cache       port.Cache[[]domain.Subscriber]
	defaults    fuzzy.Options
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewSearchService creates the search service with all dependencies injected.
func NewSearchService(
	subscribers port.RecordStore[domain.Subscriber],
	cache port.Cache[[]domain.Subscriber],
	defaults fuzzy.Options,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		subscribers: subscribers,
		cache:       cache,
		defaults:    defaults,
		metrics:     metrics,
		logger:      logger,
	}
}

// Defaults returns the configured search options.
func (s *SearchService) Defaults() fuzzy.Options {
	return s.defaults
}

// Search filters the stored subscribers and ranks them against the query.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) ([]domain.Subscriber, error) {
	ctx, span := searchTracer.Start(ctx, "SearchService.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.query", q.Query),
		attribute.Bool("search.fuzzy", q.Options.Fuzzy),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("search", time.Since(start))
	}()

	all, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Subscriber, 0, len(all))
	for _, sub := range all {
		if q.Filter.Match(sub) {
			filtered = append(filtered, sub)
		}
	}

	return s.Rank(filtered, q.Query, q.Options), nil
}

// Rank ranks caller-supplied subscribers against query without touching the store.
func (s *SearchService) Rank(records []domain.Subscriber, query string, opts fuzzy.Options) []domain.Subscriber {
	out := fuzzy.RankAndFilter(records, query, domain.Subscriber.SearchFields, opts)
	mode := "substring"
	if opts.Fuzzy {
		mode = "fuzzy"
	}
	s.metrics.RecordSearchResults(mode, len(out))
	return out
}

// UpsertSubscriber stores sub, overwriting any subscriber with the same
// service type and username.
func (s *SearchService) UpsertSubscriber(ctx context.Context, sub domain.Subscriber) (*domain.Subscriber, error) {
	ctx, span := searchTracer.Start(ctx, "SearchService.UpsertSubscriber")
	defer span.End()

	sub.Username = strings.TrimSpace(sub.Username)
	if sub.Username == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "required"}
	}
	switch sub.Type {
	case domain.ServicePPPoE, domain.ServiceHotspot:
	case "":
		return nil, &domain.ErrValidation{Field: "type", Message: "required"}
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "must be PPPoE or Hotspot"}
	}
	if sub.CreatedAt == "" {
		sub.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.subscribers.Upsert(ctx, sub.Key(), sub); err != nil {
		s.metrics.IncrStoreError("subscribers", err)
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	s.cache.Delete(directoryCacheKey)

	s.logger.Info("subscriber stored",
		zap.String("username", sub.Username),
		zap.String("type", string(sub.Type)),
	)
	return &sub, nil
}

// LookupUser resolves the router, site and service type of a username. When
// the username exists under both service types the PPPoE account wins;
// otherwise the first match in store order is used.
func (s *SearchService) LookupUser(ctx context.Context, username string) (domain.UserInfo, error) {
	all, err := s.directory(ctx)
	if err != nil {
		return domain.UserInfo{}, err
	}
	var found *domain.Subscriber
	for i := range all {
		sub := &all[i]
		if sub.Username != username {
			continue
		}
		if sub.Type == domain.ServicePPPoE {
			return sub.Info(), nil
		}
		if found == nil {
			found = sub
		}
	}
	if found != nil {
		return found.Info(), nil
	}
	return domain.UserInfo{}, &domain.ErrNotFound{Resource: "subscriber", ID: username}
}

func (s *SearchService) directory(ctx context.Context) ([]domain.Subscriber, error) {
	if cached, ok := s.cache.Get(directoryCacheKey); ok {
		s.metrics.IncrCacheHit("subscribers")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("subscribers")

	all, err := s.subscribers.Load(ctx)
	if err != nil {
		s.metrics.IncrStoreError("subscribers", err)
		s.logger.Error("failed to load subscribers", zap.Error(err))
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	s.cache.Set(directoryCacheKey, all)
	return all, nil
}
