package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mohangy/azii/internal/config"
	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/handler"
	"github.com/mohangy/azii/internal/infra/memstore"
	"github.com/mohangy/azii/internal/infra/resilience"
	"github.com/mohangy/azii/internal/infra/seed"
	"github.com/mohangy/azii/internal/infra/sqlite"
	"github.com/mohangy/azii/internal/infra/supabase"
	"github.com/mohangy/azii/internal/port"

	"go.uber.org/zap"
)

// stores bundles the four record collections behind the selected backend.
type stores struct {
	subscribers  port.RecordStore[domain.Subscriber]
	transactions port.RecordStore[domain.Transaction]
	income       port.RecordStore[domain.IncomeEntry]
	expenses     port.RecordStore[domain.ExpenseEntry]

	checks []handler.HealthCheck
	close  func() error
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return openSQLite(cfg.SQLitePath, logger)
	case config.BackendSupabase:
		return openSupabase(cfg, logger), nil
	default:
		logger.Info("using in-memory store")
		return &stores{
			subscribers:  memstore.New(domain.Subscriber.Key),
			transactions: memstore.New(domain.Transaction.Key),
			income:       memstore.New(domain.IncomeEntry.Key),
			expenses:     memstore.New(domain.ExpenseEntry.Key),
			close:        func() error { return nil },
		}, nil
	}
}

func openSQLite(path string, logger *zap.Logger) (*stores, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Info("using SQLite store", zap.String("path", path))

	s := &stores{
		checks: []handler.HealthCheck{{Name: "sqlite", Check: func(context.Context) error { return db.Ping() }}},
		close:  db.Close,
	}
	if s.subscribers, err = sqlite.NewStore(db, sqlite.Subscribers, domain.Subscriber.Key); err != nil {
		return nil, closeOnError(db, err)
	}
	if s.transactions, err = sqlite.NewStore(db, sqlite.Transactions, domain.Transaction.Key); err != nil {
		return nil, closeOnError(db, err)
	}
	if s.income, err = sqlite.NewStore(db, sqlite.Income, domain.IncomeEntry.Key); err != nil {
		return nil, closeOnError(db, err)
	}
	if s.expenses, err = sqlite.NewStore(db, sqlite.Expenses, domain.ExpenseEntry.Key); err != nil {
		return nil, closeOnError(db, err)
	}
	return s, nil
}

func closeOnError(db *sqlite.DB, err error) error {
	_ = db.Close()
	return err
}

func openSupabase(cfg *config.Config, logger *zap.Logger) *stores {
	logger.Info("using Supabase store", zap.String("supabase_url", cfg.SupabaseURL))

	client := supabase.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase", logger),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		logger,
	)
	return &stores{
		subscribers:  supabase.NewStore(client, "subscribers", domain.Subscriber.Key),
		transactions: supabase.NewStore(client, "transactions", domain.Transaction.Key),
		income:       supabase.NewStore(client, "income", domain.IncomeEntry.Key),
		expenses:     supabase.NewStore(client, "expenses", domain.ExpenseEntry.Key),
		checks:       []handler.HealthCheck{{Name: "supabase", Check: client.Ping}},
		close:        func() error { return nil },
	}
}

// loadSeed merges the seed file into the stores. Persisted records win.
func (s *stores) loadSeed(ctx context.Context, path string, logger *zap.Logger) error {
	data, err := seed.LoadFile(path)
	if err != nil {
		return err
	}

	subs, err := seed.Merge(ctx, s.subscribers, data.Subscribers, domain.Subscriber.Key)
	if err != nil {
		return fmt.Errorf("seed subscribers: %w", err)
	}
	txs, err := seed.Merge(ctx, s.transactions, data.Transactions, domain.Transaction.Key)
	if err != nil {
		return fmt.Errorf("seed transactions: %w", err)
	}
	exps, err := seed.Merge(ctx, s.expenses, data.Expenses, domain.ExpenseEntry.Key)
	if err != nil {
		return fmt.Errorf("seed expenses: %w", err)
	}

	logger.Info("seed data merged",
		zap.String("file", path),
		zap.Int("subscribers", subs),
		zap.Int("transactions", txs),
		zap.Int("expenses", exps),
	)
	return nil
}
