package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mohangy/azii/internal/accounting"
	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/infra/observability"
	"github.com/mohangy/azii/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var accountingTracer = otel.Tracer("service/accounting")

// DateRange selects ledger entries either by a named period (today, week,
// month, year, all, custom) or by explicit inclusive YYYY-MM-DD bounds.
type DateRange struct {
	Period string
	Start  string
	End    string
}

// AccountingService owns the income and expense ledgers. Every read-modify-write
// of the income ledger runs under one lock so a transaction ref is never
// projected twice.
type AccountingService struct {
	transactions port.RecordStore[domain.Transaction]
	income       port.RecordStore[domain.IncomeEntry]
	expenses     port.RecordStore[domain.ExpenseEntry]
	users        port.UserLookup
	notifier     port.Notifier
	metrics      *observability.Metrics
	logger       *zap.Logger

	mu    sync.Mutex
	syncs singleflight.Group
	now   func() time.Time
}

// NewAccountingService creates the accounting service with all dependencies injected.
// Report periods are resolved against the wall clock in loc.
func NewAccountingService(
	transactions port.RecordStore[domain.Transaction],
	income port.RecordStore[domain.IncomeEntry],
	expenses port.RecordStore[domain.ExpenseEntry],
	users port.UserLookup,
	notifier port.Notifier,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AccountingService {
	if loc == nil {
		loc = time.UTC
	}
	return &AccountingService{
		transactions: transactions,
		income:       income,
		expenses:     expenses,
		users:        users,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().In(loc) },
	}
}

// ============================================================
// Transactions
// ============================================================

// ListTransactions returns the stored transactions passing filter.
func (s *AccountingService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.ListTransactions")
	defer span.End()

	all, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(all))
	for _, tx := range all {
		if filter.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// UpsertTransaction stores tx, overwriting any transaction with the same ref.
func (s *AccountingService) UpsertTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.UpsertTransaction")
	defer span.End()

	if tx.Ref == "" {
		return nil, &domain.ErrValidation{Field: "ref", Message: "required"}
	}
	if tx.User == "" {
		return nil, &domain.ErrValidation{Field: "user", Message: "required"}
	}
	if tx.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if tx.Status == "" {
		tx.Status = domain.StatusPending
	}
	if !tx.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown status: " + string(tx.Status)}
	}
	if tx.Date != "" {
		if _, ok := accounting.ParseDate(tx.Date); !ok {
			return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
		}
	}
	if tx.CreatedAt == "" {
		tx.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}

	if err := s.transactions.Upsert(ctx, tx.Key(), tx); err != nil {
		s.metrics.IncrStoreError("transactions", err)
		return nil, fmt.Errorf("upsert transaction: %w", err)
	}
	return &tx, nil
}

// ResolveTransaction marks a transaction Resolved and stamps ResolvedAt. A
// non-empty user reassigns the payment to that username. Any income entry
// already projected from the transaction is kept.
func (s *AccountingService) ResolveTransaction(ctx context.Context, ref, user string) (*domain.Transaction, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.ResolveTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.ref", ref))

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	var tx *domain.Transaction
	for i := range all {
		if all[i].Ref == ref {
			tx = &all[i]
			break
		}
	}
	if tx == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: ref}
	}
	if tx.Status == domain.StatusResolved {
		return nil, &domain.ErrConflict{Message: "transaction already resolved: " + ref}
	}

	if user = strings.TrimSpace(user); user != "" {
		tx.User = user
	}
	tx.Status = domain.StatusResolved
	tx.ResolvedAt = s.now().UTC().Format(time.RFC3339)
	if err := s.transactions.Upsert(ctx, tx.Key(), *tx); err != nil {
		s.metrics.IncrStoreError("transactions", err)
		return nil, fmt.Errorf("upsert transaction: %w", err)
	}

	s.logger.Info("transaction resolved", zap.String("ref", ref), zap.String("user", tx.User))
	return tx, nil
}

// ============================================================
// Income ledger
// ============================================================

// SyncTransactions projects txs onto existing without touching any store.
func (s *AccountingService) SyncTransactions(ctx context.Context, txs []domain.Transaction, existing []domain.IncomeEntry) accounting.SyncResult {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.SyncTransactions")
	defer span.End()

	return accounting.SyncAll(txs, existing, s.lookup(ctx))
}

// SyncStored projects every stored processed transaction into the stored
// income ledger. Concurrent calls share a single run.
func (s *AccountingService) SyncStored(ctx context.Context) (accounting.SyncResult, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.SyncStored")
	defer span.End()

	v, err, shared := s.syncs.Do("income", func() (any, error) {
		return s.syncStored(ctx)
	})
	if err != nil {
		return accounting.SyncResult{}, err
	}
	span.SetAttributes(attribute.Bool("sync.shared", shared))
	return v.(accounting.SyncResult), nil
}

func (s *AccountingService) syncStored(ctx context.Context) (accounting.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("income_sync", time.Since(start))
	}()

	var (
		txs      []domain.Transaction
		existing []domain.IncomeEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.loadTransactions(gCtx)
		txs = t
		return err
	})
	g.Go(func() error {
		e, err := s.loadIncome(gCtx)
		existing = e
		return err
	})
	if err := g.Wait(); err != nil {
		return accounting.SyncResult{}, err
	}

	result := accounting.SyncAll(txs, existing, s.lookup(ctx))
	if result.Added > 0 {
		ledger := make([]domain.IncomeEntry, 0, len(existing)+result.Added)
		ledger = append(ledger, existing...)
		ledger = append(ledger, result.NewEntries...)
		if err := s.income.Save(ctx, ledger); err != nil {
			s.metrics.IncrStoreError("income", err)
			return accounting.SyncResult{}, fmt.Errorf("save income: %w", err)
		}
		s.metrics.AddIncomeSynced(result.Added)
	}

	s.logger.Info("income sync finished",
		zap.Int("transactions", len(txs)),
		zap.Int("added", result.Added),
	)

	msg := "All transactions already synced"
	if result.Added > 0 {
		msg = fmt.Sprintf("Synced %d transactions", result.Added)
	}
	s.notify(ctx, domain.Notification{
		Event:   domain.EventIncomeSynced,
		Level:   domain.LevelSuccess,
		Message: msg,
		Count:   result.Added,
	})
	return result, nil
}

// RetractIncome removes the income entry projected from ref. It reports
// whether an entry was removed; an unknown ref is not an error.
func (s *AccountingService) RetractIncome(ctx context.Context, ref string) (bool, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.RetractIncome")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.ref", ref))

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retractLocked(ctx, ref)
}

func (s *AccountingService) retractLocked(ctx context.Context, ref string) (bool, error) {
	existing, err := s.loadIncome(ctx)
	if err != nil {
		return false, err
	}
	kept := accounting.RetractIncome(existing, ref)
	if len(kept) == len(existing) {
		return false, nil
	}
	if err := s.income.Save(ctx, kept); err != nil {
		s.metrics.IncrStoreError("income", err)
		return false, fmt.Errorf("save income: %w", err)
	}

	s.notify(ctx, domain.Notification{
		Event:   domain.EventIncomeRetracted,
		Level:   domain.LevelInfo,
		Message: "Income entry removed for " + ref,
		Ref:     ref,
	})
	return true, nil
}

// ListIncome returns the income entries inside r.
func (s *AccountingService) ListIncome(ctx context.Context, r DateRange) ([]domain.IncomeEntry, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.ListIncome")
	defer span.End()

	start, end, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	all, err := s.loadIncome(ctx)
	if err != nil {
		return nil, err
	}
	return accounting.FilterByDateRange(all, start, end), nil
}

// ============================================================
// Expenses
// ============================================================

// Taxonomy returns the categories an expense may be filed under.
func (s *AccountingService) Taxonomy() domain.Taxonomy {
	return domain.ExpenseTaxonomy
}

// ListExpenses returns the expense entries inside r.
func (s *AccountingService) ListExpenses(ctx context.Context, r DateRange) ([]domain.ExpenseEntry, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.ListExpenses")
	defer span.End()

	start, end, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	all, err := s.loadExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return accounting.FilterByDateRange(all, start, end), nil
}

// AddExpense validates and records e. A missing M-Pesa code or bank
// reference is extracted from the pasted message or notes first.
func (s *AccountingService) AddExpense(ctx context.Context, e domain.ExpenseEntry) (*domain.ExpenseEntry, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.AddExpense")
	defer span.End()

	fillReference(&e)
	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	if e.Date == "" {
		e.Date = now.Format(accounting.DateLayout)
	} else if _, ok := accounting.ParseDate(e.Date); !ok {
		return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	e.ID = domain.NewID()
	e.CreatedAt = now.UTC().Format(time.RFC3339)

	if err := s.expenses.Upsert(ctx, e.Key(), e); err != nil {
		s.metrics.IncrStoreError("expenses", err)
		return nil, fmt.Errorf("save expense: %w", err)
	}

	s.logger.Info("expense recorded",
		zap.String("id", e.ID),
		zap.String("category", e.Category),
		zap.String("amount", e.Amount.StringFixed(2)),
	)
	s.notify(ctx, domain.Notification{
		Event:   domain.EventExpenseRecorded,
		Level:   domain.LevelSuccess,
		Message: "Expense recorded: " + e.Description,
		Ref:     e.ID,
	})
	return &e, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *AccountingService) resolve(r DateRange) (string, string, error) {
	if r.Period == "" {
		return r.Start, r.End, nil
	}
	if !accounting.ValidPeriod(r.Period) {
		return "", "", &domain.ErrValidation{Field: "period", Message: "must be one of all, today, week, month, year, custom"}
	}
	start, end := accounting.ResolvePeriod(r.Period, r.Start, r.End, s.now())
	return start, end, nil
}

// lookup adapts the user directory to the projector. Unknown users and
// lookup failures yield empty attributes, which the projector labels Unknown.
func (s *AccountingService) lookup(ctx context.Context) accounting.Lookup {
	if s.users == nil {
		return nil
	}
	return func(username string) domain.UserInfo {
		info, err := s.users.LookupUser(ctx, username)
		if err != nil {
			if !domain.IsNotFound(err) {
				s.logger.Warn("user lookup failed", zap.String("user", username), zap.Error(err))
			}
			return domain.UserInfo{}
		}
		return info
	}
}

func (s *AccountingService) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if n.At == "" {
		n.At = s.now().UTC().Format(time.RFC3339)
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.metrics.IncrNotifyFailure()
		s.logger.Warn("notification failed", zap.String("event", n.Event), zap.Error(err))
	}
}

func (s *AccountingService) loadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.transactions.Load(ctx)
	if err != nil {
		s.metrics.IncrStoreError("transactions", err)
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

func (s *AccountingService) loadIncome(ctx context.Context) ([]domain.IncomeEntry, error) {
	entries, err := s.income.Load(ctx)
	if err != nil {
		s.metrics.IncrStoreError("income", err)
		return nil, fmt.Errorf("load income: %w", err)
	}
	return entries, nil
}

func (s *AccountingService) loadExpenses(ctx context.Context) ([]domain.ExpenseEntry, error) {
	entries, err := s.expenses.Load(ctx)
	if err != nil {
		s.metrics.IncrStoreError("expenses", err)
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return entries, nil
}
