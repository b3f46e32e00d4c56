package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/infra/memstore"
	"github.com/mohangy/azii/internal/infra/observability"
	"github.com/mohangy/azii/internal/port"
	"github.com/mohangy/azii/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ledgers struct {
	transactions *memstore.Store[domain.Transaction]
	income       *memstore.Store[domain.IncomeEntry]
	expenses     *memstore.Store[domain.ExpenseEntry]
	notifier     *recordingNotifier
}

func newAccounting(txs ...domain.Transaction) (*service.AccountingService, *ledgers) {
	l := &ledgers{
		transactions: memstore.New(domain.Transaction.Key, txs...),
		income:       memstore.New(domain.IncomeEntry.Key),
		expenses:     memstore.New(domain.ExpenseEntry.Key),
		notifier:     &recordingNotifier{},
	}
	users := &mockUsers{users: map[string]domain.UserInfo{
		"john": {Router: "R1", Site: "Westlands", Type: "PPPoE"},
	}}
	svc := service.NewAccountingService(l.transactions, l.income, l.expenses, users, l.notifier,
		time.UTC, observability.NewMetrics(), zap.NewNop())
	return svc, l
}

func processed(ref, user string, amount int64, date string) domain.Transaction {
	return domain.Transaction{Ref: ref, User: user, Amount: decimal.NewFromInt(amount), Status: domain.StatusProcessed, Date: date, Type: "M-Pesa"}
}

func TestSyncStored_ProjectsOnce(t *testing.T) {
	pending := processed("TX2", "mary", 200, "2024-01-06")
	pending.Status = domain.StatusPending
	svc, l := newAccounting(processed("TX1", "john", 500, "2024-01-05"), pending)
	ctx := context.Background()

	res, err := svc.SyncStored(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Added != 1 || len(res.NewEntries) != 1 {
		t.Fatalf("expected 1 new entry, got %+v", res)
	}
	e := res.NewEntries[0]
	if e.TransactionRef != "TX1" || e.Router != "R1" || e.Site != "Westlands" || e.UserType != "PPPoE" {
		t.Errorf("unexpected entry %+v", e)
	}

	res, err = svc.SyncStored(ctx)
	if err != nil || res.Added != 0 {
		t.Errorf("expected second sync to add nothing, got %+v, %v", res, err)
	}

	stored, _ := l.income.Load(ctx)
	if len(stored) != 1 {
		t.Errorf("expected 1 stored income entry, got %d", len(stored))
	}

	msgs := l.notifier.messages()
	if len(msgs) != 2 || msgs[0] != "Synced 1 transactions" || msgs[1] != "All transactions already synced" {
		t.Errorf("unexpected notifications %v", msgs)
	}
}

func TestSyncStored_UnknownUserLabelledUnknown(t *testing.T) {
	svc, _ := newAccounting(processed("TX9", "ghost", 100, "2024-01-05"))

	res, err := svc.SyncStored(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	e := res.NewEntries[0]
	if e.Router != domain.UnknownLabel || e.Site != domain.UnknownLabel || e.UserType != domain.UnknownLabel {
		t.Errorf("expected Unknown labels, got %+v", e)
	}
}

func TestSyncStored_ConcurrentCallsNeverDuplicate(t *testing.T) {
	var txs []domain.Transaction
	for _, ref := range []string{"A", "B", "C", "D", "E"} {
		txs = append(txs, processed(ref, "john", 100, "2024-01-05"))
	}
	svc, l := newAccounting(txs...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SyncStored(ctx); err != nil {
				t.Errorf("sync: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := l.income.Load(ctx)
	if len(stored) != 5 {
		t.Errorf("expected 5 income entries, got %d", len(stored))
	}
}

func TestSyncStored_StoreError(t *testing.T) {
	svc := service.NewAccountingService(
		failingStore[domain.Transaction]{},
		memstore.New(domain.IncomeEntry.Key),
		memstore.New(domain.ExpenseEntry.Key),
		nil, nil, time.UTC, observability.NewMetrics(), zap.NewNop())

	if _, err := svc.SyncStored(context.Background()); !errors.Is(err, errStoreDown) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestSyncStored_NotifierFailureIsIgnored(t *testing.T) {
	svc, l := newAccounting(processed("TX1", "john", 500, "2024-01-05"))
	l.notifier.err = errors.New("broker down")

	res, err := svc.SyncStored(context.Background())
	if err != nil || res.Added != 1 {
		t.Errorf("expected sync to succeed, got %+v, %v", res, err)
	}
}

func TestSyncTransactions_Stateless(t *testing.T) {
	svc, l := newAccounting()
	existing := []domain.IncomeEntry{{ID: "x", TransactionRef: "TX1"}}
	txs := []domain.Transaction{processed("TX1", "john", 500, ""), processed("TX2", "john", 300, "")}

	res := svc.SyncTransactions(context.Background(), txs, existing)
	if res.Added != 1 || res.NewEntries[0].TransactionRef != "TX2" {
		t.Errorf("unexpected result %+v", res)
	}

	stored, _ := l.income.Load(context.Background())
	if len(stored) != 0 {
		t.Errorf("stateless sync must not persist, got %d entries", len(stored))
	}
}

func TestResolveTransaction(t *testing.T) {
	svc, l := newAccounting(processed("TX1", "john", 500, "2024-01-05"))
	ctx := context.Background()

	if _, err := svc.SyncStored(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	tx, err := svc.ResolveTransaction(ctx, "TX1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx.Status != domain.StatusResolved || tx.User != "john" || tx.ResolvedAt == "" {
		t.Errorf("unexpected resolved transaction %+v", tx)
	}

	stored, _ := l.income.Load(ctx)
	if len(stored) != 1 || !stored[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected collected income kept, got %+v", stored)
	}

	res, err := svc.SyncStored(ctx)
	if err != nil || res.Added != 0 {
		t.Errorf("expected nothing to sync, got %+v, %v", res, err)
	}

	_, err = svc.ResolveTransaction(ctx, "TX1", "")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	_, err = svc.ResolveTransaction(ctx, "NOPE", "")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestResolveTransaction_ReassignsUser(t *testing.T) {
	failed := processed("TX9", "unknown-payer", 300, "2024-01-09")
	failed.Status = domain.StatusFailed
	svc, l := newAccounting(failed)
	ctx := context.Background()

	tx, err := svc.ResolveTransaction(ctx, "TX9", " john ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx.User != "john" || tx.Status != domain.StatusResolved {
		t.Errorf("expected payment reassigned to john, got %+v", tx)
	}

	stored, _ := l.transactions.Load(ctx)
	if len(stored) != 1 || stored[0].User != "john" || stored[0].ResolvedAt == "" {
		t.Errorf("expected reassignment persisted, got %+v", stored)
	}
}

func TestRetractIncome(t *testing.T) {
	svc, l := newAccounting(processed("TX1", "john", 500, "2024-01-05"))
	ctx := context.Background()
	if _, err := svc.SyncStored(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	removed, err := svc.RetractIncome(ctx, "TX1")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	removed, err = svc.RetractIncome(ctx, "TX1")
	if err != nil || removed {
		t.Errorf("expected no-op on second retract, got %v, %v", removed, err)
	}
	stored, _ := l.income.Load(ctx)
	if len(stored) != 0 {
		t.Errorf("expected empty ledger, got %d", len(stored))
	}
}

func TestUpsertTransaction(t *testing.T) {
	svc, l := newAccounting()
	ctx := context.Background()

	tx, err := svc.UpsertTransaction(ctx, domain.Transaction{Ref: "TX1", User: "john", Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx.Status != domain.StatusPending || tx.CreatedAt == "" {
		t.Errorf("expected defaults applied, got %+v", tx)
	}

	tests := []struct {
		name  string
		tx    domain.Transaction
		field string
	}{
		{"missing ref", domain.Transaction{User: "john"}, "ref"},
		{"missing user", domain.Transaction{Ref: "TX2"}, "user"},
		{"negative amount", domain.Transaction{Ref: "TX2", User: "john", Amount: decimal.NewFromInt(-1)}, "amount"},
		{"unknown status", domain.Transaction{Ref: "TX2", User: "john", Status: "Lost"}, "status"},
		{"bad date", domain.Transaction{Ref: "TX2", User: "john", Date: "05/01/2024"}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertTransaction(ctx, tt.tx)
			var v *domain.ErrValidation
			if !errors.As(err, &v) || v.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}

	all, _ := l.transactions.Load(ctx)
	if len(all) != 1 {
		t.Errorf("expected only the valid transaction stored, got %d", len(all))
	}

	got, err := svc.ListTransactions(ctx, domain.TransactionFilter{Status: domain.StatusProcessed})
	if err != nil || len(got) != 0 {
		t.Errorf("expected no processed transactions, got %v, %v", got, err)
	}
}

func TestAddExpense_ExtractsMpesaCode(t *testing.T) {
	svc, l := newAccounting()
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, domain.ExpenseEntry{
		Description:     "Core switch",
		Amount:          decimal.NewFromInt(12000),
		Category:        "Infrastructure & Equipment",
		Subcategory:     "Servers and Hardware",
		Date:            "2024-01-10",
		TransactionType: domain.PaymentMpesa,
		MpesaMessage:    "QFH3K2L9MN Confirmed. Ksh12,000.00 paid to NETSHOP.",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.MpesaCode != "QFH3K2L9MN" {
		t.Errorf("expected extracted code, got %q", e.MpesaCode)
	}
	if e.ID == "" || e.CreatedAt == "" {
		t.Errorf("expected id and createdAt, got %+v", e)
	}

	stored, _ := l.expenses.Load(ctx)
	if len(stored) != 1 || stored[0].ID != e.ID {
		t.Errorf("expected expense stored, got %+v", stored)
	}
	if msgs := l.notifier.messages(); len(msgs) != 1 {
		t.Errorf("expected one notification, got %v", msgs)
	}
}

func TestAddExpense_ExtractsBankReference(t *testing.T) {
	svc, _ := newAccounting()

	e, err := svc.AddExpense(context.Background(), domain.ExpenseEntry{
		Description:     "Upstream bandwidth",
		Amount:          decimal.NewFromInt(50000),
		Category:        "Infrastructure & Equipment",
		Subcategory:     "Servers and Hardware",
		TransactionType: domain.PaymentBank,
		Notes:           "Paid by transfer ref: AB12345678",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.BankReference != "AB12345678" {
		t.Errorf("expected extracted reference, got %q", e.BankReference)
	}
	if e.Date == "" {
		t.Error("expected date defaulted to today")
	}
}

func TestAddExpense_Invalid(t *testing.T) {
	svc, l := newAccounting()
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, domain.ExpenseEntry{
		Description:     "Mystery",
		Amount:          decimal.NewFromInt(10),
		Category:        "Infrastructure & Equipment",
		Subcategory:     "Servers and Hardware",
		TransactionType: domain.PaymentMpesa,
		MpesaMessage:    "no code in here",
	})
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "mpesaCode" {
		t.Errorf("expected mpesaCode validation error, got %v", err)
	}
	stored, _ := l.expenses.Load(ctx)
	if len(stored) != 0 {
		t.Errorf("expected nothing stored, got %d", len(stored))
	}
}

func seedLedgers(t *testing.T, l *ledgers) {
	t.Helper()
	ctx := context.Background()
	income := []domain.IncomeEntry{
		{ID: "1", TransactionRef: "T1", Amount: decimal.NewFromInt(300), Date: "2024-01-05", Router: "R1", Site: "A", Category: "M-Pesa", UserType: "PPPoE"},
		{ID: "2", TransactionRef: "T2", Amount: decimal.NewFromInt(100), Date: "2024-01-06", Router: "R2", Site: "A", Category: "Cash", UserType: "Hotspot"},
		{ID: "3", TransactionRef: "T3", Amount: decimal.NewFromInt(200), Date: "2024-01-20", Router: "R2", Site: "B", Category: "M-Pesa", UserType: "PPPoE"},
		{ID: "4", TransactionRef: "T4", Amount: decimal.NewFromInt(999), Date: "2023-12-31", Router: "R1", Site: "A", Category: "M-Pesa", UserType: "PPPoE"},
	}
	expenses := []domain.ExpenseEntry{
		{ID: "e1", Amount: decimal.NewFromInt(150), Date: "2024-01-07", Category: "Utilities", Subcategory: "Electricity", TransactionType: domain.PaymentMpesa},
		{ID: "e2", Amount: decimal.NewFromInt(50), Date: "2024-01-08", Category: "Utilities", Subcategory: "Water", TransactionType: domain.PaymentCash},
	}
	if err := l.income.Save(ctx, income); err != nil {
		t.Fatal(err)
	}
	if err := l.expenses.Save(ctx, expenses); err != nil {
		t.Fatal(err)
	}
}

var january = service.DateRange{Period: "custom", Start: "2024-01-01", End: "2024-01-31"}

func TestBuildReport_IncomeByRouter(t *testing.T) {
	svc, l := newAccounting()
	seedLedgers(t, l)

	r, err := svc.BuildReport(context.Background(), service.ReportIncome, service.GroupByRouter, january)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", r.Rows)
	}
	// R1 = 300, R2 = 100 + 200 = 300; tie keeps first-seen order.
	if r.Rows[0].Label != "R1" || r.Rows[1].Label != "R2" || r.Rows[1].Count != 2 {
		t.Errorf("unexpected rows %+v", r.Rows)
	}
	if !r.Rows[1].Average.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected average 150, got %s", r.Rows[1].Average)
	}
	if !r.Stats.Total.Equal(decimal.NewFromInt(600)) || r.Stats.Count != 3 {
		t.Errorf("unexpected stats %+v", r.Stats)
	}
}

func TestBuildReport_AveragesRoundedToCents(t *testing.T) {
	svc, l := newAccounting()
	ctx := context.Background()
	income := []domain.IncomeEntry{
		{ID: "1", TransactionRef: "T1", Amount: decimal.NewFromInt(30), Date: "2024-01-05", Site: "A"},
		{ID: "2", TransactionRef: "T2", Amount: decimal.NewFromInt(30), Date: "2024-01-06", Site: "A"},
		{ID: "3", TransactionRef: "T3", Amount: decimal.NewFromInt(40), Date: "2024-01-07", Site: "A"},
	}
	if err := l.income.Save(ctx, income); err != nil {
		t.Fatal(err)
	}

	for _, groupBy := range []string{service.GroupBySite, "month"} {
		r, err := svc.BuildReport(ctx, service.ReportIncome, groupBy, january)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", groupBy, err)
		}
		if len(r.Rows) != 1 || r.Rows[0].Average.String() != "33.33" {
			t.Errorf("%s: expected average 33.33, got %+v", groupBy, r.Rows)
		}
	}
}

func TestBuildReport_Buckets(t *testing.T) {
	svc, l := newAccounting()
	seedLedgers(t, l)

	r, err := svc.BuildReport(context.Background(), service.ReportIncome, "month", service.DateRange{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(r.Rows) != 2 || r.Rows[0].Label != "2023-12" || r.Rows[1].Label != "2024-01" {
		t.Errorf("unexpected buckets %+v", r.Rows)
	}

	r, err = svc.BuildReport(context.Background(), service.ReportExpenses, service.GroupByPaymentMethod, january)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(r.Rows) != 2 || r.Rows[0].Label != "M-Pesa" || r.Rows[1].Label != "Cash" {
		t.Errorf("unexpected rows %+v", r.Rows)
	}
}

func TestBuildReport_InvalidInput(t *testing.T) {
	svc, _ := newAccounting()
	ctx := context.Background()

	cases := []struct {
		kind, groupBy string
		r             service.DateRange
	}{
		{"payroll", service.GroupByRouter, service.DateRange{}},
		{service.ReportIncome, service.GroupByCategory, service.DateRange{}},
		{service.ReportExpenses, service.GroupByRouter, service.DateRange{}},
		{service.ReportIncome, service.GroupByRouter, service.DateRange{Period: "fortnight"}},
	}
	for _, c := range cases {
		_, err := svc.BuildReport(ctx, c.kind, c.groupBy, c.r)
		var v *domain.ErrValidation
		if !errors.As(err, &v) {
			t.Errorf("%s/%s/%s: expected validation error, got %v", c.kind, c.groupBy, c.r.Period, err)
		}
	}
}

func TestSummary(t *testing.T) {
	svc, l := newAccounting()
	seedLedgers(t, l)

	s, err := svc.Summary(context.Background(), january)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !s.NetProfit.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected net profit 400, got %s", s.NetProfit)
	}
	if !s.ProfitMargin.Equal(decimal.RequireFromString("66.67")) {
		t.Errorf("expected margin 66.67, got %s", s.ProfitMargin)
	}
}

func TestExportReport(t *testing.T) {
	svc, l := newAccounting()
	seedLedgers(t, l)

	var buf bytes.Buffer
	if err := svc.ExportReport(context.Background(), &buf, service.ReportExpenses, service.GroupByCategory, january); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("expected a zip container")
	}
}

func TestListIncome_Period(t *testing.T) {
	svc, l := newAccounting()
	seedLedgers(t, l)
	ctx := context.Background()

	all, err := svc.ListIncome(ctx, service.DateRange{Period: "all"})
	if err != nil || len(all) != 4 {
		t.Errorf("expected all 4 entries, got %d, %v", len(all), err)
	}
	jan, err := svc.ListIncome(ctx, january)
	if err != nil || len(jan) != 3 {
		t.Errorf("expected 3 January entries, got %d, %v", len(jan), err)
	}
	exp, err := svc.ListExpenses(ctx, service.DateRange{Start: "2024-01-08"})
	if err != nil || len(exp) != 1 {
		t.Errorf("expected 1 expense from the 8th, got %d, %v", len(exp), err)
	}
}

var _ port.UserLookup = (*service.SearchService)(nil)
