package service

import (
	"context"
	"io"
	"strings"

	"github.com/mohangy/azii/internal/accounting"
	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/extract"
	"github.com/mohangy/azii/internal/infra/export"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Report kinds.
const (
	ReportIncome   = "income"
	ReportExpenses = "expenses"
)

// Income report dimensions. Calendar granularities (day, week, month, year)
// are accepted for both kinds.
const (
	GroupByRouter      = "router"
	GroupBySite        = "site"
	GroupByPaymentType = "paymentType"
	GroupByUserType    = "userType"

	GroupByCategory      = "category"
	GroupBySubcategory   = "subcategory"
	GroupByPaymentMethod = "paymentMethod"
)

// ReportRow is one group or calendar bucket of a report.
type ReportRow struct {
	Label   string          `json:"label"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// Report is a grouped view of one ledger over a date range.
type Report struct {
	Kind    string           `json:"kind"`
	GroupBy string           `json:"groupBy"`
	Start   string           `json:"start,omitempty"`
	End     string           `json:"end,omitempty"`
	Rows    []ReportRow      `json:"rows"`
	Stats   accounting.Stats `json:"stats"`
}

// BuildReport groups the kind ledger inside r by groupBy.
func (s *AccountingService) BuildReport(ctx context.Context, kind, groupBy string, r DateRange) (*Report, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.BuildReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.kind", kind), attribute.String("report.group_by", groupBy))

	start, end, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	report := &Report{Kind: kind, GroupBy: groupBy, Start: start, End: end}

	switch kind {
	case ReportIncome:
		entries, err := s.loadIncome(ctx)
		if err != nil {
			return nil, err
		}
		entries = accounting.FilterByDateRange(entries, start, end)
		rows, err := incomeRows(entries, groupBy)
		if err != nil {
			return nil, err
		}
		report.Rows = rows
		report.Stats = accounting.Describe(entries)
	case ReportExpenses:
		entries, err := s.loadExpenses(ctx)
		if err != nil {
			return nil, err
		}
		entries = accounting.FilterByDateRange(entries, start, end)
		rows, err := expenseRows(entries, groupBy)
		if err != nil {
			return nil, err
		}
		report.Rows = rows
		report.Stats = accounting.Describe(entries)
	default:
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be income or expenses"}
	}
	return report, nil
}

// Summary compares income and expenses inside r.
func (s *AccountingService) Summary(ctx context.Context, r DateRange) (*accounting.Summary, error) {
	ctx, span := accountingTracer.Start(ctx, "AccountingService.Summary")
	defer span.End()

	start, end, err := s.resolve(r)
	if err != nil {
		return nil, err
	}

	var (
		income   []domain.IncomeEntry
		expenses []domain.ExpenseEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.loadIncome(gCtx)
		income = e
		return err
	})
	g.Go(func() error {
		e, err := s.loadExpenses(gCtx)
		expenses = e
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := accounting.Summarize(
		accounting.FilterByDateRange(income, start, end),
		accounting.FilterByDateRange(expenses, start, end),
	)
	return &summary, nil
}

// ExportReport writes the grouped report as an Excel workbook to w.
func (s *AccountingService) ExportReport(ctx context.Context, w io.Writer, kind, groupBy string, r DateRange) error {
	report, err := s.BuildReport(ctx, kind, groupBy, r)
	if err != nil {
		return err
	}

	rows := make([]export.Row, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, export.Row{Label: row.Label, Total: row.Total, Count: row.Count, Average: row.Average})
	}
	return export.WriteXLSX(w, export.Report{
		Title:     title(kind) + " by " + groupBy,
		Dimension: title(groupBy),
		Period:    periodLabel(report.Start, report.End),
		Rows:      rows,
	})
}

func incomeRows(entries []domain.IncomeEntry, groupBy string) ([]ReportRow, error) {
	switch groupBy {
	case GroupByRouter:
		return groupRows(accounting.ByRouter(entries)), nil
	case GroupBySite:
		return groupRows(accounting.BySite(entries)), nil
	case GroupByPaymentType:
		return groupRows(accounting.ByPaymentType(entries)), nil
	case GroupByUserType:
		return groupRows(accounting.ByUserType(entries)), nil
	}
	if g := accounting.Granularity(groupBy); g.Valid() {
		return bucketRows(accounting.BucketByPeriod(entries, g)), nil
	}
	return nil, &domain.ErrValidation{Field: "groupBy", Message: "must be router, site, paymentType, userType, day, week, month or year"}
}

func expenseRows(entries []domain.ExpenseEntry, groupBy string) ([]ReportRow, error) {
	switch groupBy {
	case GroupByCategory:
		return groupRows(accounting.ByCategory(entries)), nil
	case GroupBySubcategory:
		return groupRows(accounting.BySubcategory(entries)), nil
	case GroupByPaymentMethod:
		return groupRows(accounting.ByPaymentMethod(entries)), nil
	}
	if g := accounting.Granularity(groupBy); g.Valid() {
		return bucketRows(accounting.BucketByPeriod(entries, g)), nil
	}
	return nil, &domain.ErrValidation{Field: "groupBy", Message: "must be category, subcategory, paymentMethod, day, week, month or year"}
}

func groupRows[T accounting.Entry](groups []accounting.Group[T]) []ReportRow {
	rows := make([]ReportRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, ReportRow{Label: g.Label, Total: g.Total, Count: g.Count, Average: g.Average().Round(2)})
	}
	return rows
}

func bucketRows(buckets []accounting.PeriodBucket) []ReportRow {
	rows := make([]ReportRow, 0, len(buckets))
	for _, b := range buckets {
		avg := decimal.Zero
		if b.Count > 0 {
			avg = b.Total.Div(decimal.NewFromInt(int64(b.Count))).Round(2)
		}
		rows = append(rows, ReportRow{Label: b.Period, Total: b.Total, Count: b.Count, Average: avg})
	}
	return rows
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func periodLabel(start, end string) string {
	switch {
	case start == "" && end == "":
		return "all time"
	case start == "":
		return "until " + end
	case end == "":
		return "from " + start
	}
	return start + " to " + end
}

// fillReference extracts a missing payment reference from the text the
// operator pasted alongside the expense.
func fillReference(e *domain.ExpenseEntry) {
	switch e.TransactionType {
	case domain.PaymentMpesa:
		if strings.TrimSpace(e.MpesaCode) == "" {
			e.MpesaCode = extract.MpesaCode(e.MpesaMessage)
		}
	case domain.PaymentBank:
		if strings.TrimSpace(e.BankReference) == "" {
			e.BankReference = extract.BankReference(e.Notes)
		}
	}
}
