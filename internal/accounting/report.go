package accounting

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mohangy/azii/internal/domain"
)

// FilterByDateRange keeps the items dated within [start, end], both inclusive.
// A blank or unparsable bound is treated as unbounded. Items whose own date
// cannot be parsed are always excluded.
func FilterByDateRange[T Entry](items []T, start, end string) []T {
	lo := boundOr(start, minDate)
	hi := boundOr(end, maxDate)
	out := make([]T, 0, len(items))
	for _, it := range items {
		d, ok := ParseDate(it.EntryDate())
		if !ok || d.Before(lo) || d.After(hi) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ============================================================
// Grouping
// ============================================================

// Group is one bucket of a dimensional breakdown.
type Group[T Entry] struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Items []T             `json:"items"`
}

// Average is Total/Count, or zero for an empty group.
func (g Group[T]) Average() decimal.Decimal {
	return average(g.Total, g.Count)
}

// GroupBy buckets items by key, summing amounts. Blank keys land in
// domain.UnknownLabel so group totals always add up to the overall total.
// Groups are ordered by total, highest first; ties keep first-seen order.
func GroupBy[T Entry](items []T, key func(T) string) []Group[T] {
	groups := make([]Group[T], 0)
	index := make(map[string]int)
	for _, it := range items {
		label := domain.OrUnknown(key(it))
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group[T]{Label: label, Total: decimal.Zero})
		}
		g := &groups[i]
		g.Total = g.Total.Add(it.EntryAmount())
		g.Count++
		g.Items = append(g.Items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.GreaterThan(groups[j].Total)
	})
	return groups
}

func ByRouter(income []domain.IncomeEntry) []Group[domain.IncomeEntry] {
	return GroupBy(income, func(e domain.IncomeEntry) string { return e.Router })
}

func BySite(income []domain.IncomeEntry) []Group[domain.IncomeEntry] {
	return GroupBy(income, func(e domain.IncomeEntry) string { return e.Site })
}

// ByPaymentType groups income by payment channel, which projection stores
// in the entry category.
func ByPaymentType(income []domain.IncomeEntry) []Group[domain.IncomeEntry] {
	return GroupBy(income, func(e domain.IncomeEntry) string { return e.Category })
}

func ByUserType(income []domain.IncomeEntry) []Group[domain.IncomeEntry] {
	return GroupBy(income, func(e domain.IncomeEntry) string { return e.UserType })
}

func ByCategory(expenses []domain.ExpenseEntry) []Group[domain.ExpenseEntry] {
	return GroupBy(expenses, func(e domain.ExpenseEntry) string { return e.Category })
}

// BySubcategory labels groups "<category> - <subcategory>".
func BySubcategory(expenses []domain.ExpenseEntry) []Group[domain.ExpenseEntry] {
	return GroupBy(expenses, func(e domain.ExpenseEntry) string {
		return domain.OrUnknown(e.Category) + " - " + domain.OrUnknown(e.Subcategory)
	})
}

func ByPaymentMethod(expenses []domain.ExpenseEntry) []Group[domain.ExpenseEntry] {
	return GroupBy(expenses, func(e domain.ExpenseEntry) string { return e.TransactionType.Label() })
}

// ============================================================
// Calendar buckets
// ============================================================

// Granularity is the width of a calendar bucket.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// PeriodBucket is the total of the entries falling in one calendar period.
// Period is YYYY-MM-DD for days and weeks (the Sunday opening the week),
// YYYY-MM for months and YYYY for years.
type PeriodBucket struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// BucketByPeriod sums items per calendar period, oldest period first.
// Items without a parsable date are skipped.
func BucketByPeriod[T Entry](items []T, g Granularity) []PeriodBucket {
	buckets := make([]PeriodBucket, 0)
	index := make(map[string]int)
	for _, it := range items {
		d, ok := ParseDate(it.EntryDate())
		if !ok {
			continue
		}
		var key string
		switch g {
		case Week:
			key = d.AddDate(0, 0, -int(d.Weekday())).Format(DateLayout)
		case Month:
			key = d.Format("2006-01")
		case Year:
			key = d.Format("2006")
		default:
			key = d.Format(DateLayout)
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, PeriodBucket{Period: key, Total: decimal.Zero})
		}
		buckets[i].Total = buckets[i].Total.Add(it.EntryAmount())
		buckets[i].Count++
	}
	// Keys are fixed-width and zero-padded, so lexical order is chronological.
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Period < buckets[j].Period })
	return buckets
}

// ============================================================
// Summary
// ============================================================

// Stats describes one side of the ledger.
type Stats struct {
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
	Highest decimal.Decimal `json:"highest"`
	Lowest  decimal.Decimal `json:"lowest"`
}

// Describe computes totals and extremes. All fields are zero for no items.
func Describe[T Entry](items []T) Stats {
	s := Stats{Total: decimal.Zero, Highest: decimal.Zero, Lowest: decimal.Zero}
	for i, it := range items {
		a := it.EntryAmount()
		s.Total = s.Total.Add(a)
		if i == 0 || a.GreaterThan(s.Highest) {
			s.Highest = a
		}
		if i == 0 || a.LessThan(s.Lowest) {
			s.Lowest = a
		}
	}
	s.Count = len(items)
	s.Average = average(s.Total, s.Count)
	return s
}

// Summary is the profit and loss overview of a period.
type Summary struct {
	Income    Stats           `json:"income"`
	Expenses  Stats           `json:"expenses"`
	NetProfit decimal.Decimal `json:"netProfit"`
	// ProfitMargin is NetProfit as a percentage of income, 0 without income.
	ProfitMargin decimal.Decimal `json:"profitMargin"`
}

// Summarize builds the overview of the given income and expenses.
func Summarize(income []domain.IncomeEntry, expenses []domain.ExpenseEntry) Summary {
	s := Summary{Income: Describe(income), Expenses: Describe(expenses)}
	s.NetProfit = s.Income.Total.Sub(s.Expenses.Total)
	s.ProfitMargin = decimal.Zero
	if s.Income.Total.IsPositive() {
		s.ProfitMargin = s.NetProfit.Div(s.Income.Total).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}
