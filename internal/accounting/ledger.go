// Package accounting derives the income ledger from payment transactions and
// aggregates income and expense entries for reporting.
//
// Everything here is a pure transformation of the slices passed in: inputs
// are never modified and empty inputs always yield empty, non-nil results.
package accounting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohangy/azii/internal/domain"
)

// Entry is a dated monetary ledger line.
type Entry interface {
	EntryAmount() decimal.Decimal
	EntryDate() string
}

// Lookup resolves a username to the attributes stamped on its income entries.
// A nil Lookup resolves every user to the zero UserInfo.
type Lookup func(username string) domain.UserInfo

// SyncResult is the outcome of SyncAll.
type SyncResult struct {
	NewEntries []domain.IncomeEntry `json:"newEntries"`
	Added      int                  `json:"addedCount"`
}

// ProjectIncome builds the income entry for tx. It reports false, and builds
// nothing, when tx is not processed or existing already holds its ref.
func ProjectIncome(tx domain.Transaction, existing []domain.IncomeEntry, lookup Lookup) (domain.IncomeEntry, bool) {
	return project(tx, refSet(existing), lookup, time.Now())
}

// SyncAll projects every eligible transaction not yet present in existing.
// Refs produced earlier in the same call count as present, so a batch with
// repeated refs yields one entry per ref.
func SyncAll(txs []domain.Transaction, existing []domain.IncomeEntry, lookup Lookup) SyncResult {
	seen := refSet(existing)
	now := time.Now()
	res := SyncResult{NewEntries: make([]domain.IncomeEntry, 0)}
	for _, tx := range txs {
		entry, ok := project(tx, seen, lookup, now)
		if !ok {
			continue
		}
		seen[entry.TransactionRef] = struct{}{}
		res.NewEntries = append(res.NewEntries, entry)
	}
	res.Added = len(res.NewEntries)
	return res
}

// RetractIncome returns existing without the entry for ref. When no entry
// matches, a copy of existing is returned.
func RetractIncome(existing []domain.IncomeEntry, ref string) []domain.IncomeEntry {
	out := make([]domain.IncomeEntry, 0, len(existing))
	for _, e := range existing {
		if e.TransactionRef != ref {
			out = append(out, e)
		}
	}
	return out
}

func project(tx domain.Transaction, seen map[string]struct{}, lookup Lookup, now time.Time) (domain.IncomeEntry, bool) {
	if !tx.Projectable() {
		return domain.IncomeEntry{}, false
	}
	if _, dup := seen[tx.Ref]; dup {
		return domain.IncomeEntry{}, false
	}

	var info domain.UserInfo
	if lookup != nil {
		info = lookup(tx.User)
	}

	date := strings.TrimSpace(tx.Date)
	if date == "" {
		date = now.Format(DateLayout)
	}
	createdAt := tx.CreatedAt
	if createdAt == "" {
		createdAt = now.UTC().Format(time.RFC3339)
	}
	category := tx.Type
	if category == "" {
		category = domain.IncomeSourceClientPayment
	}

	return domain.IncomeEntry{
		ID:             domain.NewID(),
		TransactionRef: tx.Ref,
		Description:    "Payment from " + tx.User,
		Amount:         tx.Amount,
		Date:           date,
		Category:       category,
		Source:         domain.IncomeSourceClientPayment,
		User:           tx.User,
		Router:         domain.OrUnknown(info.Router),
		Site:           domain.OrUnknown(info.Site),
		UserType:       domain.OrUnknown(info.Type),
		CreatedAt:      createdAt,
	}, true
}

func refSet(entries []domain.IncomeEntry) map[string]struct{} {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.TransactionRef] = struct{}{}
	}
	return seen
}
