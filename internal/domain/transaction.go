package domain

import "github.com/shopspring/decimal"

// TransactionStatus is the lifecycle state of a payment.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "Pending"
	StatusProcessed TransactionStatus = "Processed"
	StatusFailed    TransactionStatus = "Failed"
	StatusResolved  TransactionStatus = "Resolved"
)

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed, StatusResolved:
		return true
	}
	return false
}

// ============================================================
// Payment transactions
// ============================================================

// Transaction is a subscriber payment. Ref is globally unique and doubles as
// the idempotency key for income projection.
type Transaction struct {
	Ref        string            `json:"ref"`
	User       string            `json:"user"`
	Amount     decimal.Decimal   `json:"amount"`
	Type       string            `json:"type,omitempty"` // payment channel label, e.g. M-Pesa
	Status     TransactionStatus `json:"status"`
	Date       string            `json:"date,omitempty"` // YYYY-MM-DD
	CreatedAt  string            `json:"createdAt,omitempty"`
	ResolvedAt string            `json:"resolvedAt,omitempty"`
}

// Key returns the store key of the transaction.
func (t Transaction) Key() string { return t.Ref }

// Projectable reports whether the transaction should appear in the income ledger.
func (t Transaction) Projectable() bool {
	return t.Status == StatusProcessed
}

// TransactionFilter narrows a transaction listing. Empty fields match everything.
type TransactionFilter struct {
	Status TransactionStatus
	Type   string
	User   string
}

// Match reports whether t passes every non-empty filter.
func (f TransactionFilter) Match(t Transaction) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.User != "" && t.User != f.User {
		return false
	}
	return true
}
