package domain

import "github.com/shopspring/decimal"

const (
	// IncomeSourceClientPayment marks income derived from a subscriber payment.
	IncomeSourceClientPayment = "Client Payment"
)

// IncomeEntry is the ledger projection of a processed transaction. At most one
// entry exists per TransactionRef; entries are never edited in place.
type IncomeEntry struct {
	ID             string          `json:"id"`
	TransactionRef string          `json:"transactionRef"`
	Description    string          `json:"description,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	Category       string          `json:"category"`
	Source         string          `json:"source,omitempty"`
	User           string          `json:"user,omitempty"`
	Router         string          `json:"router"`
	Site           string          `json:"site"`
	UserType       string          `json:"userType"`
	CreatedAt      string          `json:"createdAt,omitempty"`
}

// Key returns the store key of the entry.
func (e IncomeEntry) Key() string { return e.TransactionRef }

// EntryAmount implements the ledger entry contract used by the aggregation engine.
func (e IncomeEntry) EntryAmount() decimal.Decimal { return e.Amount }

// EntryDate implements the ledger entry contract used by the aggregation engine.
func (e IncomeEntry) EntryDate() string { return e.Date }
