package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how an expense was paid.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentBank  PaymentMethod = "bank"
)

// Label is the human-readable name used in expense reports.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMpesa:
		return "M-Pesa"
	case PaymentBank:
		return "Bank Transfer"
	case PaymentCash:
		return "Cash"
	}
	return UnknownLabel
}

// ============================================================
// Expenses
// ============================================================

// ExpenseEntry is a manually recorded outgoing payment.
type ExpenseEntry struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory"`
	Date            string          `json:"date"`
	TransactionType PaymentMethod   `json:"transactionType"`
	MpesaCode       string          `json:"mpesaCode,omitempty"`
	MpesaMessage    string          `json:"mpesaMessage,omitempty"`
	BankReference   string          `json:"bankReference,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}

// Key returns the store key of the entry.
func (e ExpenseEntry) Key() string { return e.ID }

// EntryAmount implements the ledger entry contract used by the aggregation engine.
func (e ExpenseEntry) EntryAmount() decimal.Decimal { return e.Amount }

// EntryDate implements the ledger entry contract used by the aggregation engine.
func (e ExpenseEntry) EntryDate() string { return e.Date }

// Validate checks the entry against the recording rules, stopping at the
// first violation.
func (e ExpenseEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return &ErrValidation{Field: "description", Message: "description is required"}
	}
	if !e.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if e.Category == "" {
		return &ErrValidation{Field: "category", Message: "category is required"}
	}
	subs, ok := ExpenseTaxonomy.Subcategories(e.Category)
	if !ok {
		return &ErrValidation{Field: "category", Message: "unknown category: " + e.Category}
	}
	if e.Subcategory == "" {
		return &ErrValidation{Field: "subcategory", Message: "subcategory is required"}
	}
	if !contains(subs, e.Subcategory) {
		return &ErrValidation{Field: "subcategory", Message: "subcategory does not belong to " + e.Category}
	}

	switch e.TransactionType {
	case PaymentCash:
	case PaymentMpesa:
		if strings.TrimSpace(e.MpesaCode) == "" {
			return &ErrValidation{Field: "mpesaCode", Message: "M-Pesa transaction code is required"}
		}
		if strings.TrimSpace(e.MpesaMessage) == "" {
			return &ErrValidation{Field: "mpesaMessage", Message: "M-Pesa message is required"}
		}
	case PaymentBank:
		if strings.TrimSpace(e.BankReference) == "" {
			return &ErrValidation{Field: "bankReference", Message: "bank reference number is required"}
		}
	case "":
		return &ErrValidation{Field: "transactionType", Message: "transaction type is required"}
	default:
		return &ErrValidation{Field: "transactionType", Message: "transaction type must be cash, mpesa or bank"}
	}
	return nil
}

// ============================================================
// Expense taxonomy
// ============================================================

// ExpenseCategory is a top-level expense category and its subcategories.
type ExpenseCategory struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Taxonomy is an ordered list of expense categories.
type Taxonomy []ExpenseCategory

// Subcategories returns the subcategories of the named category.
func (t Taxonomy) Subcategories(category string) ([]string, bool) {
	for _, c := range t {
		if c.Name == category {
			return c.Subcategories, true
		}
	}
	return nil, false
}

// ExpenseTaxonomy is the fixed set of categories an expense may be filed under.
var ExpenseTaxonomy = Taxonomy{
	{Name: "Infrastructure & Equipment", Subcategories: []string{
		"Network Equipment (Routers, Switches, Access Points)",
		"Servers and Hardware",
		"Cables and Fiber Optics",
		"Installation Equipment",
		"UPS and Power Backup",
		"Tools and Testing Equipment",
	}},
	{Name: "Operations and Maintenance", Subcategories: []string{
		"Equipment Repairs",
		"Network Maintenance",
		"Site Maintenance",
		"Vehicle Maintenance",
		"Preventive Maintenance",
		"Emergency Repairs",
	}},
	{Name: "Staff and Wages", Subcategories: []string{
		"Salaries and Wages",
		"Overtime Pay",
		"Bonuses and Incentives",
		"Benefits and Insurance",
		"Training and Development",
		"Contractor Fees",
	}},
	{Name: "Internet and Bandwidth", Subcategories: []string{
		"Upstream Internet Service",
		"Bandwidth Costs",
		"Peering Agreements",
		"Transit Costs",
		"Backup Connectivity",
	}},
	{Name: "Office and Administration", Subcategories: []string{
		"Office Rent",
		"Utilities (Electricity, Water)",
		"Office Supplies",
		"Software Licenses",
		"Communication (Phone, Email)",
		"Insurance",
	}},
	{Name: "Licensing and Compliance", Subcategories: []string{
		"Business Licenses",
		"Regulatory Fees",
		"Permits",
		"Legal Fees",
		"Compliance Audits",
		"Certifications",
	}},
	{Name: "Marketing and Customer Acquisition", Subcategories: []string{
		"Advertising",
		"Promotional Materials",
		"Customer Onboarding",
		"Sales Commissions",
		"Marketing Campaigns",
		"Branding and Design",
	}},
	{Name: "Miscellaneous/Others", Subcategories: []string{
		"Bank Charges",
		"Taxes",
		"Donations",
		"Entertainment",
		"Travel",
		"Other Expenses",
	}},
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
