// Package seed loads demo records from a YAML file and merges them into the
// record stores at startup. Records already persisted win over seed records
// sharing their key.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/port"
)

// Data is the decoded content of a seed file.
type Data struct {
	Subscribers  []domain.Subscriber
	Transactions []domain.Transaction
	Expenses     []domain.ExpenseEntry
}

type file struct {
	Subscribers  []subscriber  `yaml:"subscribers"`
	Transactions []transaction `yaml:"transactions"`
	Expenses     []expense     `yaml:"expenses"`
}

type subscriber struct {
	Username  string `yaml:"username"`
	Names     string `yaml:"names"`
	Phone     string `yaml:"phone"`
	Email     string `yaml:"email"`
	Type      string `yaml:"type"`
	Status    string `yaml:"status"`
	Package   string `yaml:"package"`
	Location  string `yaml:"location"`
	Router    string `yaml:"router"`
	RouterID  string `yaml:"routerId"`
	Site      string `yaml:"site"`
	Expiry    string `yaml:"expiry"`
	CreatedAt string `yaml:"createdAt"`
}

type transaction struct {
	Ref       string `yaml:"ref"`
	User      string `yaml:"user"`
	Amount    string `yaml:"amount"`
	Type      string `yaml:"type"`
	Status    string `yaml:"status"`
	Date      string `yaml:"date"`
	CreatedAt string `yaml:"createdAt"`
}

type expense struct {
	ID              string `yaml:"id"`
	Description     string `yaml:"description"`
	Amount          string `yaml:"amount"`
	Category        string `yaml:"category"`
	Subcategory     string `yaml:"subcategory"`
	Date            string `yaml:"date"`
	TransactionType string `yaml:"transactionType"`
	MpesaCode       string `yaml:"mpesaCode"`
	MpesaMessage    string `yaml:"mpesaMessage"`
	BankReference   string `yaml:"bankReference"`
	Notes           string `yaml:"notes"`
	CreatedAt       string `yaml:"createdAt"`
}

// LoadFile reads and decodes the seed file at path.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes seed YAML. Amounts that are not numbers decode as zero.
// Records without a key are dropped.
func Parse(raw []byte) (*Data, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	d := &Data{
		Subscribers:  make([]domain.Subscriber, 0, len(f.Subscribers)),
		Transactions: make([]domain.Transaction, 0, len(f.Transactions)),
		Expenses:     make([]domain.ExpenseEntry, 0, len(f.Expenses)),
	}
	for _, s := range f.Subscribers {
		if s.Username == "" {
			continue
		}
		d.Subscribers = append(d.Subscribers, domain.Subscriber{
			Username: s.Username, Names: s.Names, Phone: s.Phone, Email: s.Email,
			Type: domain.ServiceType(s.Type), Status: s.Status, Package: s.Package,
			Location: s.Location, Router: s.Router, RouterID: s.RouterID, Site: s.Site,
			Expiry: s.Expiry, CreatedAt: s.CreatedAt,
		})
	}
	for _, t := range f.Transactions {
		if t.Ref == "" {
			continue
		}
		d.Transactions = append(d.Transactions, domain.Transaction{
			Ref: t.Ref, User: t.User, Amount: amount(t.Amount), Type: t.Type,
			Status: domain.TransactionStatus(t.Status), Date: t.Date, CreatedAt: t.CreatedAt,
		})
	}
	for _, e := range f.Expenses {
		if e.ID == "" {
			continue
		}
		d.Expenses = append(d.Expenses, domain.ExpenseEntry{
			ID: e.ID, Description: e.Description, Amount: amount(e.Amount),
			Category: e.Category, Subcategory: e.Subcategory, Date: e.Date,
			TransactionType: domain.PaymentMethod(e.TransactionType),
			MpesaCode:       e.MpesaCode, MpesaMessage: e.MpesaMessage,
			BankReference: e.BankReference, Notes: e.Notes, CreatedAt: e.CreatedAt,
		})
	}
	return d, nil
}

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Merge adds to store every seed record whose key is not persisted yet and
// reports how many were added. The store is only written when something is added.
func Merge[T any](ctx context.Context, store port.RecordStore[T], records []T, key func(T) string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	persisted, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load persisted records: %w", err)
	}

	seen := make(map[string]struct{}, len(persisted))
	for _, r := range persisted {
		seen[key(r)] = struct{}{}
	}
	merged := persisted
	added := 0
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := store.Save(ctx, merged); err != nil {
		return 0, fmt.Errorf("save merged records: %w", err)
	}
	return added, nil
}
