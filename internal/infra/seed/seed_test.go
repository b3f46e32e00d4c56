package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/infra/memstore"
	"github.com/mohangy/azii/internal/infra/seed"
)

const sample = `
subscribers:
  - username: alice
    names: Alice Wanjiru
    type: PPPoE
    router: R1
    site: Kilimani
  - names: no username, dropped
transactions:
  - ref: TX1
    user: alice
    amount: 500
    status: Processed
    date: "2024-01-05"
  - ref: TX2
    user: alice
    amount: lots
    status: Pending
expenses:
  - id: EXP1
    description: Fiber splice
    amount: "1200.50"
    category: Infrastructure & Equipment
    subcategory: Cables and Fiber Optics
    transactionType: cash
`

func TestParse(t *testing.T) {
	d, err := seed.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(d.Subscribers) != 1 || d.Subscribers[0].Site != "Kilimani" || d.Subscribers[0].Type != domain.ServicePPPoE {
		t.Errorf("unexpected subscribers %+v", d.Subscribers)
	}
	if len(d.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(d.Transactions))
	}
	if !d.Transactions[0].Amount.Equal(decimal.NewFromInt(500)) || d.Transactions[0].Status != domain.StatusProcessed {
		t.Errorf("unexpected first transaction %+v", d.Transactions[0])
	}
	if !d.Transactions[1].Amount.IsZero() {
		t.Errorf("expected malformed amount to decode as zero, got %s", d.Transactions[1].Amount)
	}
	if len(d.Expenses) != 1 || !d.Expenses[0].Amount.Equal(decimal.RequireFromString("1200.5")) {
		t.Errorf("unexpected expenses %+v", d.Expenses)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := seed.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(d.Subscribers) != 1 {
		t.Errorf("expected 1 subscriber, got %d", len(d.Subscribers))
	}

	if _, err := seed.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMerge_PersistedWins(t *testing.T) {
	store := memstore.New(domain.Subscriber.Key, domain.Subscriber{Username: "alice", Status: "persisted"})
	ctx := context.Background()

	added, err := seed.Merge(ctx, store, []domain.Subscriber{
		{Username: "alice", Status: "seed"},
		{Username: "bob", Status: "seed"},
	}, domain.Subscriber.Key)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 added, got %d", added)
	}

	got, _ := store.Load(ctx)
	if len(got) != 2 || got[0].Status != "persisted" || got[1].Username != "bob" {
		t.Errorf("unexpected store contents %+v", got)
	}

	again, _ := seed.Merge(ctx, store, []domain.Subscriber{{Username: "bob"}}, domain.Subscriber.Key)
	if again != 0 {
		t.Errorf("expected re-merge to add nothing, got %d", again)
	}
}
