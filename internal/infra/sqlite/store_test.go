package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mohangy/azii/internal/domain"
	"github.com/mohangy/azii/internal/infra/sqlite"
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "azii.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_RoundTripKeepsOrder(t *testing.T) {
	db := openDB(t)
	s, err := sqlite.NewStore(db, sqlite.Income, domain.IncomeEntry.Key)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	entries := []domain.IncomeEntry{
		{TransactionRef: "TX2", Amount: decimal.RequireFromString("10.50"), Date: "2024-01-02", Router: "R1"},
		{TransactionRef: "TX1", Amount: decimal.NewFromInt(5), Date: "2024-01-01", Router: "R2"},
	}
	if err := s.Save(ctx, entries); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].TransactionRef != "TX2" || got[1].TransactionRef != "TX1" {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("amount not preserved: %s", got[0].Amount)
	}
}

func TestStore_Upsert(t *testing.T) {
	db := openDB(t)
	s, err := sqlite.NewStore(db, sqlite.Subscribers, domain.Subscriber.Key)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for _, sub := range []domain.Subscriber{
		{Username: "alice", Status: "active"},
		{Username: "bob"},
		{Username: "alice", Status: "expired"},
	} {
		if err := s.Upsert(ctx, sub.Key(), sub); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(got))
	}
	if got[0].Username != "alice" || got[0].Status != "expired" {
		t.Errorf("expected alice overwritten in first position, got %+v", got[0])
	}
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azii.db")
	for i := 0; i < 2; i++ {
		db, err := sqlite.Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestNewStore_UnknownCollection(t *testing.T) {
	db := openDB(t)
	if _, err := sqlite.NewStore(db, "users; DROP TABLE income", domain.Subscriber.Key); err == nil {
		t.Fatal("expected unknown collection to be rejected")
	}
}
