package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("sqlite")

// Collections created by the migrations.
const (
	Subscribers  = "subscribers"
	Transactions = "transactions"
	Income       = "income"
	Expenses     = "expenses"
)

var knownCollections = map[string]bool{
	Subscribers:  true,
	Transactions: true,
	Income:       true,
	Expenses:     true,
}

// Store is a RecordStore over one collection table. Records keep the
// position they were first written at; overwrites only replace the document.
type Store[T any] struct {
	db    *sql.DB
	table string
	key   func(T) string
}

// NewStore binds a store to one of the migrated collections.
func NewStore[T any](d *DB, collection string, key func(T) string) (*Store[T], error) {
	if !knownCollections[collection] {
		return nil, fmt.Errorf("sqlite: unknown collection %q", collection)
	}
	return &Store[T]{db: d.db, table: collection, key: key}, nil
}

func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "SQLite.Load")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.table))

	rows, err := s.db.QueryContext(ctx, "SELECT key, doc FROM "+s.table+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.table, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.table, key, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store[T]) Save(ctx context.Context, records []T) error {
	ctx, span := tracer.Start(ctx, "SQLite.Save")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.table), attribute.Int("records", len(records)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", s.table, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+s.table+" (key, seq, doc) VALUES (?, ?, ?) "+
		"ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP")
	if err != nil {
		return fmt.Errorf("prepare save %s: %w", s.table, err)
	}
	defer stmt.Close()

	for i, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.table, err)
		}
		if _, err := stmt.ExecContext(ctx, s.key(rec), i+1, string(doc)); err != nil {
			return fmt.Errorf("insert %s: %w", s.table, err)
		}
	}
	return tx.Commit()
}

func (s *Store[T]) Upsert(ctx context.Context, key string, record T) error {
	ctx, span := tracer.Start(ctx, "SQLite.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.table), attribute.String("key", key))

	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.table, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+s.table+" (key, seq, doc) VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM "+s.table+"), ?) "+
			"ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP",
		key, string(doc))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", s.table, key, err)
	}
	return nil
}
