package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohangy/azii/internal/domain"
)

// row is the PostgREST shape of a stored record. Tables are expected as
//
//	create table <name> (seq bigint generated always as identity, key text primary key, doc jsonb not null);
type row struct {
	Key string          `json:"key"`
	Doc json.RawMessage `json:"doc"`
}

// Store is a RecordStore over one PostgREST table.
type Store[T any] struct {
	c     *Client
	table string
	key   func(T) string
}

// NewStore binds a store to table.
func NewStore[T any](c *Client, table string, key func(T) string) *Store[T] {
	return &Store[T]{c: c, table: table, key: key}
}

func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Load")
	defer span.End()
	span.SetAttributes(attribute.String("table", s.table))

	var out []T
	err := s.c.call(ctx, func() error {
		body, err := s.c.doRequest(ctx, http.MethodGet, s.table+"?select=key,doc&order=seq.asc", nil, "")
		if err != nil {
			return err
		}
		var rows []row
		if len(body) > 0 {
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode %s: %w", s.table, err)
			}
		}
		out = make([]T, 0, len(rows))
		for _, r := range rows {
			var rec T
			if err := json.Unmarshal(r.Doc, &rec); err != nil {
				s.c.logger.Warn("supabase: skipping undecodable record",
					zap.String("table", s.table),
					zap.String("key", r.Key),
					zap.Error(err),
				)
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return out, nil
}

// Save replaces the table contents. PostgREST offers no multi-statement
// transaction, so a failure between the delete and the insert leaves the
// table empty until the next successful Save.
func (s *Store[T]) Save(ctx context.Context, records []T) error {
	ctx, span := tracer.Start(ctx, "Supabase.Save")
	defer span.End()
	span.SetAttributes(attribute.String("table", s.table), attribute.Int("records", len(records)))

	rows, err := s.rows(records)
	if err != nil {
		return err
	}

	err = s.c.call(ctx, func() error {
		_, err := s.c.doRequest(ctx, http.MethodDelete, s.table+"?key=not.is.null", nil, "return=minimal")
		return err
	})
	if err == nil && len(rows) > 0 {
		err = s.c.call(ctx, func() error {
			_, err := s.c.doRequest(ctx, http.MethodPost, s.table+"?on_conflict=key", rows,
				"resolution=merge-duplicates,return=minimal")
			return err
		})
	}
	if err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *Store[T]) Upsert(ctx context.Context, key string, record T) error {
	ctx, span := tracer.Start(ctx, "Supabase.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("table", s.table), attribute.String("key", key))

	doc, err := json.Marshal(record)
	if err != nil {
		return &domain.ErrValidation{Field: "record", Message: err.Error()}
	}
	err = s.c.call(ctx, func() error {
		_, err := s.c.doRequest(ctx, http.MethodPost, s.table+"?on_conflict=key",
			[]row{{Key: key, Doc: doc}}, "resolution=merge-duplicates,return=minimal")
		return err
	})
	if err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *Store[T]) rows(records []T) ([]row, error) {
	// Later records win on duplicate keys, matching the other backends.
	index := make(map[string]int, len(records))
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "record", Message: err.Error()}
		}
		k := s.key(rec)
		if i, ok := index[k]; ok {
			rows[i].Doc = doc
			continue
		}
		index[k] = len(rows)
		rows = append(rows, row{Key: k, Doc: doc})
	}
	return rows, nil
}

func (s *Store[T]) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: "supabase/" + s.table}
	}
	return &domain.ErrExternalService{Service: "supabase/" + url.PathEscape(s.table), Err: err}
}
