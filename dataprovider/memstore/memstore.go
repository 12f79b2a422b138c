// Package memstore is an in-memory data provider for development and tests.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/jrsteele09/go-storefront/dataprovider"
)

var _ dataprovider.Provider = (*Store)(nil)

// Store keeps rows per table in insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]dataprovider.Row
}

func New() *Store {
	return &Store{tables: make(map[string][]dataprovider.Row)}
}

// Insert appends copies of rows to table.
func (s *Store) Insert(table string, rows ...dataprovider.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], maps.Clone(row))
	}
}

// Upsert replaces every row of table whose key column equals row's, or appends row.
func (s *Store) Upsert(table, key string, row dataprovider.Row) error {
	value, ok := row[key]
	if !ok {
		return fmt.Errorf("[memstore Upsert] row has no %q column", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match := dataprovider.Where(key, value)
	replaced := false
	for i, existing := range s.tables[table] {
		if match.Matches(existing) {
			s.tables[table][i] = maps.Clone(row)
			replaced = true
		}
	}
	if !replaced {
		s.tables[table] = append(s.tables[table], maps.Clone(row))
	}
	return nil
}

// Delete removes every row matching filter and returns how many were removed.
func (s *Store) Delete(table string, filter dataprovider.Filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	removed := 0
	for _, row := range s.tables[table] {
		if filter.Matches(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return removed
}

func (s *Store) QueryOne(ctx context.Context, table string, filter dataprovider.Filter) (dataprovider.Row, error) {
	rows, err := s.QueryMany(ctx, table, filter, 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, dataprovider.ErrNoRows
	case 1:
		return rows[0], nil
	default:
		return nil, dataprovider.ErrMultipleRows
	}
}

func (s *Store) QueryMany(ctx context.Context, table string, filter dataprovider.Filter, limit int) ([]dataprovider.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dataprovider.Row
	for _, row := range s.tables[table] {
		if limit > 0 && len(out) == limit {
			break
		}
		if filter.Matches(row) {
			out = append(out, maps.Clone(row))
		}
	}
	return out, nil
}

type writer struct {
	store *Store
}

// Writer adapts the store to dataprovider.Writer.
func (s *Store) Writer() dataprovider.Writer {
	return writer{store: s}
}

func (w writer) Upsert(ctx context.Context, table, key string, row dataprovider.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.store.Upsert(table, key, row)
}
