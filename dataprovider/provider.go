// Package dataprovider defines the contract of the remote data provider that
// owns profiles and products.
package dataprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRows       = errors.New("no rows in result set")
	ErrMultipleRows = errors.New("more than one row in result set")
)

// Row is one record keyed by column name.
type Row map[string]any

// String returns the column as a string, or "" when absent or not a string.
func (r Row) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// Condition is a single column = value equality.
type Condition struct {
	Column string
	Value  any
}

// Filter is an ordered conjunction of equalities. The zero Filter matches every row.
type Filter []Condition

// Eq returns a filter with one more equality appended.
func (f Filter) Eq(column string, value any) Filter {
	out := make(Filter, len(f), len(f)+1)
	copy(out, f)
	return append(out, Condition{Column: column, Value: value})
}

// Where starts a filter on column = value.
func Where(column string, value any) Filter {
	return Filter{}.Eq(column, value)
}

// Matches reports whether row satisfies every condition.
func (f Filter) Matches(row Row) bool {
	for _, c := range f {
		v, ok := row[c.Column]
		if !ok || fmt.Sprint(v) != fmt.Sprint(c.Value) {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s=%v", c.Column, c.Value)
	}
	return strings.Join(parts, ",")
}

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=mocks/provider_mock.go github.com/jrsteele09/go-storefront/dataprovider Provider

// Provider reads rows from named tables.
type Provider interface {
	// QueryOne returns the single row matching filter. Zero matches yield
	// ErrNoRows and more than one yield ErrMultipleRows.
	QueryOne(ctx context.Context, table string, filter Filter) (Row, error)
	// QueryMany returns up to limit matching rows in the provider's natural order.
	// A limit <= 0 means no limit.
	QueryMany(ctx context.Context, table string, filter Filter, limit int) ([]Row, error)
}

// Writer stores rows. The storefront itself only reads; writes come from
// sign-up hooks and seeding.
type Writer interface {
	// Upsert inserts row, replacing any row whose key column holds the same value.
	Upsert(ctx context.Context, table, key string, row Row) error
}
