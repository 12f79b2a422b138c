// Package postgres implements the remote data provider on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-storefront/dataprovider"
)

// Querier is the subset of pgxpool.Pool used by the provider.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ dataprovider.Provider = (*Provider)(nil)

type Provider struct {
	db Querier
}

func New(db Querier) *Provider {
	return &Provider{db: db}
}

// Open connects a pool to databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string) (*Provider, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("[postgres Open] failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("[postgres Open] failed to ping database: %w", err)
	}
	return New(pool), pool, nil
}

func (p *Provider) QueryOne(ctx context.Context, table string, filter dataprovider.Filter) (dataprovider.Row, error) {
	rows, err := p.QueryMany(ctx, table, filter, 2)
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

func (p *Provider) QueryMany(ctx context.Context, table string, filter dataprovider.Filter, limit int) ([]dataprovider.Row, error) {
	query, args, err := buildSelect(table, filter, limit)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("[postgres QueryMany] %s: %w", table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("[postgres QueryMany] %s: %w", table, err)
	}

	out := make([]dataprovider.Row, 0, len(records))
	for _, m := range records {
		out = append(out, normalise(m))
	}
	return out, nil
}

// buildSelect renders a parameterised SELECT. Identifiers are quoted, values are bound.
func buildSelect(table string, filter dataprovider.Filter, limit int) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, errors.New("[postgres buildSelect] table is required")
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(pgx.Identifier(strings.Split(table, ".")).Sanitize())

	args := make([]any, 0, len(filter))
	for i, cond := range filter {
		if cond.Column == "" {
			return "", nil, errors.New("[postgres buildSelect] filter column is required")
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, cond.Value)
		sb.WriteString(pgx.Identifier{cond.Column}.Sanitize())
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit))
	}
	return sb.String(), args, nil
}

// normalise converts driver-specific values into plain Go values.
func normalise(m map[string]any) dataprovider.Row {
	row := make(dataprovider.Row, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case [16]byte:
			row[k] = uuid.UUID(val).String()
		case pgtype.Numeric:
			if !val.Valid {
				row[k] = nil
				continue
			}
			dv, err := val.Value()
			if err != nil {
				row[k] = nil
				continue
			}
			row[k] = dv
		default:
			row[k] = v
		}
	}
	return row
}
