package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jrsteele09/go-storefront/dataprovider"
)

// Execer is the subset of pgxpool.Pool used by the writer.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ dataprovider.Writer = (*Writer)(nil)

type Writer struct {
	db Execer
}

func NewWriter(db Execer) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Upsert(ctx context.Context, table, key string, row dataprovider.Row) error {
	query, args, err := buildUpsert(table, key, row)
	if err != nil {
		return err
	}
	if _, err := w.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("[postgres Upsert] %s: %w", table, err)
	}
	return nil
}

// buildUpsert renders INSERT ... ON CONFLICT with columns in name order.
func buildUpsert(table, key string, row dataprovider.Row) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, errors.New("[postgres buildUpsert] table is required")
	}
	if _, ok := row[key]; !ok {
		return "", nil, fmt.Errorf("[postgres buildUpsert] row has no %q column", key)
	}

	columns := make([]string, 0, len(row))
	for column := range row {
		if column == "" {
			return "", nil, errors.New("[postgres buildUpsert] column name is required")
		}
		columns = append(columns, column)
	}
	slices.Sort(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	var updates []string
	for i, column := range columns {
		quoted[i] = pgx.Identifier{column}.Sanitize()
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[column]
		if column != key {
			updates = append(updates, quoted[i]+" = EXCLUDED."+quoted[i])
		}
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(pgx.Identifier(strings.Split(table, ".")).Sanitize())
	sb.WriteString(" (" + strings.Join(quoted, ", ") + ")")
	sb.WriteString(" VALUES (" + strings.Join(placeholders, ", ") + ")")
	sb.WriteString(" ON CONFLICT (" + pgx.Identifier{key}.Sanitize() + ")")
	if len(updates) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		sb.WriteString(" DO UPDATE SET " + strings.Join(updates, ", "))
	}
	return sb.String(), args, nil
}
