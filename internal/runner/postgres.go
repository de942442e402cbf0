package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/usedamru/sql2nosql/internal/config"
)

// PostgresSource implements Source against a PostgreSQL database using
// keyset pagination over the identity columns.
type PostgresSource struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresSource connects to the configured PostgreSQL database.
func NewPostgresSource(ctx context.Context, cfg *config.SourceConfig) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &PostgresSource{pool: pool, schema: schema}, nil
}

func (p *PostgresSource) ReadPage(ctx context.Context, table string, orderBy []string, after []any, limit int) ([]Row, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s.%s", quoteIdent(p.schema), quoteIdent(table))

	var args []any
	if after != nil {
		// Row-value comparison keeps composite keysets correct in one
		// predicate.
		placeholders := make([]string, len(after))
		for i := range after {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, after[i])
		}
		fmt.Fprintf(&sb, " WHERE (%s) > (%s)",
			quoteIdents(orderBy), strings.Join(placeholders, ", "))
	}
	if len(orderBy) > 0 {
		fmt.Fprintf(&sb, " ORDER BY %s", quoteIdents(orderBy))
	}
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	rows, err := p.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row from %s: %w", table, err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}

func (p *PostgresSource) Close() {
	p.pool.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
