// Package introspect builds a relational schema model from a live
// PostgreSQL database using its information_schema catalogs.
package introspect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/usedamru/sql2nosql/internal/config"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

// Postgres introspects a PostgreSQL schema.
type Postgres struct {
	cfg    *config.SourceConfig
	pool   *pgxpool.Pool
	schema string
	logger *slog.Logger
}

// NewPostgres creates a PostgreSQL introspector. Call Connect before
// Introspect.
func NewPostgres(cfg *config.SourceConfig, logger *slog.Logger) *Postgres {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	return &Postgres{cfg: cfg, schema: s, logger: logger}
}

func (p *Postgres) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	p.pool = pool
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

// Introspect reads tables, columns, keys and constraints and assembles a
// validated relational schema.
func (p *Postgres) Introspect(ctx context.Context) (*relschema.Schema, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	tables, err := p.listTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	tableMap := make(map[string]*relschema.Table, len(tables))
	for i := range tables {
		tableMap[tables[i].Name] = &tables[i]
	}

	if err := p.loadColumns(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("loading columns: %w", err)
	}
	if err := p.loadPrimaryKeys(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("loading primary keys: %w", err)
	}
	if err := p.loadUniqueConstraints(ctx, tableMap); err != nil {
		return nil, fmt.Errorf("loading unique constraints: %w", err)
	}

	fks, err := p.loadForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading foreign keys: %w", err)
	}

	schema := &relschema.Schema{Tables: tables, ForeignKeys: fks}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("introspected schema invalid: %w", err)
	}
	return schema, nil
}

func (p *Postgres) listTables(ctx context.Context) ([]relschema.Table, error) {
	query := `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []relschema.Table
	for rows.Next() {
		var t relschema.Table
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (p *Postgres) loadColumns(ctx context.Context, tableMap map[string]*relschema.Table) error {
	query := `
		SELECT
			table_name,
			column_name,
			data_type,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, colName, dataType, nullable string
			defaultVal                             *string
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &nullable, &defaultVal); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		colType := ColumnType(dataType)
		if colType == relschema.TypeUnknown {
			p.logger.Warn("unrecognized column type",
				"table", tableName, "column", colName, "data_type", dataType)
		}

		t.Columns = append(t.Columns, relschema.Column{
			Name:       colName,
			Type:       colType,
			Nullable:   nullable == "YES",
			HasDefault: defaultVal != nil,
		})
	}
	return rows.Err()
}

func (p *Postgres) loadPrimaryKeys(ctx context.Context, tableMap map[string]*relschema.Table) error {
	query := `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return err
		}
		t, ok := tableMap[tableName]
		if !ok {
			continue
		}
		t.PrimaryKey = append(t.PrimaryKey, colName)
		if col := t.Column(colName); col != nil {
			col.PrimaryKey = true
		}
	}
	return rows.Err()
}

func (p *Postgres) loadUniqueConstraints(ctx context.Context, tableMap map[string]*relschema.Table) error {
	query := `
		SELECT tc.table_name, tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	// Composite constraints arrive one column per row; group them in order.
	type key struct{ table, constraint string }
	grouped := make(map[key][]string)
	var order []key

	for rows.Next() {
		var tableName, constraintName, colName string
		if err := rows.Scan(&tableName, &constraintName, &colName); err != nil {
			return err
		}
		k := key{tableName, constraintName}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		t, ok := tableMap[k.table]
		if !ok {
			continue
		}
		cols := grouped[k]
		if len(cols) == 1 {
			if col := t.Column(cols[0]); col != nil {
				col.Unique = true
			}
			continue
		}
		t.UniqueConstraints = append(t.UniqueConstraints, cols)
	}
	return nil
}

func (p *Postgres) loadForeignKeys(ctx context.Context) ([]relschema.ForeignKey, error) {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		  AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type fkRow struct {
		table, constraint, column, refTable, refColumn string
	}
	var fkRows []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.table, &r.constraint, &r.column, &r.refTable, &r.refColumn); err != nil {
			return nil, err
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Composite foreign keys span multiple rows; the model only carries
	// single-column keys, so composites are reported and dropped.
	counts := make(map[string]int)
	for _, r := range fkRows {
		counts[r.constraint]++
	}

	var fks []relschema.ForeignKey
	for _, r := range fkRows {
		if counts[r.constraint] > 1 {
			p.logger.Warn("skipping composite foreign key",
				"table", r.table, "constraint", r.constraint)
			counts[r.constraint] = 0
			continue
		}
		if counts[r.constraint] == 0 {
			continue
		}
		fks = append(fks, relschema.ForeignKey{
			Name:         r.constraint,
			SourceTable:  r.table,
			SourceColumn: r.column,
			TargetTable:  r.refTable,
			TargetColumn: r.refColumn,
			Cardinality:  relschema.CardinalityOneToMany,
		})
	}
	return fks, nil
}

// ColumnType maps a PostgreSQL data_type to the model's column type.
func ColumnType(dataType string) relschema.ColumnType {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "serial", "smallserial":
		return relschema.TypeInteger
	case "bigint", "bigserial":
		return relschema.TypeBigint
	case "numeric", "decimal", "real", "double precision", "money":
		return relschema.TypeNumeric
	case "boolean":
		return relschema.TypeBoolean
	case "timestamp without time zone", "timestamp":
		return relschema.TypeTimestamp
	case "timestamp with time zone", "timestamptz":
		return relschema.TypeTimestampTZ
	case "date":
		return relschema.TypeDate
	case "text":
		return relschema.TypeText
	case "character varying", "varchar", "character", "char":
		return relschema.TypeVarchar
	case "uuid":
		return relschema.TypeUUID
	case "json", "jsonb":
		return relschema.TypeJSON
	default:
		return relschema.TypeUnknown
	}
}
