// Package ddl parses CREATE TABLE statements into the relational schema
// model, for projects that keep their schema as SQL files rather than a
// live database.
package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/usedamru/sql2nosql/internal/introspect"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	createTable  = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w".]+)\s*\((.*)\)\s*(?:[\w\s=]*)$`)
	referencesRe = regexp.MustCompile(`(?i)REFERENCES\s+([\w".]+)\s*(?:\(\s*([\w"]+)\s*\))?`)
	defaultRe    = regexp.MustCompile(`(?i)\bDEFAULT\b`)
)

// Parse reads one or more CREATE TABLE statements and assembles a validated
// relational schema. Statements other than CREATE TABLE are ignored.
func Parse(sql string) (*relschema.Schema, error) {
	sql = blockComment.ReplaceAllString(sql, "")
	sql = lineComment.ReplaceAllString(sql, "")

	schema := &relschema.Schema{}
	for _, stmt := range splitStatements(sql) {
		m := createTable.FindStringSubmatch(stmt)
		if m == nil {
			continue
		}
		table, fks, err := parseTable(unquote(m[1]), m[2])
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, *table)
		schema.ForeignKeys = append(schema.ForeignKeys, fks...)
	}

	if len(schema.Tables) == 0 {
		return nil, fmt.Errorf("no CREATE TABLE statements found")
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("parsed schema invalid: %w", err)
	}
	return schema, nil
}

func parseTable(name, body string) (*relschema.Table, []relschema.ForeignKey, error) {
	table := &relschema.Table{Name: stripSchema(name)}
	var fks []relschema.ForeignKey

	for _, item := range splitTopLevel(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		upper := strings.ToUpper(item)
		constraintName := ""
		if strings.HasPrefix(upper, "CONSTRAINT") {
			fields := strings.Fields(item)
			if len(fields) < 3 {
				return nil, nil, fmt.Errorf("table %s: malformed constraint %q", table.Name, item)
			}
			constraintName = unquote(fields[1])
			item = strings.Join(fields[2:], " ")
			upper = strings.ToUpper(item)
		}

		switch {
		case strings.HasPrefix(upper, "PRIMARY KEY"):
			cols, err := parenList(item)
			if err != nil {
				return nil, nil, fmt.Errorf("table %s: %w", table.Name, err)
			}
			table.PrimaryKey = cols
			for _, c := range cols {
				if col := table.Column(c); col != nil {
					col.PrimaryKey = true
				}
			}
		case strings.HasPrefix(upper, "UNIQUE"):
			cols, err := parenList(item)
			if err != nil {
				return nil, nil, fmt.Errorf("table %s: %w", table.Name, err)
			}
			if len(cols) == 1 {
				if col := table.Column(cols[0]); col != nil {
					col.Unique = true
				}
			} else {
				table.UniqueConstraints = append(table.UniqueConstraints, cols)
			}
		case strings.HasPrefix(upper, "FOREIGN KEY"):
			fk, err := parseForeignKey(table.Name, constraintName, item)
			if err != nil {
				return nil, nil, err
			}
			if fk != nil {
				fks = append(fks, *fk)
			}
		case strings.HasPrefix(upper, "CHECK"), strings.HasPrefix(upper, "EXCLUDE"):
			// Not represented in the model.
		default:
			col, fk, err := parseColumn(table.Name, item)
			if err != nil {
				return nil, nil, err
			}
			table.Columns = append(table.Columns, *col)
			if fk != nil {
				fks = append(fks, *fk)
			}
			if col.PrimaryKey {
				table.PrimaryKey = append(table.PrimaryKey, col.Name)
			}
		}
	}
	return table, fks, nil
}

// parseColumn handles "name type [column constraints...]" including inline
// REFERENCES clauses.
func parseColumn(tableName, item string) (*relschema.Column, *relschema.ForeignKey, error) {
	fields := strings.Fields(item)
	if len(fields) < 2 {
		return nil, nil, fmt.Errorf("table %s: malformed column definition %q", tableName, item)
	}

	col := &relschema.Column{
		Name:     unquote(fields[0]),
		Nullable: true,
	}
	rest := strings.Join(fields[1:], " ")
	upper := strings.ToUpper(rest)

	col.Type = columnType(fields[1], upper)

	if strings.Contains(upper, "NOT NULL") {
		col.Nullable = false
	}
	if strings.Contains(upper, "PRIMARY KEY") {
		col.PrimaryKey = true
		col.Nullable = false
	}
	// UNIQUE alone, not the UNIQUE inside a later constraint keyword.
	if strings.Contains(upper, "UNIQUE") {
		col.Unique = true
	}
	if defaultRe.MatchString(rest) {
		col.HasDefault = true
	}

	var fk *relschema.ForeignKey
	if m := referencesRe.FindStringSubmatch(rest); m != nil {
		target := stripSchema(unquote(m[1]))
		targetCol := "id"
		if m[2] != "" {
			targetCol = unquote(m[2])
		}
		fk = &relschema.ForeignKey{
			Name:         fmt.Sprintf("fk_%s_%s", tableName, col.Name),
			SourceTable:  tableName,
			SourceColumn: col.Name,
			TargetTable:  target,
			TargetColumn: targetCol,
			Cardinality:  relschema.CardinalityOneToMany,
		}
	}
	return col, fk, nil
}

func parseForeignKey(tableName, constraintName, item string) (*relschema.ForeignKey, error) {
	cols, err := parenList(item)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", tableName, err)
	}
	// Only single-column keys fit the model.
	if len(cols) != 1 {
		return nil, nil
	}
	m := referencesRe.FindStringSubmatch(item)
	if m == nil {
		return nil, fmt.Errorf("table %s: FOREIGN KEY without REFERENCES in %q", tableName, item)
	}
	name := constraintName
	if name == "" {
		name = fmt.Sprintf("fk_%s_%s", tableName, cols[0])
	}
	targetCol := "id"
	if m[2] != "" {
		targetCol = unquote(m[2])
	}
	return &relschema.ForeignKey{
		Name:         name,
		SourceTable:  tableName,
		SourceColumn: cols[0],
		TargetTable:  stripSchema(unquote(m[1])),
		TargetColumn: targetCol,
		Cardinality:  relschema.CardinalityOneToMany,
	}, nil
}

// columnType reuses the introspector's PostgreSQL type mapping, normalizing
// parameterized types like varchar(255) first.
func columnType(rawType, upperRest string) relschema.ColumnType {
	base := rawType
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(base)

	// Multi-word types need the trailing words back.
	switch base {
	case "double":
		return relschema.TypeNumeric
	case "character":
		return relschema.TypeVarchar
	case "timestamp":
		if strings.Contains(upperRest, "WITH TIME ZONE") {
			return relschema.TypeTimestampTZ
		}
		return relschema.TypeTimestamp
	}
	return introspect.ColumnType(base)
}

// splitStatements splits on semicolons outside parentheses and quotes.
func splitStatements(sql string) []string {
	return splitOn(sql, ';')
}

// splitTopLevel splits a CREATE TABLE body on commas at parenthesis depth
// zero.
func splitTopLevel(body string) []string {
	return splitOn(body, ',')
}

func splitOn(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parenList extracts the first parenthesized identifier list of an item.
func parenList(item string) ([]string, error) {
	open := strings.IndexByte(item, '(')
	if open < 0 {
		return nil, fmt.Errorf("expected column list in %q", item)
	}
	depth := 0
	for i := open; i < len(item); i++ {
		switch item[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				var cols []string
				for _, c := range strings.Split(item[open+1:i], ",") {
					cols = append(cols, unquote(strings.TrimSpace(c)))
				}
				return cols, nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced parentheses in %q", item)
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}

func stripSchema(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
