package relschema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnType is the semantic type of a source column.
type ColumnType string

const (
	TypeInteger     ColumnType = "integer"
	TypeBigint      ColumnType = "bigint"
	TypeNumeric     ColumnType = "numeric"
	TypeBoolean     ColumnType = "boolean"
	TypeTimestamp   ColumnType = "timestamp"
	TypeTimestampTZ ColumnType = "timestamptz"
	TypeDate        ColumnType = "date"
	TypeText        ColumnType = "text"
	TypeVarchar     ColumnType = "varchar"
	TypeUUID        ColumnType = "uuid"
	TypeJSON        ColumnType = "json"
	TypeUnknown     ColumnType = "unknown"
)

// CardinalityOneToMany is the only cardinality currently emitted for foreign
// keys. The field exists so future refinement does not change the wire format.
const CardinalityOneToMany = "one-to-many"

// Column represents a table column. Columns are not modified after the
// schema is constructed.
type Column struct {
	Name       string     `yaml:"name"`
	Type       ColumnType `yaml:"type"`
	Nullable   bool       `yaml:"nullable"`
	PrimaryKey bool       `yaml:"primary_key,omitempty"`
	Unique     bool       `yaml:"unique,omitempty"`
	HasDefault bool       `yaml:"has_default,omitempty"`
}

// Table represents a source table. Column order reflects source order and is
// significant for downstream mapping.
type Table struct {
	Name              string     `yaml:"name"`
	Columns           []Column   `yaml:"columns"`
	PrimaryKey        []string   `yaml:"primary_key,omitempty"`
	UniqueConstraints [][]string `yaml:"unique_constraints,omitempty"`
}

// ForeignKey represents a single-column foreign key relationship.
type ForeignKey struct {
	Name         string `yaml:"name"`
	SourceTable  string `yaml:"source_table"`
	SourceColumn string `yaml:"source_column"`
	TargetTable  string `yaml:"target_table"`
	TargetColumn string `yaml:"target_column"`
	Cardinality  string `yaml:"cardinality,omitempty"`
}

// Schema is the root relational model consumed by the pipeline. It is owned
// by the caller and treated as read-only by every stage.
type Schema struct {
	Tables      []Table      `yaml:"tables"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
}

// Column returns the named column, or nil if the table has no such column.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// ForeignKeyFor returns the foreign key whose source side matches the given
// table and column, or nil.
func (s *Schema) ForeignKeyFor(table, column string) *ForeignKey {
	for i := range s.ForeignKeys {
		fk := &s.ForeignKeys[i]
		if fk.SourceTable == table && fk.SourceColumn == column {
			return fk
		}
	}
	return nil
}

// IsIDLike reports whether a column name looks like an identifier column
// (name ending in "id", case-insensitive).
func IsIDLike(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "id")
}

// IdentityColumns returns the columns that identify a row: the declared
// primary key in declared order, else the first id-like column. The second
// return is false when the table has no usable identity.
func (t *Table) IdentityColumns() ([]string, bool) {
	if len(t.PrimaryKey) > 0 {
		cols := make([]string, len(t.PrimaryKey))
		copy(cols, t.PrimaryKey)
		return cols, true
	}
	for _, c := range t.Columns {
		if IsIDLike(c.Name) {
			return []string{c.Name}, true
		}
	}
	return nil, false
}

// Validate checks the structural invariants of the schema: unique table
// names, primary key and unique constraint columns that exist, and foreign
// keys whose endpoints exist. Malformed schemas are rejected here rather than
// discovered mid-pipeline.
func (s *Schema) Validate() error {
	seen := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if seen[t.Name] {
			return fmt.Errorf("duplicate table name %q", t.Name)
		}
		seen[t.Name] = true

		for _, pk := range t.PrimaryKey {
			if t.Column(pk) == nil {
				return fmt.Errorf("table %q: primary key column %q does not exist", t.Name, pk)
			}
		}
		for _, group := range t.UniqueConstraints {
			for _, c := range group {
				if t.Column(c) == nil {
					return fmt.Errorf("table %q: unique constraint column %q does not exist", t.Name, c)
				}
			}
		}
	}

	for i := range s.ForeignKeys {
		fk := &s.ForeignKeys[i]
		src := s.Table(fk.SourceTable)
		if src == nil {
			return fmt.Errorf("foreign key %q: source table %q does not exist", fk.Name, fk.SourceTable)
		}
		if src.Column(fk.SourceColumn) == nil {
			return fmt.Errorf("foreign key %q: source column %s.%s does not exist", fk.Name, fk.SourceTable, fk.SourceColumn)
		}
		tgt := s.Table(fk.TargetTable)
		if tgt == nil {
			return fmt.Errorf("foreign key %q: target table %q does not exist", fk.Name, fk.TargetTable)
		}
		if tgt.Column(fk.TargetColumn) == nil {
			return fmt.Errorf("foreign key %q: target column %s.%s does not exist", fk.Name, fk.TargetTable, fk.TargetColumn)
		}
	}
	return nil
}

// WriteYAML writes the schema to a YAML file.
func (s *Schema) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads and validates a schema from a YAML file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return s, nil
}
