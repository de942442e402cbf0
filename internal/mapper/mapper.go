package mapper

import (
	"fmt"
	"strings"

	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

// typeMap is the fixed, total mapping from semantic column types to document
// field types. Anything not listed degrades to unknown rather than failing.
var typeMap = map[relschema.ColumnType]docschema.FieldType{
	relschema.TypeInteger:     docschema.TypeNumber,
	relschema.TypeBigint:      docschema.TypeNumber,
	relschema.TypeNumeric:     docschema.TypeNumber,
	relschema.TypeBoolean:     docschema.TypeBoolean,
	relschema.TypeTimestamp:   docschema.TypeDate,
	relschema.TypeTimestampTZ: docschema.TypeDate,
	relschema.TypeDate:        docschema.TypeDate,
	relschema.TypeText:        docschema.TypeString,
	relschema.TypeVarchar:     docschema.TypeString,
	relschema.TypeUUID:        docschema.TypeString,
	relschema.TypeJSON:        docschema.TypeObject,
}

// DocumentType resolves a column type to its document field type.
func DocumentType(ct relschema.ColumnType) docschema.FieldType {
	if dt, ok := typeMap[ct]; ok {
		return dt
	}
	return docschema.TypeUnknown
}

// Map produces the baseline document schema: one collection per table, same
// name, one field per column in source order. Foreign key columns become
// reference fields. The function is pure and deterministic; identical input
// always yields a structurally identical schema.
func Map(rel *relschema.Schema) *docschema.Schema {
	out := &docschema.Schema{Collections: make([]docschema.Collection, 0, len(rel.Tables))}

	for i := range rel.Tables {
		t := &rel.Tables[i]
		coll := docschema.Collection{
			Name:        t.Name,
			Fields:      make([]docschema.Field, 0, len(t.Columns)),
			Description: fmt.Sprintf("Migrated from table %s", t.Name),
		}

		for _, col := range t.Columns {
			if fk := rel.ForeignKeyFor(t.Name, col.Name); fk != nil {
				coll.Fields = append(coll.Fields, referenceField(rel, col, fk))
				continue
			}
			coll.Fields = append(coll.Fields, docschema.Field{
				Name:     col.Name,
				Type:     DocumentType(col.Type),
				Optional: col.Nullable,
			})
		}

		out.Collections = append(out.Collections, coll)
	}

	return out
}

func referenceField(rel *relschema.Schema, col relschema.Column, fk *relschema.ForeignKey) docschema.Field {
	return docschema.Field{
		Name:          col.Name,
		Type:          docschema.TypeReference,
		Optional:      col.Nullable,
		RefCollection: fk.TargetTable,
		Description:   fmt.Sprintf("Reference to %s.%s", fk.TargetTable, targetIdentity(rel, fk.TargetTable)),
	}
}

// targetIdentity names the identity field(s) of the referenced table for the
// reference description: a single name for a single-column primary key, the
// ordered list for a composite one, and "id" when nothing is declared.
func targetIdentity(rel *relschema.Schema, table string) string {
	t := rel.Table(table)
	if t == nil || len(t.PrimaryKey) == 0 {
		return "id"
	}
	if len(t.PrimaryKey) == 1 {
		return t.PrimaryKey[0]
	}
	return "(" + strings.Join(t.PrimaryKey, ", ") + ")"
}
