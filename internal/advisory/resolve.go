package advisory

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/usedamru/sql2nosql/internal/relschema"
)

// StripIDSuffix removes a trailing "_id" or "id" (case-insensitive) from a
// field name. Returns "" when nothing remains after stripping.
func StripIDSuffix(field string) string {
	lower := strings.ToLower(field)
	switch {
	case strings.HasSuffix(lower, "_id"):
		return field[:len(field)-3]
	case strings.HasSuffix(lower, "id"):
		return field[:len(field)-2]
	default:
		return field
	}
}

// ResolveTable finds the table a recommendation's field refers to. An
// explicit foreign key on (collection, field) wins; otherwise the table is
// inferred from the field name. The boolean is false when neither works.
func ResolveTable(rel *relschema.Schema, collection, field string) (string, bool) {
	if fk := rel.ForeignKeyFor(collection, field); fk != nil {
		return fk.TargetTable, true
	}
	return inferTable(rel, field)
}

// inferTable guesses a referenced table from the field name by stripping an
// id suffix and matching the remainder against table names, singular or
// pluralized, case-insensitively. This heuristic is deliberately confined to
// this function so it can be tested and replaced without touching merge
// logic.
func inferTable(rel *relschema.Schema, field string) (string, bool) {
	base := strings.ToLower(strings.TrimSuffix(StripIDSuffix(field), "_"))
	if base == "" {
		return "", false
	}
	for i := range rel.Tables {
		name := strings.ToLower(rel.Tables[i].Name)
		if base == name || inflection.Plural(base) == name || inflection.Singular(base) == name {
			return rel.Tables[i].Name, true
		}
	}
	return "", false
}
