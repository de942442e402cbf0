package advisory

import (
	"fmt"

	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/mapper"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

// Skip records a recommendation the merger could not apply and why. Skips are
// warnings for the caller to log; they never abort the merge.
type Skip struct {
	Recommendation Recommendation
	Reason         string
}

// Merge applies recommendations to a baseline document schema, in list order,
// and returns the augmented schema plus any skipped recommendations. The
// baseline is never mutated; the returned schema is an independent copy, so
// the deterministic baseline remains inspectable alongside the result.
func Merge(base *docschema.Schema, rel *relschema.Schema, recs []Recommendation) (*docschema.Schema, []Skip) {
	out := base.Clone()
	var skips []Skip

	for _, rec := range recs {
		if reason := apply(out, rel, rec); reason != "" {
			skips = append(skips, Skip{Recommendation: rec, Reason: reason})
		}
	}

	return out, skips
}

// apply merges one recommendation into the schema. It returns a non-empty
// skip reason when the recommendation has no effect.
func apply(doc *docschema.Schema, rel *relschema.Schema, rec Recommendation) string {
	coll := doc.Collection(rec.Collection)
	if coll == nil {
		return fmt.Sprintf("collection %q not found", rec.Collection)
	}

	table, ok := ResolveTable(rel, rec.Collection, rec.Field)
	if !ok {
		return fmt.Sprintf("no table resolvable for field %q", rec.Field)
	}
	t := rel.Table(table)
	if t == nil {
		return fmt.Sprintf("resolved table %q not in schema", table)
	}

	// Full embedding copies every column; only safe when the relationship is
	// backed by a real foreign key.
	if rec.Strategy == StrategyFull && rec.Relationship == RelationshipImplicit {
		return "full strategy requires an explicit relationship"
	}

	nestedName := StripIDSuffix(rec.Field)
	if nestedName == "" {
		nestedName = rec.Field + "_obj"
	}

	nested := nestedFields(t, rec.SuggestedFields)

	if existing := coll.Field(nestedName); existing != nil {
		if existing.Type != docschema.TypeObject {
			// An explicit conflict is not auto-resolved.
			return fmt.Sprintf("field %q already exists with type %q", nestedName, existing.Type)
		}
		mergeNested(existing, nested)
		return ""
	}

	coll.Fields = append(coll.Fields, docschema.Field{
		Name:        nestedName,
		Type:        docschema.TypeObject,
		Optional:    true,
		Description: rec.Reasoning,
		Fields:      nested,
	})
	return ""
}

// nestedFields builds the embedded field set: the suggested column names when
// given (unknown names are dropped), otherwise every column of the table. The
// table's id-like columns are always included so identity is never silently
// lost. Embedded data may be stale or absent, so every nested field is
// optional.
func nestedFields(t *relschema.Table, suggested []string) []docschema.Field {
	var fields []docschema.Field
	seen := make(map[string]bool)

	add := func(col *relschema.Column) {
		if col == nil || seen[col.Name] {
			return
		}
		seen[col.Name] = true
		fields = append(fields, docschema.Field{
			Name:     col.Name,
			Type:     mapper.DocumentType(col.Type),
			Optional: true,
		})
	}

	if len(suggested) > 0 {
		for _, name := range suggested {
			add(t.Column(name))
		}
	} else {
		for i := range t.Columns {
			add(&t.Columns[i])
		}
	}

	for i := range t.Columns {
		if relschema.IsIDLike(t.Columns[i].Name) {
			add(&t.Columns[i])
		}
	}

	return fields
}

// mergeNested unions new nested fields into an existing object field,
// matching by name so a re-applied recommendation is a no-op.
func mergeNested(existing *docschema.Field, nested []docschema.Field) {
	present := make(map[string]bool, len(existing.Fields))
	for _, f := range existing.Fields {
		present[f.Name] = true
	}
	for _, f := range nested {
		if !present[f.Name] {
			existing.Fields = append(existing.Fields, f)
			present[f.Name] = true
		}
	}
}
