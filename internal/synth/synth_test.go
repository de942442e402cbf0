package synth

import (
	"errors"
	"testing"

	"github.com/usedamru/sql2nosql/internal/depgraph"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/mapper"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

func orderSchema() *relschema.Schema {
	return &relschema.Schema{
		Tables: []relschema.Table{
			{
				Name: "orders",
				Columns: []relschema.Column{
					{Name: "id", Type: relschema.TypeInteger, PrimaryKey: true},
					{Name: "number", Type: relschema.TypeVarchar, Unique: true},
				},
				PrimaryKey: []string{"id"},
			},
			{
				Name: "order_lines",
				Columns: []relschema.Column{
					{Name: "order_id", Type: relschema.TypeInteger},
					{Name: "line_no", Type: relschema.TypeInteger},
					{Name: "sku", Type: relschema.TypeVarchar},
				},
				PrimaryKey:        []string{"order_id", "line_no"},
				UniqueConstraints: [][]string{{"order_id", "sku"}},
			},
		},
	}
}

func TestSynthesize_CompositeIdentity(t *testing.T) {
	rel := orderSchema()
	res, err := Synthesize(rel, mapper.Map(rel), Options{BatchSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected collection errors: %v", res.Errors)
	}

	var lines *ScriptParams
	for i := range res.Params {
		if res.Params[i].Collection == "order_lines" {
			lines = &res.Params[i]
		}
	}
	if lines == nil {
		t.Fatal("order_lines parameters missing")
	}

	if len(lines.IdentityColumns) != 2 || lines.IdentityColumns[0] != "order_id" || lines.IdentityColumns[1] != "line_no" {
		t.Errorf("identity = %v, want [order_id line_no]", lines.IdentityColumns)
	}

	filter := lines.UpsertFilter(map[string]any{"order_id": 7, "line_no": 3, "sku": "X"})
	if len(filter) != 2 || filter["order_id"] != 7 || filter["line_no"] != 3 {
		t.Errorf("upsert filter = %v, want exactly both identity fields", filter)
	}

	if len(lines.Batch.OrderBy) != 2 || lines.Batch.OrderBy[0] != "order_id" || lines.Batch.OrderBy[1] != "line_no" {
		t.Errorf("batch order = %v, want identity order", lines.Batch.OrderBy)
	}
}

func TestSynthesize_BatchPlanModes(t *testing.T) {
	rel := orderSchema()
	doc := mapper.Map(rel)

	res, err := Synthesize(rel, doc, Options{BatchSize: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Params[0].Batch.Mode != BatchFullScan {
		t.Errorf("batch size 0 should produce a full scan, got %q", res.Params[0].Batch.Mode)
	}

	res, err = Synthesize(rel, doc, Options{BatchSize: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Params[0].Batch.Mode != BatchKeyset || res.Params[0].Batch.PageSize != 500 {
		t.Errorf("batch = %+v, want keyset pages of 500", res.Params[0].Batch)
	}
}

func TestSynthesize_IndexSet(t *testing.T) {
	rel := orderSchema()
	res, err := Synthesize(rel, mapper.Map(rel), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byColl := make(map[string][]IndexDef)
	for _, p := range res.Params {
		byColl[p.Collection] = p.Indexes
	}

	orders := byColl["orders"]
	if len(orders) != 2 {
		t.Fatalf("orders indexes = %+v, want pk + unique column", orders)
	}
	for _, idx := range orders {
		if !idx.Unique {
			t.Errorf("index %s should be unique", idx.Name)
		}
	}

	lines := byColl["order_lines"]
	if len(lines) != 2 {
		t.Fatalf("order_lines indexes = %+v, want pk + unique constraint", lines)
	}
	if lines[0].Columns[0] != "order_id" || lines[0].Columns[1] != "line_no" {
		t.Errorf("pk index columns = %v", lines[0].Columns)
	}
}

func TestSynthesize_MissingIdentityFailsOnlyThatCollection(t *testing.T) {
	rel := &relschema.Schema{
		Tables: []relschema.Table{
			{Name: "good", Columns: []relschema.Column{{Name: "id", Type: relschema.TypeInteger}},
				PrimaryKey: []string{"id"}},
			{Name: "keyless", Columns: []relschema.Column{{Name: "body", Type: relschema.TypeText}}},
		},
	}
	res, err := Synthesize(rel, mapper.Map(rel), Options{})
	if err != nil {
		t.Fatalf("missing identity must not abort the run: %v", err)
	}
	if len(res.Params) != 1 || res.Params[0].Collection != "good" {
		t.Errorf("params = %+v, want only 'good'", res.Params)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 identity error, got %v", res.Errors)
	}
	var idErr *IdentityError
	if !errors.As(res.Errors[0], &idErr) || idErr.Collection != "keyless" {
		t.Errorf("error = %v, want IdentityError for keyless", res.Errors[0])
	}
}

func TestSynthesize_CycleFailsRun(t *testing.T) {
	rel := &relschema.Schema{
		Tables: []relschema.Table{
			{Name: "a", Columns: []relschema.Column{{Name: "id", Type: relschema.TypeInteger}}, PrimaryKey: []string{"id"}},
			{Name: "b", Columns: []relschema.Column{{Name: "id", Type: relschema.TypeInteger}}, PrimaryKey: []string{"id"}},
		},
	}
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "a", Fields: []docschema.Field{{Name: "b", Type: docschema.TypeObject}}},
		{Name: "b", Fields: []docschema.Field{{Name: "a", Type: docschema.TypeObject}}},
	}}

	_, err := Synthesize(rel, doc, Options{})
	var cycleErr *depgraph.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error = %v, want *depgraph.CycleError", err)
	}
}

func TestSynthesize_PreloadFromDependencies(t *testing.T) {
	rel := &relschema.Schema{
		Tables: []relschema.Table{
			{Name: "artist", Columns: []relschema.Column{{Name: "id", Type: relschema.TypeInteger}}, PrimaryKey: []string{"id"}},
			{Name: "album", Columns: []relschema.Column{{Name: "id", Type: relschema.TypeInteger}}, PrimaryKey: []string{"id"}},
		},
	}
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "artist", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
		{Name: "album", Fields: []docschema.Field{
			{Name: "id", Type: docschema.TypeNumber},
			{Name: "artist", Type: docschema.TypeObject, Optional: true},
		}},
	}}

	res, err := Synthesize(rel, doc, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Params[0].Collection != "artist" {
		t.Errorf("dependency order wrong: %s first", res.Params[0].Collection)
	}
	album := res.Params[1]
	if len(album.Preload) != 1 || album.Preload[0] != "artist" {
		t.Errorf("album preload = %v, want [artist]", album.Preload)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{BatchSize: -1}).Validate(); err == nil {
		t.Error("negative batch size accepted")
	}
	if err := (Options{ProgressInterval: -5}).Validate(); err == nil {
		t.Error("negative progress interval accepted")
	}
	if err := (Options{BatchSize: 0, ProgressInterval: 0}).Validate(); err != nil {
		t.Errorf("zero values are valid: %v", err)
	}
}
