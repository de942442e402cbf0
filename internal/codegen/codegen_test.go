package codegen

import (
	"strings"
	"testing"

	"github.com/usedamru/sql2nosql/internal/config"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/synth"
)

func testGenerator(params []synth.ScriptParams, doc *docschema.Schema) *Generator {
	return &Generator{
		Source: &config.SourceConfig{
			Host: "localhost", Port: 5432, Database: "testdb",
			Username: "app", Password: "secret",
		},
		Target: &config.TargetConfig{
			ConnectionString: "mongodb://localhost:27017",
			Database:         "testdb",
		},
		Doc:    doc,
		Params: params,
	}
}

func TestGenerate_BasicMigration(t *testing.T) {
	g := testGenerator([]synth.ScriptParams{
		{
			Collection:      "orders",
			SourceTable:     "orders",
			IdentityColumns: []string{"id"},
			Batch:           synth.BatchPlan{Mode: synth.BatchKeyset, PageSize: 1000, OrderBy: []string{"id"}},
			Indexes:         []synth.IndexDef{{Name: "pk_orders", Columns: []string{"id"}, Unique: true}},
		},
	}, &docschema.Schema{Collections: []docschema.Collection{{Name: "orders"}}})

	script, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{
		"import psycopg2",
		"from pymongo import ASCENDING, MongoClient",
		`mongo = MongoClient("mongodb://localhost:27017")`,
		`collection="orders"`,
		`identity=["id"]`,
		`indexes=[("pk_orders", ["id"], True)]`,
		"batch_size=1000",
		"replace_one(flt, doc, upsert=True)",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestGenerate_EmbedsFromPreload(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "artist"},
		{Name: "album", Fields: []docschema.Field{
			{Name: "artist", Type: docschema.TypeObject, Optional: true, Fields: []docschema.Field{
				{Name: "name", Type: docschema.TypeString, Optional: true},
				{Name: "id", Type: docschema.TypeNumber, Optional: true},
			}},
		}},
	}}
	g := testGenerator([]synth.ScriptParams{
		{Collection: "artist", SourceTable: "artist", IdentityColumns: []string{"id"},
			Batch: synth.BatchPlan{Mode: synth.BatchFullScan}},
		{Collection: "album", SourceTable: "album", IdentityColumns: []string{"id"},
			Batch: synth.BatchPlan{Mode: synth.BatchFullScan}, Preload: []string{"artist"}},
	}, doc)

	script, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.Contains(script, `embeds=[("artist", "artist", ["name", "id"])]`) {
		t.Errorf("script missing embed spec:\n%s", script)
	}
	// Dependencies must be migrated before the collections that embed them.
	if strings.Index(script, `collection="artist"`) > strings.Index(script, `collection="album"`) {
		t.Error("artist must be migrated before album")
	}
}

func TestGenerate_RuntimeFlags(t *testing.T) {
	g := testGenerator([]synth.ScriptParams{
		{Collection: "t", SourceTable: "t", IdentityColumns: []string{"id"},
			Batch: synth.BatchPlan{Mode: synth.BatchFullScan},
			DryRun: true, SkipOnError: true, ProgressInterval: 500},
	}, &docschema.Schema{Collections: []docschema.Collection{{Name: "t"}}})

	script, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{"dry_run=True", "skip_on_error=True", "progress_interval=500"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}
