package depgraph

import (
	"errors"
	"testing"

	"github.com/usedamru/sql2nosql/internal/docschema"
)

func objField(name string) docschema.Field {
	return docschema.Field{Name: name, Type: docschema.TypeObject, Optional: true,
		Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber, Optional: true}}}
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		field, collection string
		want              bool
	}{
		{"artist", "artist", true},
		{"artist", "artists", true},  // field pluralizes to collection
		{"artists", "artist", true},  // field singularizes to collection
		{"Artist", "artist", true},   // case-insensitive
		{"address", "addresses", true},
		{"category", "categories", true},
		{"artist", "album", false},
		{"art", "artist", false},
	}
	for _, tt := range tests {
		if got := MatchName(tt.field, tt.collection); got != tt.want {
			t.Errorf("MatchName(%q, %q) = %v, want %v", tt.field, tt.collection, got, tt.want)
		}
	}
}

func TestBuild_EdgesFromObjectFields(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "artist", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
		{Name: "album", Fields: []docschema.Field{
			{Name: "id", Type: docschema.TypeNumber},
			objField("artist"),
			{Name: "title", Type: docschema.TypeString},
		}},
	}}

	g := Build(doc)
	deps := g.Dependencies("album")
	if len(deps) != 1 || deps[0] != "artist" {
		t.Errorf("album deps = %v, want [artist]", deps)
	}
	if len(g.Dependencies("artist")) != 0 {
		t.Errorf("artist should have no dependencies")
	}
}

func TestBuild_IgnoresSelfReference(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "employee", Fields: []docschema.Field{objField("employee")}},
	}}
	g := Build(doc)
	if len(g.Dependencies("employee")) != 0 {
		t.Errorf("self-reference must not create an edge: %v", g.Dependencies("employee"))
	}
}

func TestOrder_DependencyPrecedesDependent(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "album", Fields: []docschema.Field{objField("artist")}},
		{Name: "artist", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
		{Name: "track", Fields: []docschema.Field{objField("album")}},
	}}

	order, err := Build(doc).Order()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := make(map[string]int)
	for i, name := range order {
		idx[name] = i
	}
	if idx["artist"] > idx["album"] {
		t.Errorf("artist must precede album: %v", order)
	}
	if idx["album"] > idx["track"] {
		t.Errorf("album must precede track: %v", order)
	}
}

func TestOrder_TiesBrokenBySchemaOrder(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "zebra", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
		{Name: "apple", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
		{Name: "mango", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
	}}

	order, err := Build(doc).Order()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v (original schema order)", order, want)
		}
	}
}

func TestOrder_CycleDetected(t *testing.T) {
	doc := &docschema.Schema{Collections: []docschema.Collection{
		{Name: "a", Fields: []docschema.Field{objField("b")}},
		{Name: "b", Fields: []docschema.Field{objField("a")}},
		{Name: "c", Fields: []docschema.Field{{Name: "id", Type: docschema.TypeNumber}}},
	}}

	order, err := Build(doc).Order()
	if err == nil {
		t.Fatalf("expected cycle error, got order %v", order)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
	members := make(map[string]bool)
	for _, name := range cycleErr.Collections {
		members[name] = true
	}
	if !members["a"] || !members["b"] {
		t.Errorf("cycle members = %v, want to include a and b", cycleErr.Collections)
	}
	if members["c"] {
		t.Errorf("c is not part of the cycle: %v", cycleErr.Collections)
	}
	if order != nil {
		t.Error("no order may be produced for a cyclic schema")
	}
}
