package relschema

import (
	"path/filepath"
	"strings"
	"testing"
)

func musicSchema() *Schema {
	return &Schema{
		Tables: []Table{
			{
				Name: "artist",
				Columns: []Column{
					{Name: "id", Type: TypeInteger, PrimaryKey: true},
					{Name: "name", Type: TypeVarchar},
				},
				PrimaryKey: []string{"id"},
			},
			{
				Name: "album",
				Columns: []Column{
					{Name: "id", Type: TypeInteger, PrimaryKey: true},
					{Name: "title", Type: TypeText},
					{Name: "artist_id", Type: TypeInteger, Nullable: true},
				},
				PrimaryKey: []string{"id"},
			},
		},
		ForeignKeys: []ForeignKey{
			{
				Name:         "fk_album_artist",
				SourceTable:  "album",
				SourceColumn: "artist_id",
				TargetTable:  "artist",
				TargetColumn: "id",
				Cardinality:  CardinalityOneToMany,
			},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := musicSchema().Validate(); err != nil {
		t.Fatalf("valid schema rejected: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Schema)
		wantErr string
	}{
		{
			name:    "duplicate table",
			mutate:  func(s *Schema) { s.Tables = append(s.Tables, Table{Name: "artist"}) },
			wantErr: "duplicate table",
		},
		{
			name:    "phantom primary key column",
			mutate:  func(s *Schema) { s.Tables[0].PrimaryKey = []string{"nope"} },
			wantErr: "primary key column",
		},
		{
			name:    "phantom unique constraint column",
			mutate:  func(s *Schema) { s.Tables[0].UniqueConstraints = [][]string{{"nope"}} },
			wantErr: "unique constraint column",
		},
		{
			name:    "foreign key to missing table",
			mutate:  func(s *Schema) { s.ForeignKeys[0].TargetTable = "nowhere" },
			wantErr: "target table",
		},
		{
			name:    "foreign key from missing column",
			mutate:  func(s *Schema) { s.ForeignKeys[0].SourceColumn = "ghost" },
			wantErr: "source column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := musicSchema()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestForeignKeyFor(t *testing.T) {
	s := musicSchema()
	fk := s.ForeignKeyFor("album", "artist_id")
	if fk == nil {
		t.Fatal("expected foreign key for album.artist_id")
	}
	if fk.TargetTable != "artist" {
		t.Errorf("target table = %q, want artist", fk.TargetTable)
	}
	if s.ForeignKeyFor("album", "title") != nil {
		t.Error("expected no foreign key for album.title")
	}
}

func TestIdentityColumns(t *testing.T) {
	s := musicSchema()

	cols, ok := s.Table("album").IdentityColumns()
	if !ok || len(cols) != 1 || cols[0] != "id" {
		t.Errorf("album identity = %v, %v; want [id], true", cols, ok)
	}

	// Composite PK is preserved in declared order.
	lines := Table{
		Name: "order_lines",
		Columns: []Column{
			{Name: "order_id", Type: TypeInteger},
			{Name: "line_no", Type: TypeInteger},
		},
		PrimaryKey: []string{"order_id", "line_no"},
	}
	cols, ok = lines.IdentityColumns()
	if !ok || len(cols) != 2 || cols[0] != "order_id" || cols[1] != "line_no" {
		t.Errorf("composite identity = %v, want [order_id line_no]", cols)
	}

	// No PK: fall back to the first id-like column.
	logs := Table{
		Name: "audit_log",
		Columns: []Column{
			{Name: "message", Type: TypeText},
			{Name: "entry_id", Type: TypeBigint},
		},
	}
	cols, ok = logs.IdentityColumns()
	if !ok || len(cols) != 1 || cols[0] != "entry_id" {
		t.Errorf("fallback identity = %v, want [entry_id]", cols)
	}

	// Neither PK nor id-like column.
	bare := Table{Name: "notes", Columns: []Column{{Name: "body", Type: TypeText}}}
	if _, ok := bare.IdentityColumns(); ok {
		t.Error("expected no identity for table without PK or id-like column")
	}
}

func TestIsIDLike(t *testing.T) {
	for name, want := range map[string]bool{
		"id":        true,
		"artist_id": true,
		"UserID":    true,
		"title":     false,
		"name":      false,
	} {
		if got := IsIDLike(name); got != want {
			t.Errorf("IsIDLike(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWriteAndLoadYAML(t *testing.T) {
	s := musicSchema()
	path := filepath.Join(t.TempDir(), "schema.yaml")

	if err := s.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	loaded, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(loaded.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(loaded.Tables))
	}
	if loaded.Tables[1].Columns[2].Name != "artist_id" {
		t.Errorf("column order not preserved: %v", loaded.Tables[1].Columns)
	}
	if len(loaded.ForeignKeys) != 1 || loaded.ForeignKeys[0].Cardinality != CardinalityOneToMany {
		t.Errorf("foreign key round trip failed: %+v", loaded.ForeignKeys)
	}
}

func TestLoadYAML_RejectsInvalid(t *testing.T) {
	s := musicSchema()
	s.Tables[0].PrimaryKey = []string{"ghost"}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := s.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if _, err := LoadYAML(path); err == nil {
		t.Fatal("expected invalid schema to be rejected at load")
	}
}
