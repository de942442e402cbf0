package docschema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FieldType is the document-side type of a field. The Fields payload on a
// Field is only meaningful for TypeObject; construction helpers and the
// mapper keep that convention.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeObject    FieldType = "object"
	TypeArray     FieldType = "array"
	TypeReference FieldType = "reference"
	TypeUnknown   FieldType = "unknown"
)

// Field is a single document field.
type Field struct {
	Name          string    `yaml:"name"`
	Type          FieldType `yaml:"type"`
	Optional      bool      `yaml:"optional,omitempty"`
	Description   string    `yaml:"description,omitempty"`
	RefCollection string    `yaml:"ref_collection,omitempty"`
	Fields        []Field   `yaml:"fields,omitempty"` // populated only for object fields
}

// Collection is a target collection. Field names are unique within a
// collection; the mapper and merger maintain that invariant.
type Collection struct {
	Name        string  `yaml:"name"`
	Fields      []Field `yaml:"fields"`
	Description string  `yaml:"description,omitempty"`
}

// Schema is the document-side model. Every pipeline stage that changes a
// Schema returns a new value; no stage mutates a Schema it did not construct,
// so the deterministic baseline stays available for comparison.
type Schema struct {
	Collections []Collection `yaml:"collections"`
}

// Field returns the named field, or nil.
func (c *Collection) Field(name string) *Field {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

// Collection returns the named collection, or nil.
func (s *Schema) Collection(name string) *Collection {
	for i := range s.Collections {
		if s.Collections[i].Name == name {
			return &s.Collections[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.Fields != nil {
		out.Fields = make([]Field, len(f.Fields))
		for i := range f.Fields {
			out.Fields[i] = f.Fields[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := c
	out.Fields = make([]Field, len(c.Fields))
	for i := range c.Fields {
		out.Fields[i] = c.Fields[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{Collections: make([]Collection, len(s.Collections))}
	for i := range s.Collections {
		out.Collections[i] = s.Collections[i].Clone()
	}
	return out
}

// WriteYAML writes the schema to a YAML file.
func (s *Schema) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling document schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a document schema from a YAML file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document schema: %w", err)
	}
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing document schema: %w", err)
	}
	return s, nil
}
