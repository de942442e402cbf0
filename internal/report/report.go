// Package report renders the outcome of an analysis run: the mapped
// collections, applied and skipped advisories, migration order and the
// synthesized script parameters.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/usedamru/sql2nosql/internal/advisory"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/relschema"
	"github.com/usedamru/sql2nosql/internal/synth"
)

// AnalysisReport is the full analysis outcome.
type AnalysisReport struct {
	Version     string              `json:"version"`
	GeneratedAt time.Time           `json:"generated_at"`
	Source      SourceSummary       `json:"source"`
	Collections []CollectionSummary `json:"collections"`
	Augment     AugmentSummary      `json:"augmentation"`
	Order       []string            `json:"migration_order"`
	Scripts     []ScriptSummary     `json:"scripts"`
	Errors      []string            `json:"errors,omitempty"`
}

// SourceSummary describes the relational input.
type SourceSummary struct {
	Tables      int `json:"tables"`
	ForeignKeys int `json:"foreign_keys"`
}

// CollectionSummary describes one mapped collection.
type CollectionSummary struct {
	Name       string `json:"name"`
	Fields     int    `json:"fields"`
	References int    `json:"references"`
	Embedded   int    `json:"embedded"`
}

// AugmentSummary describes the advisory merge outcome.
type AugmentSummary struct {
	Applied int           `json:"applied"`
	Skipped []SkipSummary `json:"skipped,omitempty"`
}

// SkipSummary is one rejected recommendation.
type SkipSummary struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Reason     string `json:"reason"`
}

// ScriptSummary describes one collection's synthesized parameters.
type ScriptSummary struct {
	Collection string   `json:"collection"`
	Identity   []string `json:"identity"`
	BatchMode  string   `json:"batch_mode"`
	BatchSize  int      `json:"batch_size,omitempty"`
	Indexes    int      `json:"indexes"`
	Preload    []string `json:"preload,omitempty"`
}

// Build assembles a report from the pipeline's outputs.
func Build(rel *relschema.Schema, doc *docschema.Schema, recs []advisory.Recommendation, skips []advisory.Skip, res *synth.Result) *AnalysisReport {
	r := &AnalysisReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Source: SourceSummary{
			Tables:      len(rel.Tables),
			ForeignKeys: len(rel.ForeignKeys),
		},
		Augment: AugmentSummary{
			Applied: len(recs) - len(skips),
		},
	}

	for _, c := range doc.Collections {
		cs := CollectionSummary{Name: c.Name, Fields: len(c.Fields)}
		for _, f := range c.Fields {
			switch f.Type {
			case docschema.TypeReference:
				cs.References++
			case docschema.TypeObject:
				cs.Embedded++
			}
		}
		r.Collections = append(r.Collections, cs)
	}

	for _, s := range skips {
		r.Augment.Skipped = append(r.Augment.Skipped, SkipSummary{
			Collection: s.Recommendation.Collection,
			Field:      s.Recommendation.Field,
			Reason:     s.Reason,
		})
	}

	for _, p := range res.Params {
		r.Order = append(r.Order, p.Collection)
		r.Scripts = append(r.Scripts, ScriptSummary{
			Collection: p.Collection,
			Identity:   p.IdentityColumns,
			BatchMode:  string(p.Batch.Mode),
			BatchSize:  p.Batch.PageSize,
			Indexes:    len(p.Indexes),
			Preload:    p.Preload,
		})
	}

	for _, err := range res.Errors {
		r.Errors = append(r.Errors, err.Error())
	}

	return r
}

// WriteJSON writes the report as JSON.
func WriteJSON(r *AnalysisReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*AnalysisReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &AnalysisReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteText writes the report as human-readable text.
func WriteText(r *AnalysisReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(r)), 0o644)
}

// FormatText renders the report as human-readable text.
func FormatText(r *AnalysisReport) string {
	var b strings.Builder

	b.WriteString("=== sql2nosql Analysis Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("Source:\n")
	b.WriteString(fmt.Sprintf("  Tables:       %d\n", r.Source.Tables))
	b.WriteString(fmt.Sprintf("  Foreign keys: %d\n\n", r.Source.ForeignKeys))

	b.WriteString("Collections:\n")
	for _, c := range r.Collections {
		b.WriteString(fmt.Sprintf("  %-24s %d fields, %d references, %d embedded\n",
			c.Name, c.Fields, c.References, c.Embedded))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Augmentation: %d applied, %d skipped\n", r.Augment.Applied, len(r.Augment.Skipped)))
	for _, s := range r.Augment.Skipped {
		b.WriteString(fmt.Sprintf("  [SKIP] %s.%s: %s\n", s.Collection, s.Field, s.Reason))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Migration order: %s\n\n", strings.Join(r.Order, " -> ")))

	b.WriteString("Scripts:\n")
	for _, s := range r.Scripts {
		line := fmt.Sprintf("  %-24s identity=%s batch=%s", s.Collection, strings.Join(s.Identity, ","), s.BatchMode)
		if s.BatchSize > 0 {
			line += fmt.Sprintf("(%d)", s.BatchSize)
		}
		line += fmt.Sprintf(" indexes=%d", s.Indexes)
		if len(s.Preload) > 0 {
			line += fmt.Sprintf(" preload=%s", strings.Join(s.Preload, ","))
		}
		b.WriteString(line + "\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	return b.String()
}
