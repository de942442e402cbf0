// Package synth derives per-collection migration script parameters: upsert
// identity, batching plan, index set, and preload dependencies. The output is
// the terminal artifact of the analysis pipeline, consumed by script
// generation and by the reference executor.
package synth

import (
	"fmt"
	"strings"

	"github.com/usedamru/sql2nosql/internal/depgraph"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

// Options are the operator-supplied migration knobs. They are passed through
// to every collection's parameters after validation.
type Options struct {
	BatchSize        int  `yaml:"batch_size"`
	DryRun           bool `yaml:"dry_run"`
	SkipOnError      bool `yaml:"skip_on_error"`
	ProgressInterval int  `yaml:"progress_interval"`
}

// Validate rejects out-of-range knobs before synthesis starts.
func (o Options) Validate() error {
	if o.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0, got %d", o.BatchSize)
	}
	if o.ProgressInterval < 0 {
		return fmt.Errorf("progress interval must be >= 0, got %d", o.ProgressInterval)
	}
	return nil
}

// BatchMode selects between a single ordered scan and keyset pagination.
type BatchMode string

const (
	BatchFullScan BatchMode = "full_scan"
	BatchKeyset   BatchMode = "keyset"
)

// BatchPlan describes how source rows are read. OrderBy is always the
// identity columns: a strict total order, so pages neither omit nor duplicate
// rows.
type BatchPlan struct {
	Mode     BatchMode `yaml:"mode"`
	PageSize int       `yaml:"page_size,omitempty"`
	OrderBy  []string  `yaml:"order_by"`
}

// IndexDef is a target-side index to create before any writes.
type IndexDef struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// ScriptParams is the self-contained migration specification for one
// collection.
type ScriptParams struct {
	Collection       string     `yaml:"collection"`
	SourceTable      string     `yaml:"source_table"`
	IdentityColumns  []string   `yaml:"identity_columns"`
	Batch            BatchPlan  `yaml:"batch"`
	Indexes          []IndexDef `yaml:"indexes,omitempty"`
	Preload          []string   `yaml:"preload,omitempty"`
	DryRun           bool       `yaml:"dry_run"`
	SkipOnError      bool       `yaml:"skip_on_error"`
	ProgressInterval int        `yaml:"progress_interval"`
}

// UpsertFilter returns the filter shape for a row: one conjunctive entry per
// identity column. The filter selects at most one document per source row and
// is stable across re-runs because it is built only from natural keys.
func (p *ScriptParams) UpsertFilter(row map[string]any) map[string]any {
	filter := make(map[string]any, len(p.IdentityColumns))
	for _, col := range p.IdentityColumns {
		filter[col] = row[col]
	}
	return filter
}

// IdentityError reports a collection that cannot be safely upserted because
// it has no declared primary key and no id-like column. The system never
// invents a surrogate identity.
type IdentityError struct {
	Collection string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("collection %q has no identifiable natural key", e.Collection)
}

// Result pairs the synthesized parameters (in dependency order) with any
// per-collection failures. A failed collection is reported and excluded; the
// rest of the run proceeds unless the caller chooses fail-fast.
type Result struct {
	Params []ScriptParams
	Errors []error
}

// Synthesize computes migration parameters for every collection of the
// document schema, in dependency order. A cyclic schema fails the whole run.
func Synthesize(rel *relschema.Schema, doc *docschema.Schema, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	graph := depgraph.Build(doc)
	order, err := graph.Order()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, name := range order {
		params, err := forCollection(rel, graph, name, opts)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Params = append(res.Params, *params)
	}
	return res, nil
}

func forCollection(rel *relschema.Schema, graph *depgraph.Graph, name string, opts Options) (*ScriptParams, error) {
	t := rel.Table(name)
	if t == nil {
		return nil, fmt.Errorf("collection %q has no source table in the relational schema", name)
	}

	identity, ok := t.IdentityColumns()
	if !ok {
		return nil, &IdentityError{Collection: name}
	}

	batch := BatchPlan{Mode: BatchFullScan, OrderBy: identity}
	if opts.BatchSize > 0 {
		batch = BatchPlan{Mode: BatchKeyset, PageSize: opts.BatchSize, OrderBy: identity}
	}

	return &ScriptParams{
		Collection:       name,
		SourceTable:      t.Name,
		IdentityColumns:  identity,
		Batch:            batch,
		Indexes:          indexSet(t),
		Preload:          graph.Dependencies(name),
		DryRun:           opts.DryRun,
		SkipOnError:      opts.SkipOnError,
		ProgressInterval: opts.ProgressInterval,
	}, nil
}

// indexSet derives the target indexes: a unique index per primary key and one
// per unique constraint (column-level unique flags count as single-column
// constraints). Deduplicated by column set.
func indexSet(t *relschema.Table) []IndexDef {
	var defs []IndexDef
	seen := make(map[string]bool)

	add := func(name string, cols []string) {
		key := strings.Join(cols, ",")
		if seen[key] || len(cols) == 0 {
			return
		}
		seen[key] = true
		defs = append(defs, IndexDef{Name: name, Columns: cols, Unique: true})
	}

	if len(t.PrimaryKey) > 0 {
		add(fmt.Sprintf("pk_%s", t.Name), t.PrimaryKey)
	}
	for _, group := range t.UniqueConstraints {
		add(fmt.Sprintf("uq_%s_%s", t.Name, strings.Join(group, "_")), group)
	}
	for _, col := range t.Columns {
		if col.Unique {
			add(fmt.Sprintf("uq_%s_%s", t.Name, col.Name), []string{col.Name})
		}
	}
	return defs
}
