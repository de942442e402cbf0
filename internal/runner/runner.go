// Package runner is the reference implementation of the migration runtime
// contract: ordered, batched, idempotent movement of rows into document
// collections, driven entirely by synthesized script parameters.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/usedamru/sql2nosql/internal/depgraph"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/synth"
)

// Row is one source row keyed by column name.
type Row map[string]any

// Source reads source rows under a strict total order on the identity
// columns, so repeated page reads neither omit nor duplicate rows.
type Source interface {
	// ReadPage returns up to limit rows of table strictly after the given
	// identity values, ordered by orderBy. A nil after starts from the
	// beginning; limit <= 0 means unbounded.
	ReadPage(ctx context.Context, table string, orderBy []string, after []any, limit int) ([]Row, error)
}

// Sink writes documents to the destination store.
type Sink interface {
	EnsureIndexes(ctx context.Context, collection string, indexes []synth.IndexDef) error
	Upsert(ctx context.Context, collection string, filter, doc map[string]any) error
	LoadAll(ctx context.Context, collection string) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// Summary is the per-collection outcome.
type Summary struct {
	Collection string
	Attempted  int
	Succeeded  int
	Skipped    int
}

// Executor runs migrations collection by collection, in the dependency order
// baked into the parameter list. Collections are processed strictly
// sequentially: a later collection's preload must observe the fully-written
// state of its dependencies.
type Executor struct {
	Source Source
	Sink   Sink
	Doc    *docschema.Schema
	Logger *slog.Logger
}

// Run executes every collection's parameters in order. Row-level failures
// are governed by each collection's error policy; a fail-fast row error
// aborts the run. Re-running with unchanged source data produces no net
// change because every write is an upsert by natural identity.
func (e *Executor) Run(ctx context.Context, plans []synth.ScriptParams) ([]Summary, error) {
	identityByCollection := make(map[string][]string, len(plans))
	for i := range plans {
		identityByCollection[plans[i].Collection] = plans[i].IdentityColumns
	}

	summaries := make([]Summary, 0, len(plans))
	for i := range plans {
		summary, err := e.runCollection(ctx, &plans[i], identityByCollection)
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

func (e *Executor) runCollection(ctx context.Context, p *synth.ScriptParams, identityByCollection map[string][]string) (Summary, error) {
	summary := Summary{Collection: p.Collection}

	// Indexes are created before any writes; index creation is itself a
	// write, so dry-run skips it too.
	if !p.DryRun && len(p.Indexes) > 0 {
		if err := e.Sink.EnsureIndexes(ctx, p.Collection, p.Indexes); err != nil {
			return summary, fmt.Errorf("creating indexes for %s: %w", p.Collection, err)
		}
	}

	preloaded, err := e.preload(ctx, p, identityByCollection)
	if err != nil {
		return summary, err
	}

	coll := e.Doc.Collection(p.Collection)

	var after []any
	limit := p.Batch.PageSize
	if p.Batch.Mode == synth.BatchFullScan {
		limit = 0
	}

	for {
		rows, err := e.Source.ReadPage(ctx, p.SourceTable, p.Batch.OrderBy, after, limit)
		if err != nil {
			return summary, fmt.Errorf("reading %s: %w", p.SourceTable, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			summary.Attempted++
			if err := e.writeRow(ctx, p, coll, row, preloaded); err != nil {
				if !p.SkipOnError {
					return summary, fmt.Errorf("collection %s row %v: %w", p.Collection, p.UpsertFilter(row), err)
				}
				summary.Skipped++
				e.Logger.Warn("row skipped",
					"collection", p.Collection,
					"identity", p.UpsertFilter(row),
					"error", err)
				continue
			}
			summary.Succeeded++

			if p.ProgressInterval > 0 && summary.Attempted%p.ProgressInterval == 0 {
				e.Logger.Info("migration progress",
					"collection", p.Collection,
					"attempted", summary.Attempted,
					"succeeded", summary.Succeeded,
					"skipped", summary.Skipped)
			}
		}

		if p.Batch.Mode == synth.BatchFullScan {
			break
		}
		after = identityValues(p.IdentityColumns, rows[len(rows)-1])
		if len(rows) < limit {
			break
		}
	}

	e.Logger.Info("collection complete",
		"collection", p.Collection,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"dry_run", p.DryRun)

	return summary, nil
}

// preload loads every dependency collection's already-written documents into
// memory, indexed by identity key, before any of this collection's rows are
// processed.
func (e *Executor) preload(ctx context.Context, p *synth.ScriptParams, identityByCollection map[string][]string) (map[string]map[string]map[string]any, error) {
	if len(p.Preload) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]map[string]any, len(p.Preload))
	for _, dep := range p.Preload {
		identity := identityByCollection[dep]
		if len(identity) == 0 {
			return nil, fmt.Errorf("preload %s for %s: dependency has no synthesized identity", dep, p.Collection)
		}
		docs, err := e.Sink.LoadAll(ctx, dep)
		if err != nil {
			return nil, fmt.Errorf("preloading %s for %s: %w", dep, p.Collection, err)
		}
		indexed := make(map[string]map[string]any, len(docs))
		for _, doc := range docs {
			indexed[identityKey(identity, doc)] = doc
		}
		out[dep] = indexed
	}
	return out, nil
}

// writeRow builds the target document for one row and upserts it. Every step
// except the write itself also runs under dry-run.
func (e *Executor) writeRow(ctx context.Context, p *synth.ScriptParams, coll *docschema.Collection, row Row, preloaded map[string]map[string]map[string]any) error {
	for _, col := range p.IdentityColumns {
		if v, ok := row[col]; !ok || v == nil {
			return fmt.Errorf("row is missing identity column %q", col)
		}
	}

	doc := buildDocument(coll, row, p.Preload, preloaded)

	if p.DryRun {
		return nil
	}
	return e.Sink.Upsert(ctx, p.Collection, p.UpsertFilter(row), doc)
}

// buildDocument copies row values and fills embedded object fields from
// preloaded dependency documents. An embedded field's source document is
// found through the row's FK-ish column (<field>_id or <field>id); a missing
// dependency document leaves the field absent, since embedded data is
// declared optional.
func buildDocument(coll *docschema.Collection, row Row, preloadNames []string, preloaded map[string]map[string]map[string]any) map[string]any {
	doc := make(map[string]any, len(row))
	for k, v := range row {
		doc[k] = v
	}
	if coll == nil || len(preloaded) == 0 {
		return doc
	}

	for _, f := range coll.Fields {
		if f.Type != docschema.TypeObject || len(f.Fields) == 0 {
			continue
		}
		dep, ok := depgraph.ResolveCollection(f.Name, coll.Name, preloadNames)
		if !ok {
			continue
		}
		key, ok := embedKey(f.Name, row)
		if !ok {
			continue
		}
		source, ok := preloaded[dep][key]
		if !ok {
			continue
		}
		embedded := make(map[string]any, len(f.Fields))
		for _, nf := range f.Fields {
			if v, ok := source[nf.Name]; ok {
				embedded[nf.Name] = v
			}
		}
		doc[f.Name] = embedded
	}
	return doc
}

// embedKey finds the row value that identifies the embedded document, via
// the <field>_id / <field>id column naming convention.
func embedKey(field string, row Row) (string, bool) {
	for _, candidate := range []string{field + "_id", field + "id"} {
		for col, v := range row {
			if strings.EqualFold(col, candidate) && v != nil {
				return fmt.Sprint(v), true
			}
		}
	}
	return "", false
}

func identityValues(cols []string, row Row) []any {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = row[c]
	}
	return vals
}

// identityKey builds the in-memory preload key for a document: its identity
// values joined in column order.
func identityKey(cols []string, doc map[string]any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(doc[c])
	}
	return strings.Join(parts, "\x1f")
}
