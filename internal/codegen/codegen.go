// Package codegen produces standalone Python migration scripts from
// synthesized parameters. The generated script implements the same runtime
// contract as the built-in runner, for teams that execute migrations outside
// this tool.
package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/usedamru/sql2nosql/internal/config"
	"github.com/usedamru/sql2nosql/internal/depgraph"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/synth"
)

// Generator produces the Python migration script.
type Generator struct {
	Source *config.SourceConfig
	Target *config.TargetConfig
	Doc    *docschema.Schema
	Params []synth.ScriptParams
}

// Generate renders the migration script for every collection's parameters,
// in the order given.
func (g *Generator) Generate() (string, error) {
	tmpl, err := template.New("migration").Parse(migrationTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, g.buildTemplateData()); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

type templateData struct {
	SourceDSN     string
	MongoURI      string
	MongoDatabase string
	Identities    string // python dict literal: collection -> identity columns
	Collections   []collectionData
}

type collectionData struct {
	Name             string
	SourceTable      string
	Identity         string // python list literal
	Indexes          string // python list of (name, columns, unique)
	BatchSize        int
	Preload          string // python list literal
	Embeds           string // python list of (field, dep, nested fields)
	DryRun           string
	SkipOnError      string
	ProgressInterval int
}

func (g *Generator) buildTemplateData() templateData {
	identities := make([]string, 0, len(g.Params))
	collections := make([]collectionData, 0, len(g.Params))

	for _, p := range g.Params {
		identities = append(identities, fmt.Sprintf("%s: %s", pyStr(p.Collection), pyStrList(p.IdentityColumns)))

		indexes := make([]string, 0, len(p.Indexes))
		for _, idx := range p.Indexes {
			indexes = append(indexes, fmt.Sprintf("(%s, %s, %s)",
				pyStr(idx.Name), pyStrList(idx.Columns), pyBool(idx.Unique)))
		}

		collections = append(collections, collectionData{
			Name:             p.Collection,
			SourceTable:      p.SourceTable,
			Identity:         pyStrList(p.IdentityColumns),
			Indexes:          "[" + strings.Join(indexes, ", ") + "]",
			BatchSize:        p.Batch.PageSize,
			Preload:          pyStrList(p.Preload),
			Embeds:           g.buildEmbeds(&p),
			DryRun:           pyBool(p.DryRun),
			SkipOnError:      pyBool(p.SkipOnError),
			ProgressInterval: p.ProgressInterval,
		})
	}

	return templateData{
		SourceDSN:     g.Source.ConnString(),
		MongoURI:      g.Target.ConnectionString,
		MongoDatabase: g.Target.Database,
		Identities:    "{" + strings.Join(identities, ", ") + "}",
		Collections:   collections,
	}
}

// buildEmbeds lists the object fields of a collection that are filled from a
// preloaded dependency, with the nested field names to copy.
func (g *Generator) buildEmbeds(p *synth.ScriptParams) string {
	coll := g.Doc.Collection(p.Collection)
	if coll == nil || len(p.Preload) == 0 {
		return "[]"
	}

	var embeds []string
	for _, f := range coll.Fields {
		if f.Type != docschema.TypeObject || len(f.Fields) == 0 {
			continue
		}
		dep, ok := depgraph.ResolveCollection(f.Name, coll.Name, p.Preload)
		if !ok {
			continue
		}
		nested := make([]string, 0, len(f.Fields))
		for _, nf := range f.Fields {
			nested = append(nested, nf.Name)
		}
		embeds = append(embeds, fmt.Sprintf("(%s, %s, %s)",
			pyStr(f.Name), pyStr(dep), pyStrList(nested)))
	}
	return "[" + strings.Join(embeds, ", ") + "]"
}

func pyStr(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func pyStrList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyStr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

var migrationTemplate = `"""
sql2nosql Migration Script
Generated by sql2nosql -- https://github.com/usedamru/sql2nosql

Source: PostgreSQL
Target: MongoDB ({{ .MongoDatabase }})
"""
import sys

import psycopg2
import psycopg2.extras
from pymongo import ASCENDING, MongoClient

pg = psycopg2.connect("{{ .SourceDSN }}")
mongo = MongoClient("{{ .MongoURI }}")
db = mongo["{{ .MongoDatabase }}"]

IDENTITIES = {{ .Identities }}


def create_indexes(collection, indexes):
    for name, columns, unique in indexes:
        db[collection].create_index(
            [(c, ASCENDING) for c in columns], name=name, unique=unique
        )


def load_collection(collection):
    identity = IDENTITIES[collection]
    return {
        tuple(str(doc.get(c)) for c in identity): doc
        for doc in db[collection].find({}, {"_id": 0})
    }


def read_page(table, order_by, after, limit):
    cols = ", ".join('"%s"' % c for c in order_by)
    sql = 'SELECT * FROM "%s"' % table
    params = []
    if after is not None:
        sql += " WHERE (%s) > (%s)" % (cols, ", ".join(["%s"] * len(after)))
        params = list(after)
    sql += " ORDER BY %s" % cols
    if limit:
        sql += " LIMIT %d" % limit
    with pg.cursor(cursor_factory=psycopg2.extras.RealDictCursor) as cur:
        cur.execute(sql, params)
        return cur.fetchall()


def build_document(row, deps, embeds):
    doc = dict(row)
    for field, dep, fields in embeds:
        value = row.get(field + "_id", row.get(field + "id"))
        if value is None:
            continue
        source = deps[dep].get((str(value),))
        if source is None:
            continue
        doc[field] = {f: source[f] for f in fields if f in source}
    return doc


def migrate(
    collection,
    table,
    identity,
    indexes,
    batch_size,
    preload,
    embeds,
    dry_run,
    skip_on_error,
    progress_interval,
):
    if not dry_run:
        create_indexes(collection, indexes)
    deps = {dep: load_collection(dep) for dep in preload}

    attempted = succeeded = skipped = 0
    after = None
    while True:
        rows = read_page(table, identity, after, batch_size)
        if not rows:
            break
        for row in rows:
            attempted += 1
            try:
                flt = {c: row.get(c) for c in identity}
                if any(v is None for v in flt.values()):
                    raise ValueError("row is missing an identity column")
                doc = build_document(row, deps, embeds)
                if not dry_run:
                    db[collection].replace_one(flt, doc, upsert=True)
                succeeded += 1
            except Exception as exc:
                if not skip_on_error:
                    raise
                skipped += 1
                print(
                    "%s: skipped row %s: %s" % (collection, flt, exc),
                    file=sys.stderr,
                )
            if progress_interval and attempted % progress_interval == 0:
                print(
                    "%s: %d attempted, %d succeeded, %d skipped"
                    % (collection, attempted, succeeded, skipped)
                )
        if not batch_size or len(rows) < batch_size:
            break
        after = tuple(rows[-1][c] for c in identity)

    print(
        "%s complete: %d attempted, %d succeeded, %d skipped"
        % (collection, attempted, succeeded, skipped)
    )

{{ range .Collections }}
migrate(
    collection="{{ .Name }}",
    table="{{ .SourceTable }}",
    identity={{ .Identity }},
    indexes={{ .Indexes }},
    batch_size={{ .BatchSize }},
    preload={{ .Preload }},
    embeds={{ .Embeds }},
    dry_run={{ .DryRun }},
    skip_on_error={{ .SkipOnError }},
    progress_interval={{ .ProgressInterval }},
)
{{ end }}
print("Migration complete.")
pg.close()
mongo.close()
`
