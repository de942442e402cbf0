// Package depgraph orders collections so that every collection whose data is
// embedded elsewhere is migrated before the collections that embed it.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/usedamru/sql2nosql/internal/docschema"
)

// Graph is the directed embedding-dependency graph over a document schema.
// An edge A → B means collection A has an object field whose shape originates
// in collection B, so B must be written before A.
type Graph struct {
	order []string            // collection names in original schema order
	deps  map[string][]string // collection -> dependencies (deduplicated, in discovery order)
}

// CycleError reports an embedding cycle. No execution order is produced for
// a cyclic schema; the caller must surface the cycle to the operator.
type CycleError struct {
	Collections []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("embedding cycle among collections: %s", strings.Join(e.Collections, ", "))
}

// Build constructs the dependency graph from a document schema. Object-typed
// fields whose names correspond (exact/plural/singular) to another collection
// create an edge; self-references are ignored.
func Build(doc *docschema.Schema) *Graph {
	g := &Graph{deps: make(map[string][]string, len(doc.Collections))}

	names := make([]string, len(doc.Collections))
	for i := range doc.Collections {
		names[i] = doc.Collections[i].Name
	}
	g.order = names

	for i := range doc.Collections {
		c := &doc.Collections[i]
		seen := make(map[string]bool)
		for _, f := range c.Fields {
			if f.Type != docschema.TypeObject {
				continue
			}
			dep, ok := ResolveCollection(f.Name, c.Name, names)
			if !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			g.deps[c.Name] = append(g.deps[c.Name], dep)
		}
	}

	return g
}

// Dependencies returns the dependency collection names for the given
// collection, in discovery order.
func (g *Graph) Dependencies(collection string) []string {
	return g.deps[collection]
}

// Order returns a total order in which every dependency precedes its
// dependents, using Kahn's algorithm. Ties are broken by original schema
// order so the result is deterministic. A cycle yields a *CycleError and no
// order.
func (g *Graph) Order() ([]string, error) {
	pos := make(map[string]int, len(g.order))
	for i, name := range g.order {
		pos[name] = i
	}

	inDegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string)
	for _, name := range g.order {
		inDegree[name] = 0
	}
	for coll, deps := range g.deps {
		for _, dep := range deps {
			inDegree[coll]++
			dependents[dep] = append(dependents[dep], coll)
		}
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		// Original schema order breaks ties between ready collections.
		sort.Slice(queue, func(i, j int) bool { return pos[queue[i]] < pos[queue[j]] })
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, dep := range dependents[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(g.order) {
		var cycle []string
		for _, name := range g.order {
			if inDegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}
		return nil, &CycleError{Collections: cycle}
	}

	return sorted, nil
}
