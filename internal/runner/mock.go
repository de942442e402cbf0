package runner

import (
	"context"
	"reflect"

	"github.com/usedamru/sql2nosql/internal/synth"
)

// MockSource is a test double for the Source interface. Rows are served in
// the order given per table; after is matched against the identity values of
// a previously returned row.
type MockSource struct {
	Rows    map[string][]Row
	ReadErr error

	// Track calls
	Pages int
}

func (m *MockSource) ReadPage(_ context.Context, table string, orderBy []string, after []any, limit int) ([]Row, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.Pages++

	rows := m.Rows[table]
	start := 0
	if after != nil {
		for i, row := range rows {
			if reflect.DeepEqual(identityValues(orderBy, row), after) {
				start = i + 1
				break
			}
		}
	}
	if start >= len(rows) {
		return nil, nil
	}
	end := len(rows)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return rows[start:end], nil
}

// MockSink is a test double for the Sink interface.
type MockSink struct {
	Preloaded map[string][]map[string]any
	IndexErr  error
	UpsertErr func(collection string, filter map[string]any) error
	LoadErr   error
	CloseErr  error

	// Track calls
	CreatedIndexes map[string][]synth.IndexDef
	Upserts        []UpsertCall
	LoadedAll      []string
	Closed         bool
}

// UpsertCall records one Upsert invocation.
type UpsertCall struct {
	Collection string
	Filter     map[string]any
	Doc        map[string]any
}

func (m *MockSink) EnsureIndexes(_ context.Context, collection string, indexes []synth.IndexDef) error {
	if m.CreatedIndexes == nil {
		m.CreatedIndexes = make(map[string][]synth.IndexDef)
	}
	m.CreatedIndexes[collection] = append(m.CreatedIndexes[collection], indexes...)
	return m.IndexErr
}

func (m *MockSink) Upsert(_ context.Context, collection string, filter, doc map[string]any) error {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(collection, filter); err != nil {
			return err
		}
	}
	m.Upserts = append(m.Upserts, UpsertCall{Collection: collection, Filter: filter, Doc: doc})
	return nil
}

func (m *MockSink) LoadAll(_ context.Context, collection string) ([]map[string]any, error) {
	m.LoadedAll = append(m.LoadedAll, collection)
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	// Fall back to documents written earlier in the same run, so tests can
	// exercise a full multi-collection migration against the mock alone.
	if docs, ok := m.Preloaded[collection]; ok {
		return docs, nil
	}
	var docs []map[string]any
	for _, call := range m.Upserts {
		if call.Collection == collection {
			docs = append(docs, call.Doc)
		}
	}
	return docs, nil
}

func (m *MockSink) Close(_ context.Context) error {
	m.Closed = true
	return m.CloseErr
}
