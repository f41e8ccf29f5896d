package flow

import (
	"context"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

func emptyRows() schema.RowIterator { return pipeline.Empty[schema.Row]() }

// memStore is an in-memory CheckpointStore.
type memStore struct {
	records map[string]memRecord
	saves   int
}

type memRecord struct {
	pkg  *schema.Package
	rows [][]schema.Row
}

func (m *memStore) Exists(_ context.Context, name string) (bool, error) {
	_, ok := m.records[name]
	return ok, nil
}

func (m *memStore) Save(ctx context.Context, name string, pkg *schema.Package, streams []schema.RowIterator) error {
	rec := memRecord{pkg: pkg.Clone(), rows: make([][]schema.Row, len(streams))}
	for i, it := range streams {
		rows, err := pipeline.Collect(ctx, it)
		if err != nil {
			return err
		}
		rec.rows[i] = rows
	}
	if m.records == nil {
		m.records = map[string]memRecord{}
	}
	m.records[name] = rec
	m.saves++
	return nil
}

func (m *memStore) Load(_ context.Context, name string) (*schema.Package, []schema.RowIterator, error) {
	rec, ok := m.records[name]
	if !ok {
		return nil, nil, errors.NotFound("checkpoint", name)
	}
	streams := make([]schema.RowIterator, len(rec.rows))
	for i, rows := range rec.rows {
		cp := make([]schema.Row, len(rows))
		for j, r := range rows {
			cp[j] = r.Clone()
		}
		streams[i] = pipeline.FromSlice(cp)
	}
	return rec.pkg.Clone(), streams, nil
}
