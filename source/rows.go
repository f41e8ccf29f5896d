package source

import (
	"context"

	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// RowsReader serves in-memory rows.
type RowsReader struct {
	name string
	rows []schema.Row
	opts Options
}

// Rows returns a source over rows named name. Each Open serves copies.
func Rows(name string, rows []schema.Row, opts ...Option) *RowsReader {
	return &RowsReader{name: name, rows: rows, opts: newOptions(opts)}
}

// Open implements Source.
func (r *RowsReader) Open(context.Context) (*schema.Resource, schema.RowIterator, error) {
	out := make([]schema.Row, len(r.rows))
	for i, row := range r.rows {
		out[i] = row.Clone()
	}
	res := r.opts.resource(r.name, "", "")
	return res, r.opts.rows(res.Name, pipeline.FromSlice(out)), nil
}
