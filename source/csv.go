package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// CSVReader reads a CSV object from storage. Values are strings; the flow
// casts them against the resource schema.
type CSVReader struct {
	storage storage.Storage
	path    string
	opts    Options
}

// CSV returns a reader for the CSV object at path.
func CSV(st storage.Storage, path string, opts ...Option) *CSVReader {
	return &CSVReader{storage: st, path: path, opts: newOptions(opts)}
}

// Open implements Source. The object is downloaded on the first pull.
func (r *CSVReader) Open(context.Context) (*schema.Resource, schema.RowIterator, error) {
	res := r.opts.resource(baseName(r.path), r.path, "csv")
	it := pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
		rc, err := download(ctx, r.storage, r.path, r.opts)
		if err != nil {
			return nil, err
		}
		return ReadCSV(rc, r.opts)
	})
	return res, r.opts.rows(res.Name, it), nil
}

// ReadCSV streams rows from rc, which is closed with the iterator. The first
// record is the header unless opts.Headers is set.
func ReadCSV(rc io.ReadCloser, opts Options) (schema.RowIterator, error) {
	cr := csv.NewReader(bufio.NewReader(rc))
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1

	header := opts.Headers
	if len(header) == 0 {
		rec, err := cr.Read()
		switch {
		case err == io.EOF:
			header = nil
		case err != nil:
			_ = rc.Close()
			return nil, errors.InvalidInput("header", err.Error())
		default:
			header = rec
		}
	}

	line := 0
	return pipeline.FromFunc(func(ctx context.Context) (schema.Row, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, errors.InvalidInput("csv", err.Error()).WithDetail(errors.DetailRow, line)
		}
		line++
		row := make(schema.Row, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		return row, true, nil
	}, rc.Close), nil
}
