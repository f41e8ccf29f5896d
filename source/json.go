package source

import (
	"bufio"
	"context"
	"io"
	"path"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// JSONReader reads a JSON array of objects, or JSON lines, from storage.
type JSONReader struct {
	storage storage.Storage
	path    string
	opts    Options
}

// JSON returns a reader for the JSON object at path.
func JSON(st storage.Storage, p string, opts ...Option) *JSONReader {
	o := newOptions(opts)
	switch strings.ToLower(path.Ext(p)) {
	case ".jsonl", ".ndjson":
		o.Lines = true
	}
	return &JSONReader{storage: st, path: p, opts: o}
}

// Open implements Source. The object is downloaded on the first pull.
func (r *JSONReader) Open(context.Context) (*schema.Resource, schema.RowIterator, error) {
	res := r.opts.resource(baseName(r.path), r.path, "json")
	it := pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
		rc, err := download(ctx, r.storage, r.path, r.opts)
		if err != nil {
			return nil, err
		}
		return ReadJSON(rc, r.opts.Lines)
	})
	return res, r.opts.rows(res.Name, it), nil
}

// ReadJSON streams rows from rc, which is closed with the iterator. Numbers
// are kept as json.Number so that no precision is lost before casting.
func ReadJSON(rc io.ReadCloser, lines bool) (schema.RowIterator, error) {
	if lines {
		dec := json.NewDecoder(bufio.NewReader(rc))
		dec.UseNumber()
		line := 0
		return pipeline.FromFunc(func(ctx context.Context) (schema.Row, bool, error) {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			var row schema.Row
			if err := dec.Decode(&row); err != nil {
				if err == io.EOF {
					return nil, false, nil
				}
				return nil, false, errors.InvalidInput("json", err.Error()).WithDetail(errors.DetailRow, line)
			}
			line++
			return row, true, nil
		}, rc.Close), nil
	}

	defer rc.Close()
	dec := json.NewDecoder(bufio.NewReader(rc))
	dec.UseNumber()
	var rows []schema.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, errors.InvalidInput("json", "expected an array of objects: "+err.Error())
	}
	return pipeline.FromSlice(rows), nil
}
