package sink

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/database"
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// DumpToSQL writes every resource to its own table as the rows stream
// through. Rows are inserted in batches of opts.BatchSize, one transaction
// per batch, and are passed on once their batch is committed.
func DumpToSQL(db *database.DB, opts SQLOptions) flow.Step {
	opts.ApplyDefaults()
	return flow.PackageStep(&sqlDumper{
		db:   db,
		opts: opts,
		log:  logger.Get("sink"),
	}).Named(NameSQL)
}

type sqlDumper struct {
	db   *database.DB
	opts SQLOptions
	log  *logger.Logger

	mu      sync.Mutex
	dataset string
	pending int
	rows    int64
}

func (d *sqlDumper) Describe(_ context.Context, pkg *schema.Package) error {
	if err := d.opts.Validate(); err != nil {
		return err
	}
	seen := make(map[string]string, pkg.Len())
	for _, res := range pkg.Resources() {
		table := d.opts.table(res.Name)
		if other, ok := seen[table]; ok {
			return errors.DuplicateName("table", table).WithDetail("resources", []string{other, res.Name})
		}
		seen[table] = res.Name
	}
	return nil
}

func (d *sqlDumper) Process(ctx context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	streams, err := in.PassThrough(pkg)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.dataset, d.pending, d.rows = pkg.Name, pkg.Len(), 0
	d.mu.Unlock()

	caster := flow.CasterFrom(ctx)
	out := make([]schema.RowIterator, len(streams))
	for i, res := range pkg.Resources() {
		t := &tableWriter{dumper: d, res: res, table: d.opts.table(res.Name), caster: caster}
		batches := pipeline.Tap(pipeline.Batch(streams[i], d.opts.BatchSize, d.opts.BatchTimeout), t.write)
		rows := pipeline.FlatMap(batches, func(_ context.Context, b []schema.Row) (schema.RowIterator, error) {
			return pipeline.FromSlice(b), nil
		})
		out[i] = &tableIter{RowIterator: rows, t: t}
	}
	return out, nil
}

// Summary implements flow.Summarizer once every table is complete.
func (d *sqlDumper) Summary() (flow.SinkSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != 0 {
		return flow.SinkSummary{}, false
	}
	return flow.SinkSummary{
		Sink:     NameSQL,
		Dataset:  d.dataset,
		Location: d.db.Driver(),
		Rows:     d.rows,
	}, true
}

func (d *sqlDumper) complete(rows int64) {
	d.mu.Lock()
	d.rows += rows
	d.pending--
	d.mu.Unlock()
}

// tableWriter owns the table of one resource during a run.
type tableWriter struct {
	dumper   *sqlDumper
	res      *schema.Resource
	table    string
	caster   *cast.Caster
	prepared bool
	rows     int64
}

func (t *tableWriter) columns() []database.Column {
	driver := t.dumper.db.Driver()
	pk := make(map[string]bool)
	for _, k := range t.res.Schema.PrimaryKey() {
		pk[k] = true
	}
	cols := make([]database.Column, t.res.Schema.Len())
	for i := range cols {
		f := t.res.Schema.At(i)
		cols[i] = database.Column{Name: f.Name, Type: columnType(driver, f.EffectiveType(), pk[f.Name])}
	}
	return cols
}

func (t *tableWriter) prepare(tx *gorm.DB) error {
	if t.prepared {
		return nil
	}
	return database.EnsureTable(tx, t.table, t.columns(), t.res.Schema.PrimaryKey(), t.dumper.opts.Mode == ModeReplace)
}

func (t *tableWriter) write(ctx context.Context, batch []schema.Row) error {
	values := make([]map[string]any, len(batch))
	for i, row := range batch {
		v, err := t.values(row)
		if err != nil {
			return err
		}
		values[i] = v
	}
	err := t.dumper.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := t.prepare(tx); err != nil {
			return err
		}
		return database.Insert(tx, t.table, values)
	})
	if err != nil {
		return err
	}
	t.prepared = true
	t.rows += int64(len(batch))
	return nil
}

// end creates the table of an empty resource and records the result.
func (t *tableWriter) end(ctx context.Context) error {
	if !t.prepared {
		if err := t.dumper.db.WithTransaction(ctx, t.prepare); err != nil {
			return err
		}
		t.prepared = true
	}
	t.dumper.complete(t.rows)
	t.dumper.log.WithContext(ctx).Info("table written", logger.Fields(
		"table", t.table, logger.FieldResource, t.res.Name, logger.FieldRows, t.rows,
	))
	return nil
}

// values converts a row to column values. Fields outside the schema are
// dropped; missing fields are NULL.
func (t *tableWriter) values(row schema.Row) (map[string]any, error) {
	sch := t.res.Schema
	out := make(map[string]any, sch.Len())
	for i := 0; i < sch.Len(); i++ {
		f := sch.At(i)
		v, err := sqlValue(t.caster, *f, row[f.Name])
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func sqlValue(c *cast.Caster, f schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.EffectiveType() {
	case schema.TypeString, schema.TypeInteger, schema.TypeYear, schema.TypeBoolean, schema.TypeDatetime:
		return v, nil
	case schema.TypeArray, schema.TypeObject:
		data, err := json.Marshal(cast.JSONValue(v))
		return string(data), err
	case schema.TypeAny:
		switch v.(type) {
		case []any, map[string]any:
			data, err := json.Marshal(cast.JSONValue(v))
			return string(data), err
		}
		return v, nil
	}
	return c.Serialize(f, v)
}

// columnType maps a field type to a column type of driver.
func columnType(driver string, t schema.FieldType, key bool) string {
	switch driver {
	case database.DriverPostgres:
		switch t {
		case schema.TypeInteger:
			return "BIGINT"
		case schema.TypeNumber:
			return "NUMERIC"
		case schema.TypeBoolean:
			return "BOOLEAN"
		case schema.TypeDate:
			return "DATE"
		case schema.TypeDatetime:
			return "TIMESTAMPTZ"
		case schema.TypeTime:
			return "TIME"
		case schema.TypeYear:
			return "INTEGER"
		case schema.TypeArray, schema.TypeObject:
			return "JSONB"
		}
		return "TEXT"
	case database.DriverMySQL:
		switch t {
		case schema.TypeInteger:
			return "BIGINT"
		case schema.TypeNumber:
			return "DECIMAL(65,30)"
		case schema.TypeBoolean:
			return "BOOLEAN"
		case schema.TypeDate:
			return "DATE"
		case schema.TypeDatetime:
			return "DATETIME(6)"
		case schema.TypeTime:
			return "TIME(6)"
		case schema.TypeYear:
			return "INT"
		case schema.TypeArray, schema.TypeObject:
			return "JSON"
		}
		if key {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
	// sqlite keeps decimals as text so they come back exact.
	switch t {
	case schema.TypeInteger, schema.TypeYear:
		return "INTEGER"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDatetime:
		return "DATETIME"
	}
	return "TEXT"
}

// tableIter completes the table when the resource ends.
type tableIter struct {
	schema.RowIterator
	t     *tableWriter
	ended bool
}

func (it *tableIter) Next(ctx context.Context) (schema.Row, bool, error) {
	row, ok, err := it.RowIterator.Next(ctx)
	if err != nil || ok || it.ended {
		return row, ok, err
	}
	it.ended = true
	return nil, false, it.t.end(ctx)
}
