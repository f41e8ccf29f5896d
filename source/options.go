package source

import (
	"context"

	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/resilience"
	"github.com/kbukum/dataflow/schema"
)

// Options configures a reader.
type Options struct {
	// Name is the resource name. Defaults to the file name without its
	// extension.
	Name string
	// Schema declares the resource schema. Without it the schema is inferred.
	Schema *schema.Schema
	// Delimiter separates CSV fields. Defaults to ','.
	Delimiter rune
	// Headers names the CSV columns of a file without a header row.
	Headers []string
	// Lines reads JSON as one object per line. Implied by the .jsonl and
	// .ndjson extensions.
	Lines bool
	// LimitRows stops reading after this many rows. Zero reads everything.
	LimitRows int
	// Retry controls download retries.
	Retry resilience.RetryConfig

	log *logger.Logger
}

// Option configures a reader.
type Option func(*Options)

// WithName sets the resource name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithSchema declares the resource schema.
func WithSchema(s *schema.Schema) Option {
	return func(o *Options) { o.Schema = s }
}

// WithDelimiter sets the CSV field delimiter.
func WithDelimiter(r rune) Option {
	return func(o *Options) { o.Delimiter = r }
}

// WithHeaders names the columns of a CSV file that has no header row.
func WithHeaders(names ...string) Option {
	return func(o *Options) { o.Headers = names }
}

// WithLines reads JSON lines instead of a JSON array.
func WithLines() Option {
	return func(o *Options) { o.Lines = true }
}

// WithLimitRows reads at most n rows of the resource.
func WithLimitRows(n int) Option {
	return func(o *Options) { o.LimitRows = n }
}

// WithRetry sets the download retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *Options) { o.Retry = cfg }
}

// WithLogger sets the reader's logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) { o.log = l }
}

func newOptions(opts []Option) Options {
	o := Options{Delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("source")
	}
	o.Retry.ApplyDefaults()
	return o
}

// resource builds the descriptor of a resource read from path.
func (o Options) resource(name, path, format string) *schema.Resource {
	if o.Name != "" {
		name = o.Name
	}
	var sch *schema.Schema
	if o.Schema != nil {
		sch = o.Schema.Clone()
	}
	res := schema.NewResource(name, sch)
	res.Path = path
	res.Format = format
	return res
}

// rows applies the row limit to it. The number of rows served is logged when
// the stream is closed.
func (o Options) rows(name string, it schema.RowIterator) schema.RowIterator {
	if o.LimitRows > 0 {
		it = pipeline.Limit(it, o.LimitRows)
	}
	var n int64
	it = pipeline.Tap(it, func(context.Context, schema.Row) error {
		n++
		return nil
	})
	return pipeline.OnClose(it, func() error {
		o.log.Debug("resource closed", logger.Fields(logger.FieldResource, name, logger.FieldRows, n))
		return nil
	})
}
