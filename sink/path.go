package sink

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"path"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// Resource metadata written to the descriptor.
const (
	MetaBytes = "bytes"
	MetaHash  = "hash"
	MetaCount = "count"
)

// DumpToPath writes every resource under opts.Dir as its rows stream
// through. The datapackage.json descriptor is written once all resources
// are complete; it carries the storage form of each schema together with the
// byte size, sha256 hash and row count of every file.
func DumpToPath(st storage.Storage, opts PathOptions) flow.Step {
	opts.ApplyDefaults()
	return flow.PackageStep(&pathDumper{
		storage: st,
		opts:    opts,
		log:     logger.Get("sink"),
	}).Named(NamePath)
}

type pathDumper struct {
	storage storage.Storage
	opts    PathOptions
	log     *logger.Logger

	mu      sync.Mutex
	summary *flow.SinkSummary
}

func (d *pathDumper) Describe(context.Context, *schema.Package) error {
	return d.opts.Validate()
}

func (d *pathDumper) Process(ctx context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	streams, err := in.PassThrough(pkg)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.summary = nil
	d.mu.Unlock()

	run := &pathRun{
		dumper:  d,
		pkg:     pkg,
		caster:  flow.CasterFrom(ctx),
		files:   make([]fileStat, pkg.Len()),
		pending: pkg.Len(),
	}
	if pkg.Len() == 0 {
		return nil, run.writeDescriptor(ctx)
	}
	out := make([]schema.RowIterator, len(streams))
	for i, it := range streams {
		out[i] = &dumpIter{run: run, i: i, src: it}
	}
	return out, nil
}

// Summary implements flow.Summarizer. It reports the last dataset written
// in full.
func (d *pathDumper) Summary() (flow.SinkSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summary == nil {
		return flow.SinkSummary{}, false
	}
	return *d.summary, true
}

type fileStat struct {
	name  string
	rows  int64
	bytes int64
	hash  string
}

// pathRun tracks one run's files until the descriptor can be written.
type pathRun struct {
	dumper *pathDumper
	pkg    *schema.Package
	caster *cast.Caster

	mu      sync.Mutex
	files   []fileStat
	pending int
}

func (r *pathRun) fileName(res *schema.Resource) string {
	return res.Name + "." + r.dumper.opts.Format
}

// complete records a finished file and writes the descriptor after the last
// one.
func (r *pathRun) complete(ctx context.Context, i int, stat fileStat) error {
	r.mu.Lock()
	r.files[i] = stat
	r.pending--
	last := r.pending == 0
	r.mu.Unlock()
	if !last {
		return nil
	}
	return r.writeDescriptor(ctx)
}

func (r *pathRun) descriptor() *schema.Package {
	d := r.dumper
	out := r.pkg.Clone()
	if d.opts.Name != "" {
		out.Name = d.opts.Name
	}
	for i, res := range out.Resources() {
		f := r.files[i]
		res.Schema = cast.StorageSchema(res.Schema)
		res.Path = f.name
		res.Format = d.opts.Format
		if res.Metadata == nil {
			res.Metadata = map[string]any{}
		}
		res.Metadata[MetaBytes] = f.bytes
		res.Metadata[MetaHash] = f.hash
		res.Metadata[MetaCount] = f.rows
	}
	return out
}

func (r *pathRun) writeDescriptor(ctx context.Context) error {
	d := r.dumper
	pkg := r.descriptor()
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return err
	}
	location := path.Join(d.opts.Dir, schema.DescriptorFile)
	if err := storage.WriteBytes(ctx, d.storage, location, data); err != nil {
		return err
	}

	sum := flow.SinkSummary{
		Sink:     NamePath,
		Dataset:  pkg.Name,
		Location: location,
		Hash:     hashOf(data),
	}
	for _, f := range r.files {
		sum.Rows += f.rows
		sum.Bytes += f.bytes
	}
	d.mu.Lock()
	d.summary = &sum
	d.mu.Unlock()

	d.log.WithContext(ctx).Info("dataset written", logger.Fields(
		logger.FieldPath, location, "resources", pkg.Len(), logger.FieldRows, sum.Rows, logger.FieldBytes, sum.Bytes,
	))
	return nil
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// dumpIter passes the rows of one resource through while writing them. The
// object is opened on the first pull and completed when the upstream ends.
type dumpIter struct {
	run *pathRun
	i   int
	src schema.RowIterator

	w       *storage.Writer
	bw      *bufio.Writer
	hash    hash.Hash
	counter countingWriter
	enc     rowEncoder
	rows    int64
	done    bool
}

func (it *dumpIter) Next(ctx context.Context) (schema.Row, bool, error) {
	if it.done {
		return nil, false, nil
	}
	if it.w == nil {
		if err := it.start(ctx); err != nil {
			return nil, false, err
		}
	}
	row, ok, err := it.src.Next(ctx)
	if err != nil {
		it.abort(err)
		return nil, false, err
	}
	if !ok {
		return nil, false, it.finish(ctx)
	}
	if err := it.enc.Encode(row); err != nil {
		it.abort(err)
		return nil, false, err
	}
	it.rows++
	return row, true, nil
}

func (it *dumpIter) start(ctx context.Context) error {
	r := it.run
	res := r.pkg.ResourceAt(it.i)
	p := path.Join(r.dumper.opts.Dir, r.fileName(res))

	it.w = storage.NewWriter(ctx, r.dumper.storage, p)
	it.hash = sha256.New()
	it.bw = bufio.NewWriter(io.MultiWriter(it.w, it.hash, &it.counter))
	it.enc = newEncoder(r.dumper.opts.Format, it.bw, res.Schema, r.caster)
	if err := it.enc.Begin(); err != nil {
		it.abort(err)
		return err
	}
	return nil
}

func (it *dumpIter) finish(ctx context.Context) error {
	it.done = true
	if err := it.enc.End(); err != nil {
		_ = it.w.Abort(err)
		return err
	}
	if err := it.bw.Flush(); err != nil {
		_ = it.w.Abort(err)
		return err
	}
	if err := it.w.Close(); err != nil {
		return err
	}
	res := it.run.pkg.ResourceAt(it.i)
	return it.run.complete(ctx, it.i, fileStat{
		name:  it.run.fileName(res),
		rows:  it.rows,
		bytes: it.counter.n,
		hash:  "sha256:" + hex.EncodeToString(it.hash.Sum(nil)),
	})
}

func (it *dumpIter) abort(err error) {
	it.done = true
	if it.w != nil {
		_ = it.w.Abort(err)
	}
}

// Close abandons an unfinished file.
func (it *dumpIter) Close() error {
	if !it.done && it.w != nil {
		it.abort(nil)
	}
	it.done = true
	return it.src.Close()
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
