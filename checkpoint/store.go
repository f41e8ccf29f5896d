package checkpoint

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// Store saves and loads checkpoint records. Concurrent writers of the same
// name are not coordinated.
type Store struct {
	storage storage.Storage
	prefix  string
	caster  *cast.Caster
	log     *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the storage prefix records are kept under.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(prefix, "/") }
}

// WithConfig applies a Config.
func WithConfig(cfg Config) Option {
	cfg.ApplyDefaults()
	return WithPrefix(cfg.Prefix)
}

// WithCaster sets the caster used to serialize and restore values.
func WithCaster(c *cast.Caster) Option {
	return func(s *Store) { s.caster = c }
}

// WithLogger sets the store's logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a checkpoint store on top of st.
func New(st storage.Storage, opts ...Option) *Store {
	s := &Store{storage: st, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	if s.caster == nil {
		s.caster = cast.Default()
	}
	if s.log == nil {
		s.log = logger.Get("checkpoint")
	}
	return s
}

func (s *Store) dir(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func dataPath(i int) string {
	return fmt.Sprintf("data/%d.jsonl", i)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.InvalidInput("name", fmt.Sprintf("invalid checkpoint name %q", name))
	}
	return nil
}

// Exists reports whether a complete record named name exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	return s.storage.Exists(ctx, path.Join(s.dir(name), schema.DescriptorFile))
}

// Save drains every stream into the record named name, replacing any
// previous record, and writes the descriptor last. streams must match the
// package's resources positionally. All streams are closed on return.
func (s *Store) Save(ctx context.Context, name string, pkg *schema.Package, streams []schema.RowIterator) (err error) {
	defer func() {
		for _, it := range streams {
			if cerr := it.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}
	}()
	if err := checkName(name); err != nil {
		return err
	}
	if len(streams) != pkg.Len() {
		return errors.PackageContract("checkpoint %q: %d streams for %d resources", name, len(streams), pkg.Len())
	}

	if err := s.Delete(ctx, name); err != nil {
		return err
	}

	dir := s.dir(name)
	total := 0
	for i, res := range pkg.Resources() {
		n, err := s.writeRows(ctx, path.Join(dir, dataPath(i)), res.Schema, streams[i])
		if err != nil {
			return err
		}
		total += n
	}

	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return err
	}
	if err := storage.WriteBytes(ctx, s.storage, path.Join(dir, schema.DescriptorFile), data); err != nil {
		return err
	}
	s.log.WithContext(ctx).Debug("checkpoint saved", logger.Fields(
		"checkpoint", name, "resources", pkg.Len(), logger.FieldRows, total,
	))
	return nil
}

func (s *Store) writeRows(ctx context.Context, p string, sch *schema.Schema, it schema.RowIterator) (int, error) {
	count := 0
	err := storage.WriteStream(ctx, s.storage, p, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		for {
			row, ok, err := it.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			out, err := s.serializeRow(sch, row)
			if err != nil {
				return err
			}
			if err := enc.Encode(out); err != nil {
				return err
			}
			count++
		}
		return bw.Flush()
	})
	return count, err
}

// serializeRow converts schema fields to their storage form. Keys outside
// the schema are normalized like any values.
func (s *Store) serializeRow(sch *schema.Schema, row schema.Row) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if n, ok := cast.Normalize(v); ok {
			v = cast.JSONValue(n)
		}
		out[k] = v
	}
	for i := 0; i < sch.Len(); i++ {
		f := sch.At(i)
		v, ok := row[f.Name]
		if !ok {
			continue
		}
		sv, err := s.caster.Serialize(*f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = sv
	}
	return out, nil
}

// Load reads the record named name. Rows are restored lazily: a resource's
// data file is opened on the first pull of its stream.
func (s *Store) Load(ctx context.Context, name string) (*schema.Package, []schema.RowIterator, error) {
	if err := checkName(name); err != nil {
		return nil, nil, err
	}
	dir := s.dir(name)
	data, err := storage.ReadBytes(ctx, s.storage, path.Join(dir, schema.DescriptorFile))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, nil, errors.NotFound("checkpoint", name)
		}
		return nil, nil, err
	}
	pkg := &schema.Package{}
	if err := json.Unmarshal(data, pkg); err != nil {
		return nil, nil, errors.Schema("checkpoint %q: decode descriptor: %v", name, err).WithCause(err)
	}

	streams := make([]schema.RowIterator, pkg.Len())
	for i, res := range pkg.Resources() {
		p := path.Join(dir, dataPath(i))
		sch := res.Schema.Clone()
		streams[i] = pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
			return s.readRows(ctx, p, sch)
		})
	}
	s.log.WithContext(ctx).Debug("checkpoint loaded", logger.Fields("checkpoint", name, "resources", pkg.Len()))
	return pkg, streams, nil
}

func (s *Store) readRows(ctx context.Context, p string, sch *schema.Schema) (schema.RowIterator, error) {
	rc, err := s.storage.Download(ctx, p)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bufio.NewReader(rc))
	dec.UseNumber()
	line := 0
	return pipeline.FromFunc(func(ctx context.Context) (schema.Row, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				return nil, false, nil
			}
			return nil, false, errors.Storage("read checkpoint rows", err).WithDetail(errors.DetailRow, line)
		}
		line++
		row, err := s.restoreRow(sch, raw)
		if err != nil {
			return nil, false, err
		}
		return row, true, nil
	}, rc.Close), nil
}

func (s *Store) restoreRow(sch *schema.Schema, raw map[string]any) (schema.Row, error) {
	row := make(schema.Row, len(raw))
	for k, v := range raw {
		f, ok := sch.Field(k)
		if !ok {
			if n, ok := cast.Normalize(v); ok {
				v = n
			}
			row[k] = v
			continue
		}
		rv, err := s.caster.Restore(f, v)
		if err != nil {
			return nil, err
		}
		row[k] = rv
	}
	return row, nil
}

// Delete removes the record named name. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := s.dir(name)
	// descriptor first so a partially deleted record is never seen as complete
	if err := s.storage.Delete(ctx, path.Join(dir, schema.DescriptorFile)); err != nil {
		return err
	}
	return storage.DeletePrefix(ctx, s.storage, dir+"/")
}
