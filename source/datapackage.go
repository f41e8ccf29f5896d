package source

import (
	"context"
	"io"
	"path"
	"sync"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// Datapackage appends every resource stored under dir by sink.DumpToPath.
// Descriptors are read when the flow is opened; rows on first pull.
func Datapackage(st storage.Storage, dir string, opts ...Option) flow.Step {
	return flow.PackageStep(&datapackage{
		storage: st,
		dir:     dir,
		opts:    newOptions(opts),
		added:   map[*schema.Package][]string{},
	}).Named("datapackage")
}

type datapackage struct {
	storage storage.Storage
	dir     string
	opts    Options

	mu    sync.Mutex
	added map[*schema.Package][]string
}

func (d *datapackage) Describe(ctx context.Context, pkg *schema.Package) error {
	rc, err := download(ctx, d.storage, path.Join(d.dir, schema.DescriptorFile), d.opts)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return errors.Storage("read descriptor", err)
	}
	var stored schema.Package
	if err := stored.UnmarshalJSON(data); err != nil {
		return errors.InvalidInput("descriptor", err.Error())
	}

	names := make([]string, 0, stored.Len())
	for _, res := range stored.Resources() {
		if res.Path == "" {
			return errors.InvalidInput("path", "resource "+res.Name+" has no path")
		}
		if err := pkg.AddResource(res.Clone()); err != nil {
			return err
		}
		names = append(names, res.Name)
	}
	if pkg.Name == "" {
		pkg.Name = stored.Name
	}

	d.mu.Lock()
	d.added[pkg] = names
	d.mu.Unlock()
	d.opts.log.WithContext(ctx).Debug("datapackage described", logger.Fields("dir", d.dir, "resources", len(names)))
	return nil
}

func (d *datapackage) Process(ctx context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	d.mu.Lock()
	names := d.added[pkg]
	delete(d.added, pkg)
	d.mu.Unlock()

	added := make(map[string]bool, len(names))
	for _, n := range names {
		added[n] = true
	}

	caster := flow.CasterFrom(ctx)
	out := make([]schema.RowIterator, pkg.Len())
	for i, res := range pkg.Resources() {
		if !added[res.Name] {
			it, err := in.ByName(res.Name)
			if err != nil {
				return nil, err
			}
			out[i] = it
			continue
		}
		res := res
		rows := pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
			rc, err := download(ctx, d.storage, path.Join(d.dir, res.Path), d.opts)
			if err != nil {
				return nil, err
			}
			if res.Format == "json" {
				return ReadJSON(rc, false)
			}
			return ReadCSV(rc, d.opts)
		})
		out[i] = pipeline.Map(d.opts.rows(res.Name, rows), func(_ context.Context, row schema.Row) (schema.Row, error) {
			return caster.CastRow(res.Schema, row)
		})
	}
	return out, nil
}
