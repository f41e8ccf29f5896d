package source

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/resilience"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage"
)

// Source opens one resource. Rows are read lazily; Open itself does no I/O
// beyond what the descriptor needs.
type Source interface {
	Open(ctx context.Context) (*schema.Resource, schema.RowIterator, error)
}

// Seed starts a flow with src.
func Seed(src Source) flow.Step {
	return flow.Seed(src.Open)
}

// Load appends src's resource to the current package. Adding a resource
// whose name is already taken is a SchemaError.
func Load(src Source) flow.Step {
	return flow.PackageStep(&loader{src: src, opened: map[*schema.Package]opened{}})
}

type opened struct {
	res *schema.Resource
	it  schema.RowIterator
}

// loader remembers what Describe opened until Process hands it out. Entries
// are keyed by the package being built so that concurrent runs do not mix.
type loader struct {
	src    Source
	mu     sync.Mutex
	opened map[*schema.Package]opened
}

func (l *loader) Describe(ctx context.Context, pkg *schema.Package) error {
	res, it, err := l.src.Open(ctx)
	if err != nil {
		return err
	}
	if res.Schema.Len() == 0 {
		sch, replay, err := flow.CasterFrom(ctx).InferStream(ctx, it)
		if err != nil {
			_ = it.Close()
			return err
		}
		res.Schema, it = sch, replay
	}
	if err := pkg.AddResource(res); err != nil {
		_ = it.Close()
		return err
	}
	l.mu.Lock()
	l.opened[pkg] = opened{res: res, it: it}
	l.mu.Unlock()
	return nil
}

func (l *loader) Process(ctx context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	l.mu.Lock()
	o, ok := l.opened[pkg]
	delete(l.opened, pkg)
	l.mu.Unlock()
	if !ok {
		return nil, errors.PackageContract("load step processed a package it did not describe")
	}

	caster := flow.CasterFrom(ctx)
	sch := pkg.ResourceAt(pkg.Index(o.res.Name)).Schema
	out := make([]schema.RowIterator, pkg.Len())
	for i, res := range pkg.Resources() {
		if res.Name == o.res.Name {
			out[i] = pipeline.Map(o.it, func(_ context.Context, row schema.Row) (schema.Row, error) {
				return caster.CastRow(sch, row)
			})
			continue
		}
		it, err := in.ByName(res.Name)
		if err != nil {
			_ = o.it.Close()
			return nil, err
		}
		out[i] = it
	}
	return out, nil
}

// download opens p, retrying transient failures.
func download(ctx context.Context, st storage.Storage, p string, o Options) (io.ReadCloser, error) {
	cfg := o.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.LogRetries(o.log.WithContext(ctx), "download "+p)
	}
	rc, err := resilience.Retry(ctx, cfg, func() (io.ReadCloser, error) {
		return st.Download(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	o.log.WithContext(ctx).Debug("reading resource", logger.Fields("path", p))
	return rc, nil
}

// baseName returns the file name of p without its extension.
func baseName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
