package steps

import (
	"context"
	"maps"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/schema"
)

// ResourceUpdate lists the descriptor properties UpdateResource sets. Empty
// properties are left alone; Metadata keys are merged.
type ResourceUpdate struct {
	Name        string
	Path        string
	Title       string
	Description string
	Metadata    map[string]any
}

// UpdateResource edits the descriptor of the resource called name. Its rows
// are untouched.
func UpdateResource(name string, update ResourceUpdate) flow.Step {
	return flow.PackageStep(flow.PackageFuncs{
		DescribeFunc: func(_ context.Context, pkg *schema.Package) error {
			res, ok := pkg.Resource(name)
			if !ok {
				return errors.MissingName("resource", name)
			}
			if update.Name != "" {
				if err := pkg.RenameResource(name, update.Name); err != nil {
					return err
				}
			}
			if update.Path != "" {
				res.Path = update.Path
			}
			if update.Title != "" {
				res.Title = update.Title
			}
			if update.Description != "" {
				res.Description = update.Description
			}
			if len(update.Metadata) > 0 {
				if res.Metadata == nil {
					res.Metadata = make(map[string]any, len(update.Metadata))
				}
				maps.Copy(res.Metadata, update.Metadata)
			}
			return nil
		},
		ProcessFunc: positional,
	}).Named("update_resource")
}

// PackageUpdate lists the package properties UpdatePackage sets.
type PackageUpdate struct {
	Name     string
	Title    string
	Metadata map[string]any
}

// UpdatePackage edits the package descriptor.
func UpdatePackage(update PackageUpdate) flow.Step {
	return flow.PackageStep(flow.PackageFuncs{
		DescribeFunc: func(_ context.Context, pkg *schema.Package) error {
			if update.Name != "" {
				pkg.Name = update.Name
			}
			if update.Title != "" {
				pkg.Title = update.Title
			}
			if len(update.Metadata) > 0 {
				if pkg.Metadata == nil {
					pkg.Metadata = make(map[string]any, len(update.Metadata))
				}
				maps.Copy(pkg.Metadata, update.Metadata)
			}
			return nil
		},
	}).Named("update_package")
}

// DropResources removes every resource matching one of names, which may be
// regular expressions. It is a SchemaError when nothing matches. Dropped
// streams are drained by the flow before the run completes.
func DropResources(names ...string) flow.Step {
	o := newOptions([]Option{Resources(names...)})
	return flow.PackageStep(flow.PackageFuncs{
		DescribeFunc: func(_ context.Context, pkg *schema.Package) error {
			if len(names) == 0 {
				return errors.Schema("no resources to drop")
			}
			dropped := 0
			for _, res := range pkg.Resources() {
				if !o.matches(res.Name) {
					continue
				}
				if _, err := pkg.RemoveResource(res.Name); err != nil {
					return err
				}
				dropped++
			}
			if dropped == 0 {
				return errors.Schema("no resource matches %q", names)
			}
			return nil
		},
	}).Named("drop_resources")
}

// positional hands every upstream stream on in place, for steps that keep
// the resource list but may rename resources.
func positional(_ context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	out := make([]schema.RowIterator, pkg.Len())
	for i := range out {
		it, err := in.Stream(i)
		if err != nil {
			return nil, err
		}
		out[i] = it
	}
	return out, nil
}
