package flow

import (
	"context"

	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// Kind identifies how the engine drives a step.
type Kind int

// Step kinds.
const (
	KindRow Kind = iota + 1
	KindRows
	KindPackage
	KindSeed
	KindNested
	KindCheckpoint
)

func (k Kind) String() string {
	switch k {
	case KindRow:
		return "row"
	case KindRows:
		return "rows"
	case KindPackage:
		return "package"
	case KindSeed:
		return "seed"
	case KindNested:
		return "nested"
	case KindCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// RowFunc processes a single row. Returning a nil row keeps the input row,
// which the function may have modified in place. Row functions cannot drop
// rows.
type RowFunc func(ctx context.Context, row schema.Row) (schema.Row, error)

// RowsFunc processes one resource. res is a frozen copy of the resource's
// descriptor; changing it does not affect the package.
// The returned stream replaces rows and may filter, expand or reorder them.
// It is invoked on the first pull of the resource.
type RowsFunc func(ctx context.Context, res *schema.Resource, rows schema.RowIterator) (schema.RowIterator, error)

// SeedFunc produces the flow's initial resource and its rows. A nil resource
// becomes "res_1"; a resource without fields gets an inferred schema.
type SeedFunc func(ctx context.Context) (*schema.Resource, schema.RowIterator, error)

// PackageProcessor is a two-phase package step.
//
// Describe receives a private, mutable copy of the current package and
// changes it in place: add, remove, rename or reorder resources and fields.
// The result becomes the current package, and is frozen, before any row is
// pulled.
//
// Process receives the frozen package, the same value Describe changed, and
// the upstream streams. It must not change pkg and returns exactly one stream
// per resource of pkg, in order. Upstream streams that are not taken from in
// are dropped from the output and drained before the run completes.
type PackageProcessor interface {
	Describe(ctx context.Context, pkg *schema.Package) error
	Process(ctx context.Context, pkg *schema.Package, in *Inputs) ([]schema.RowIterator, error)
}

// PackageFuncs adapts functions to PackageProcessor. A nil DescribeFunc leaves
// the package unchanged; a nil ProcessFunc passes upstream streams through by
// resource name.
type PackageFuncs struct {
	DescribeFunc func(ctx context.Context, pkg *schema.Package) error
	ProcessFunc  func(ctx context.Context, pkg *schema.Package, in *Inputs) ([]schema.RowIterator, error)
}

// Describe implements PackageProcessor.
func (p PackageFuncs) Describe(ctx context.Context, pkg *schema.Package) error {
	if p.DescribeFunc == nil {
		return nil
	}
	return p.DescribeFunc(ctx, pkg)
}

// Process implements PackageProcessor.
func (p PackageFuncs) Process(ctx context.Context, pkg *schema.Package, in *Inputs) ([]schema.RowIterator, error) {
	if p.ProcessFunc == nil {
		return in.PassThrough(pkg)
	}
	return p.ProcessFunc(ctx, pkg, in)
}

// CheckpointStore persists packages for checkpoint steps. *checkpoint.Store
// implements it.
type CheckpointStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, name string, pkg *schema.Package, streams []schema.RowIterator) error
	Load(ctx context.Context, name string) (*schema.Package, []schema.RowIterator, error)
}

// Step is one stage of a flow. Build steps with the factory functions.
type Step struct {
	kind Kind
	name string

	row    RowFunc
	rows   RowsFunc
	pkg    PackageProcessor
	seed   SeedFunc
	flow   *Flow
	store  CheckpointStore
	cpName string
}

// Kind returns the step's kind.
func (s Step) Kind() Kind { return s.kind }

// Name returns the step's label, empty unless set with Named.
func (s Step) Name() string { return s.name }

// Named returns a copy of the step labelled name for logs and errors.
func (s Step) Named(name string) Step {
	s.name = name
	return s
}

// RowStep builds a row step.
func RowStep(fn RowFunc) Step {
	return Step{kind: KindRow, row: fn}
}

// RowsStep builds a rows step.
func RowsStep(fn RowsFunc) Step {
	return Step{kind: KindRows, rows: fn}
}

// PackageStep builds a package step.
func PackageStep(p PackageProcessor) Step {
	return Step{kind: KindPackage, pkg: p}
}

// Seed builds a seed step from fn.
func Seed(fn SeedFunc) Step {
	return Step{kind: KindSeed, seed: fn}
}

// SeedRows seeds the flow with in-memory rows under resource name. The schema
// is inferred from the rows.
func SeedRows(name string, rows []schema.Row) Step {
	return SeedResource(schema.NewResource(name, nil), rows)
}

// SeedResource seeds the flow with in-memory rows described by res. Rows are
// cast against res's schema, or an inferred one when it has no fields.
func SeedResource(res *schema.Resource, rows []schema.Row) Step {
	return Seed(func(context.Context) (*schema.Resource, schema.RowIterator, error) {
		out := make([]schema.Row, len(rows))
		for i, r := range rows {
			out[i] = r.Clone()
		}
		return res.Clone(), pipeline.FromSlice(out), nil
	})
}

// Nested embeds f as a sub-flow. Its steps are flattened into the parent at
// build time.
func Nested(f *Flow) Step {
	return Step{kind: KindNested, flow: f}
}

// Checkpoint builds a checkpoint step named name.
//
// When a flow is opened, the last checkpoint step whose record exists in its
// store becomes the resume point: every earlier step is skipped and the
// package is read back from the record. A checkpoint step without a record
// passes data through; on the first pull of any of its resources it saves
// the whole package and replays it from the store.
func Checkpoint(store CheckpointStore, name string) Step {
	return Step{kind: KindCheckpoint, store: store, cpName: name}
}
