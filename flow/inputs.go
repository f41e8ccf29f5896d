package flow

import (
	"strconv"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
)

// Inputs hands out the upstream streams of a package step. Each stream can
// be taken at most once.
type Inputs struct {
	pkg     *schema.Package
	streams []schema.RowIterator
	taken   []bool
}

func newInputs(pkg *schema.Package, streams []schema.RowIterator) *Inputs {
	return &Inputs{pkg: pkg, streams: streams, taken: make([]bool, len(streams))}
}

// Package returns the upstream (pre-Describe) package descriptor.
func (in *Inputs) Package() *schema.Package { return in.pkg }

// Len returns the number of upstream resources.
func (in *Inputs) Len() int { return len(in.streams) }

// Stream takes the stream of the i-th upstream resource.
func (in *Inputs) Stream(i int) (schema.RowIterator, error) {
	if i < 0 || i >= len(in.streams) {
		return nil, errors.MissingName("resource", "#"+strconv.Itoa(i))
	}
	if in.taken[i] {
		return nil, errors.ExhaustedStream(in.pkg.ResourceAt(i).Name)
	}
	in.taken[i] = true
	return in.streams[i], nil
}

// ByName takes the stream of the upstream resource called name.
func (in *Inputs) ByName(name string) (schema.RowIterator, error) {
	i := in.pkg.Index(name)
	if i < 0 {
		return nil, errors.MissingName("resource", name)
	}
	return in.Stream(i)
}

// Has reports whether an upstream resource called name exists.
func (in *Inputs) Has(name string) bool {
	return in.pkg.Index(name) >= 0
}

// PassThrough takes, for every resource of pkg, the upstream stream with the
// same name.
func (in *Inputs) PassThrough(pkg *schema.Package) ([]schema.RowIterator, error) {
	out := make([]schema.RowIterator, pkg.Len())
	for i, res := range pkg.Resources() {
		it, err := in.ByName(res.Name)
		if err != nil {
			return nil, err
		}
		out[i] = it
	}
	return out, nil
}

func (in *Inputs) untaken() []schema.RowIterator {
	var rest []schema.RowIterator
	for i, it := range in.streams {
		if !in.taken[i] {
			rest = append(rest, it)
		}
	}
	return rest
}
