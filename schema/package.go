package schema

import (
	"slices"

	"github.com/kbukum/dataflow/errors"
)

// DescriptorFile is the file name of a stored package descriptor.
const DescriptorFile = "datapackage.json"

// Package is an ordered, name-unique set of resources plus package-level
// properties.
type Package struct {
	Name     string
	Title    string
	Metadata map[string]any

	resources []*Resource
	frozen    bool
}

// NewPackage builds a package, rejecting duplicate resource names.
func NewPackage(name string, resources ...*Resource) (*Package, error) {
	p := &Package{Name: name}
	for _, r := range resources {
		if err := p.AddResource(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Package) checkMutable() error {
	if p.frozen {
		return errors.Schema("package is frozen: rows may already be streaming")
	}
	return nil
}

// AddResource appends a resource.
func (p *Package) AddResource(r *Resource) error {
	return p.InsertResource(len(p.resources), r)
}

// InsertResource inserts a resource at pos (clamped to the resource range).
func (p *Package) InsertResource(pos int, r *Resource) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	if r == nil || r.Name == "" {
		return errors.Schema("resource name is required")
	}
	if p.Index(r.Name) >= 0 {
		return errors.DuplicateName("resource", r.Name)
	}
	if r.Schema == nil {
		r.Schema = &Schema{}
	}
	pos = max(0, min(pos, len(p.resources)))
	p.resources = slices.Insert(p.resources, pos, r)
	return nil
}

// RemoveResource removes the named resource and returns it.
func (p *Package) RemoveResource(name string) (*Resource, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	i := p.Index(name)
	if i < 0 {
		return nil, errors.MissingName("resource", name)
	}
	r := p.resources[i]
	p.resources = slices.Delete(p.resources, i, i+1)
	return r, nil
}

// RenameResource renames a resource, checking for collisions.
func (p *Package) RenameResource(from, to string) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	i := p.Index(from)
	if i < 0 {
		return errors.MissingName("resource", from)
	}
	if from == to {
		return nil
	}
	if to == "" {
		return errors.Schema("resource name is required")
	}
	if p.Index(to) >= 0 {
		return errors.DuplicateName("resource", to)
	}
	p.resources[i].Name = to
	return nil
}

// Resource returns the named resource.
func (p *Package) Resource(name string) (*Resource, bool) {
	i := p.Index(name)
	if i < 0 {
		return nil, false
	}
	return p.resources[i], true
}

// ResourceAt returns the resource at position i.
func (p *Package) ResourceAt(i int) *Resource {
	return p.resources[i]
}

// Index returns the position of the named resource, or -1.
func (p *Package) Index(name string) int {
	for i, r := range p.resources {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of resources.
func (p *Package) Len() int {
	if p == nil {
		return 0
	}
	return len(p.resources)
}

// Resources returns the resources in order. The slice is a copy; the
// resources are not.
func (p *Package) Resources() []*Resource {
	return slices.Clone(p.resources)
}

// ResourceNames returns the resource names in order.
func (p *Package) ResourceNames() []string {
	names := make([]string, len(p.resources))
	for i, r := range p.resources {
		names[i] = r.Name
	}
	return names
}

// Freeze makes the package and every resource schema reject changes made
// through their methods. Exported fields are not guarded.
func (p *Package) Freeze() {
	p.frozen = true
	for _, r := range p.resources {
		r.Schema.Freeze()
	}
}

// Frozen reports whether the package is immutable.
func (p *Package) Frozen() bool { return p.frozen }

// Clone returns an unfrozen deep copy.
func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	out := &Package{
		Name:      p.Name,
		Title:     p.Title,
		Metadata:  cloneMap(p.Metadata),
		resources: make([]*Resource, len(p.resources)),
	}
	for i, r := range p.resources {
		out.resources[i] = r.Clone()
	}
	return out
}

// Validate checks every resource descriptor.
func (p *Package) Validate() error {
	for _, r := range p.resources {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
