package schema

import (
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/validation"
)

// Resource describes one tabular resource of a package. Its rows travel
// separately as a RowIterator.
type Resource struct {
	Name        string         `json:"name" validate:"required"`
	Path        string         `json:"path,omitempty"`
	Format      string         `json:"format,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Schema      *Schema        `json:"schema,omitempty"`
	Metadata    map[string]any `json:"-"`
}

// NewResource returns a resource with the given name and schema. A nil
// schema becomes an empty one.
func NewResource(name string, s *Schema) *Resource {
	if s == nil {
		s = &Schema{}
	}
	return &Resource{Name: name, Schema: s}
}

// Clone returns an unfrozen deep copy.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	out.Schema = r.Schema.Clone()
	if out.Schema == nil {
		out.Schema = &Schema{}
	}
	out.Metadata = cloneMap(r.Metadata)
	return &out
}

// Validate checks the resource descriptor and its schema.
func (r *Resource) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if r.Schema == nil {
		return errors.InvalidInput("schema", "resource "+r.Name+" has no schema")
	}
	return r.Schema.Validate()
}
