package schema

import (
	"slices"

	"github.com/kbukum/dataflow/validation"
)

// FieldType is the declared type tag of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeInteger  FieldType = "integer"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeTime     FieldType = "time"
	TypeYear     FieldType = "year"
	TypeArray    FieldType = "array"
	TypeObject   FieldType = "object"
	TypeGeopoint FieldType = "geopoint"
	TypeAny      FieldType = "any"
)

// FieldTypes lists every supported type tag.
var FieldTypes = []FieldType{
	TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeDate, TypeDatetime,
	TypeTime, TypeYear, TypeArray, TypeObject, TypeGeopoint, TypeAny,
}

var typeNames = func() []string {
	out := make([]string, len(FieldTypes))
	for i, t := range FieldTypes {
		out[i] = string(t)
	}
	return out
}()

// Valid reports whether t is a known type tag.
func (t FieldType) Valid() bool {
	return slices.Contains(FieldTypes, t)
}

// Format values shared by several types.
const (
	FormatDefault = "default"
	FormatAny     = "any"
)

// Constraints restrict the values a field accepts. Bounds and enum values are
// cast with the field before comparison.
type Constraints struct {
	Required  bool   `json:"required,omitempty"`
	Enum      []any  `json:"enum,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Minimum   any    `json:"minimum,omitempty"`
	Maximum   any    `json:"maximum,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
}

func (c *Constraints) clone() *Constraints {
	if c == nil {
		return nil
	}
	out := *c
	out.Enum = slices.Clone(c.Enum)
	if c.MinLength != nil {
		v := *c.MinLength
		out.MinLength = &v
	}
	if c.MaxLength != nil {
		v := *c.MaxLength
		out.MaxLength = &v
	}
	return &out
}

// Field describes one column of a resource.
type Field struct {
	Name        string       `json:"name"`
	Type        FieldType    `json:"type,omitempty"`
	Format      string       `json:"format,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`

	// number / integer
	GroupChar   string `json:"groupChar,omitempty"`
	DecimalChar string `json:"decimalChar,omitempty"`
	BareNumber  *bool  `json:"bareNumber,omitempty"`

	// boolean
	TrueValues  []string `json:"trueValues,omitempty"`
	FalseValues []string `json:"falseValues,omitempty"`

	Metadata map[string]any `json:"-"`
}

// NewField returns a field with the given name and type.
func NewField(name string, typ FieldType) Field {
	return Field{Name: name, Type: typ}
}

// EffectiveType returns the declared type, string when none is declared.
func (f *Field) EffectiveType() FieldType {
	if f.Type == "" {
		return TypeString
	}
	return f.Type
}

// EffectiveFormat returns the declared format, "default" when none is declared.
func (f *Field) EffectiveFormat() string {
	if f.Format == "" {
		return FormatDefault
	}
	return f.Format
}

// Required reports whether the field carries the required constraint.
func (f *Field) Required() bool {
	return f.Constraints != nil && f.Constraints.Required
}

// Validate rejects fields with an empty name, an unknown type, a pattern that
// does not compile or a negative length bound.
func (f Field) Validate() error {
	v := validation.New()
	f.check(v, "")
	return v.Err()
}

func (f Field) check(v *validation.Validator, prefix string) {
	v.Required(prefix+"name", f.Name).
		OneOf(prefix+"type", string(f.Type), typeNames)
	c := f.Constraints
	if c == nil {
		return
	}
	v.Regexp(prefix+"constraints.pattern", c.Pattern)
	if c.MinLength != nil {
		v.Min(prefix+"constraints.minLength", *c.MinLength, 0)
	}
	if c.MaxLength != nil {
		v.Min(prefix+"constraints.maxLength", *c.MaxLength, 0)
	}
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	out.Constraints = f.Constraints.clone()
	if f.BareNumber != nil {
		v := *f.BareNumber
		out.BareNumber = &v
	}
	out.TrueValues = slices.Clone(f.TrueValues)
	out.FalseValues = slices.Clone(f.FalseValues)
	out.Metadata = cloneMap(f.Metadata)
	return out
}
