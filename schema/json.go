package schema

import (
	json "github.com/goccy/go-json"
)

// Keys of each descriptor type; every other top-level key is Metadata.
var (
	fieldKeys    = []string{"name", "type", "format", "title", "description", "constraints", "groupChar", "decimalChar", "bareNumber", "trueValues", "falseValues"}
	schemaKeys   = []string{"fields", "primaryKey", "missingValues"}
	resourceKeys = []string{"name", "path", "format", "title", "description", "schema"}
	packageKeys  = []string{"name", "title", "resources"}
)

type fieldAlias Field

// MarshalJSON writes the field with its metadata as extra keys.
func (f Field) MarshalJSON() ([]byte, error) {
	return marshalWithExtras(fieldAlias(f), f.Metadata)
}

// UnmarshalJSON reads a Table Schema field descriptor.
func (f *Field) UnmarshalJSON(data []byte) error {
	var a fieldAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extras, err := splitExtras(data, fieldKeys)
	if err != nil {
		return err
	}
	*f = Field(a)
	f.Metadata = extras
	return nil
}

type schemaWire struct {
	Fields        []Field  `json:"fields"`
	PrimaryKey    []string `json:"primaryKey,omitempty"`
	MissingValues *[]string `json:"missingValues,omitempty"`
}

// MarshalJSON writes a Table Schema descriptor.
func (s *Schema) MarshalJSON() ([]byte, error) {
	w := schemaWire{
		Fields:     s.fields,
		PrimaryKey: s.primaryKey,
	}
	if s.missingValues != nil {
		mv := s.missingValues
		w.MissingValues = &mv
	}
	if w.Fields == nil {
		w.Fields = []Field{}
	}
	return marshalWithExtras(w, s.metadata)
}

// UnmarshalJSON reads a Table Schema descriptor.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var w schemaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := NewSchema(w.Fields...)
	if err != nil {
		return err
	}
	if err := out.SetPrimaryKey(w.PrimaryKey...); err != nil {
		return err
	}
	if w.MissingValues != nil {
		out.missingValues = append([]string{}, *w.MissingValues...)
	}
	if out.metadata, err = splitExtras(data, schemaKeys); err != nil {
		return err
	}
	*s = *out
	return nil
}

type resourceAlias Resource

// MarshalJSON writes a Data Package resource descriptor.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return marshalWithExtras((*resourceAlias)(r), r.Metadata)
}

// UnmarshalJSON reads a Data Package resource descriptor.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var a resourceAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extras, err := splitExtras(data, resourceKeys)
	if err != nil {
		return err
	}
	*r = Resource(a)
	r.Metadata = extras
	if r.Schema == nil {
		r.Schema = &Schema{}
	}
	return nil
}

type packageWire struct {
	Name      string      `json:"name,omitempty"`
	Title     string      `json:"title,omitempty"`
	Resources []*Resource `json:"resources"`
}

// MarshalJSON writes a Data Package descriptor.
func (p *Package) MarshalJSON() ([]byte, error) {
	w := packageWire{Name: p.Name, Title: p.Title, Resources: p.resources}
	if w.Resources == nil {
		w.Resources = []*Resource{}
	}
	return marshalWithExtras(w, p.Metadata)
}

// UnmarshalJSON reads a Data Package descriptor.
func (p *Package) UnmarshalJSON(data []byte) error {
	var w packageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := NewPackage(w.Name, w.Resources...)
	if err != nil {
		return err
	}
	out.Title = w.Title
	if out.Metadata, err = splitExtras(data, packageKeys); err != nil {
		return err
	}
	*p = *out
	return nil
}

// marshalWithExtras encodes v and merges extras into the resulting object.
// Declared keys win over extras.
func marshalWithExtras(v any, extras map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extras) == 0 {
		return data, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for k, val := range extras {
		if _, ok := obj[k]; ok {
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// splitExtras returns the keys of a JSON object that are not in known.
func splitExtras(data []byte, known []string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(obj, k)
	}
	if len(obj) == 0 {
		return nil, nil
	}
	return obj, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
