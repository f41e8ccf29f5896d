package schema

import (
	"slices"
	"strconv"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/validation"
)

// DefaultMissingValues is used when a schema declares none.
var DefaultMissingValues = []string{""}

// Schema is an ordered, name-unique set of fields.
type Schema struct {
	fields        []Field
	index         map[string]int
	primaryKey    []string
	missingValues []string
	metadata      map[string]any
	frozen        bool
}

// NewSchema builds a schema from fields, rejecting duplicate names.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if err := s.AddField(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Intended for literals.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) checkMutable() error {
	if s.frozen {
		return errors.Schema("schema is frozen: rows may already be streaming")
	}
	return nil
}

func (s *Schema) reindex() {
	s.index = make(map[string]int, len(s.fields))
	for i, f := range s.fields {
		s.index[f.Name] = i
	}
}

// AddField appends a field.
func (s *Schema) AddField(f Field) error {
	return s.InsertField(len(s.fields), f)
}

// InsertField inserts a field at pos (clamped to the field range).
func (s *Schema) InsertField(pos int, f Field) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if f.Name == "" {
		return errors.Schema("field name is required")
	}
	if s.index == nil {
		s.reindex()
	}
	if _, ok := s.index[f.Name]; ok {
		return errors.DuplicateName("field", f.Name)
	}
	pos = max(0, min(pos, len(s.fields)))
	s.fields = slices.Insert(s.fields, pos, f.Clone())
	s.reindex()
	return nil
}

// RemoveField removes the named field and returns it.
func (s *Schema) RemoveField(name string) (Field, error) {
	if err := s.checkMutable(); err != nil {
		return Field{}, err
	}
	i := s.Index(name)
	if i < 0 {
		return Field{}, errors.MissingName("field", name)
	}
	f := s.fields[i]
	s.fields = slices.Delete(s.fields, i, i+1)
	s.primaryKey = slices.DeleteFunc(s.primaryKey, func(k string) bool { return k == name })
	s.reindex()
	return f, nil
}

// UpdateField applies fn to the named field. Renames are checked for
// collisions.
func (s *Schema) UpdateField(name string, fn func(f *Field)) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	i := s.Index(name)
	if i < 0 {
		return errors.MissingName("field", name)
	}
	updated := s.fields[i].Clone()
	fn(&updated)
	if updated.Name == "" {
		return errors.Schema("field name is required")
	}
	if updated.Name != name {
		if _, ok := s.index[updated.Name]; ok {
			return errors.DuplicateName("field", updated.Name)
		}
		for k, key := range s.primaryKey {
			if key == name {
				s.primaryKey[k] = updated.Name
			}
		}
	}
	s.fields[i] = updated
	s.reindex()
	return nil
}

// RenameFields renames several fields at once, mapping old names to new
// ones. Names not in the schema are ignored. Collisions are checked against
// the resulting field names, so two fields may swap names.
func (s *Schema) RenameFields(renames map[string]string) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	final := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		name := f.Name
		if to, ok := renames[name]; ok {
			if to == "" {
				return errors.Schema("field name is required")
			}
			name = to
		}
		if final[name] {
			return errors.DuplicateName("field", name)
		}
		final[name] = true
	}
	for i := range s.fields {
		if to, ok := renames[s.fields[i].Name]; ok {
			s.fields[i].Name = to
		}
	}
	for k, key := range s.primaryKey {
		if to, ok := renames[key]; ok {
			s.primaryKey[k] = to
		}
	}
	s.reindex()
	return nil
}

// ReorderFields moves the named fields to the front in the given order.
// Fields not named keep their relative order after them.
func (s *Schema) ReorderFields(names []string) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(names))
	out := make([]Field, 0, len(s.fields))
	for _, name := range names {
		i := s.Index(name)
		if i < 0 {
			return errors.MissingName("field", name)
		}
		if seen[name] {
			return errors.DuplicateName("field", name)
		}
		seen[name] = true
		out = append(out, s.fields[i])
	}
	for _, f := range s.fields {
		if !seen[f.Name] {
			out = append(out, f)
		}
	}
	s.fields = out
	s.reindex()
	return nil
}

// Field returns a copy of the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i := s.Index(name)
	if i < 0 {
		return Field{}, false
	}
	return s.fields[i].Clone(), true
}

// HasField reports whether the schema has a field with this name.
func (s *Schema) HasField(name string) bool {
	return s.Index(name) >= 0
}

// Index returns the ordinal position of the named field, or -1.
func (s *Schema) Index(name string) int {
	if s == nil {
		return -1
	}
	if s.index == nil {
		s.reindex()
	}
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// At returns the field at position i. The returned pointer must not be
// modified; use UpdateField.
func (s *Schema) At(i int) *Field {
	return &s.fields[i]
}

// Fields returns copies of all fields in order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Clone()
	}
	return out
}

// FieldNames returns the field names in order.
func (s *Schema) FieldNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// PrimaryKey returns the primary key field names.
func (s *Schema) PrimaryKey() []string {
	return slices.Clone(s.primaryKey)
}

// SetPrimaryKey sets the primary key. Every name must be a field.
func (s *Schema) SetPrimaryKey(names ...string) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	for _, n := range names {
		if !s.HasField(n) {
			return errors.MissingName("field", n)
		}
	}
	s.primaryKey = slices.Clone(names)
	return nil
}

// MissingValues returns the strings treated as missing, DefaultMissingValues
// when none are declared.
func (s *Schema) MissingValues() []string {
	if s == nil || s.missingValues == nil {
		return DefaultMissingValues
	}
	return s.missingValues
}

// SetMissingValues replaces the missing value list. An empty non-nil list
// disables missing value detection.
func (s *Schema) SetMissingValues(values []string) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	s.missingValues = slices.Clone(values)
	return nil
}

// Metadata returns the schema's custom properties.
func (s *Schema) Metadata() map[string]any {
	return s.metadata
}

// SetMetadata sets a custom property.
func (s *Schema) SetMetadata(key string, value any) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata[key] = value
	return nil
}

// Freeze makes the schema immutable.
func (s *Schema) Freeze() { s.frozen = true }

// Frozen reports whether the schema is immutable.
func (s *Schema) Frozen() bool { return s.frozen }

// Clone returns an unfrozen deep copy.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		fields:     make([]Field, len(s.fields)),
		primaryKey: slices.Clone(s.primaryKey),
		metadata:   cloneMap(s.metadata),
	}
	if s.missingValues != nil {
		out.missingValues = slices.Clone(s.missingValues)
	}
	for i, f := range s.fields {
		out.fields[i] = f.Clone()
	}
	out.reindex()
	return out
}

// Validate checks every field descriptor and the primary key.
func (s *Schema) Validate() error {
	v := validation.New()
	for i, f := range s.fields {
		f.check(v, fieldLabel(i, f.Name)+".")
	}
	for _, k := range s.primaryKey {
		v.Custom(s.HasField(k), "primaryKey", "unknown field "+k)
	}
	v.Unique("primaryKey", s.primaryKey)
	return v.Err()
}

func fieldLabel(i int, name string) string {
	if name == "" {
		return "fields[" + strconv.Itoa(i) + "]"
	}
	return "fields." + name
}
