package steps

import (
	"context"
	"slices"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

type rowMapper = func(ctx context.Context, row schema.Row) (schema.Row, error)

// fieldStep edits the schema of every matched resource when the flow is
// opened and maps the rows of those resources afterwards. Every name in
// required must exist in at least one matched resource.
type fieldStep struct {
	o        options
	required []string
	describe func(res *schema.Resource, seen map[string]bool) error
	// rows returns the row mapper of one resource, nil to pass it through.
	rows func(ctx context.Context, upstream, res *schema.Resource) rowMapper
}

func (s *fieldStep) Describe(_ context.Context, pkg *schema.Package) error {
	seen := make(map[string]bool)
	for _, res := range pkg.Resources() {
		if !s.o.matches(res.Name) {
			continue
		}
		if err := s.describe(res, seen); err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				return appErr.WithDetail(errors.DetailResource, res.Name)
			}
			return err
		}
	}
	for _, name := range s.required {
		if !seen[name] {
			return errors.MissingName("field", name)
		}
	}
	return nil
}

func (s *fieldStep) Process(ctx context.Context, pkg *schema.Package, in *flow.Inputs) ([]schema.RowIterator, error) {
	out := make([]schema.RowIterator, pkg.Len())
	for i, res := range pkg.Resources() {
		it, err := in.Stream(i)
		if err != nil {
			return nil, err
		}
		if s.o.matches(res.Name) {
			if fn := s.rows(ctx, in.Package().ResourceAt(i), res); fn != nil {
				it = pipeline.Map(it, fn)
			}
		}
		out[i] = it
	}
	return out, nil
}

// SetType changes the type of field and re-casts its values as they stream
// past. Non-string values typed as string are rendered as text first.
func SetType(field string, typ schema.FieldType, opts ...Option) flow.Step {
	o := newOptions(opts)
	return flow.PackageStep(&fieldStep{
		o:        o,
		required: []string{field},
		describe: func(res *schema.Resource, seen map[string]bool) error {
			if !res.Schema.HasField(field) {
				return nil
			}
			seen[field] = true
			return res.Schema.UpdateField(field, func(f *schema.Field) {
				if f.Type != typ {
					f.Format = ""
				}
				f.Type = typ
				if o.format != "" {
					f.Format = o.format
				}
				if o.constraints != nil {
					f.Constraints = o.constraints
				}
			})
		},
		rows: func(ctx context.Context, upstream, res *schema.Resource) rowMapper {
			f, ok := res.Schema.Field(field)
			if !ok {
				return nil
			}
			prev, _ := upstream.Schema.Field(field)
			caster := flow.CasterFrom(ctx)
			return func(_ context.Context, row schema.Row) (schema.Row, error) {
				v := row[field]
				if _, isText := v.(string); f.EffectiveType() == schema.TypeString && v != nil && !isText {
					s, err := caster.Text(prev, v)
					if err != nil {
						return nil, err
					}
					v = s
				}
				cv, err := caster.CastIn(res.Schema, f, v)
				if err != nil {
					return nil, err
				}
				out := row.Clone()
				out[field] = cv
				return out, nil
			}
		},
	}).Named("set_type")
}

// AddField adds a field to every matched resource. Its value is set with
// WithValue or computed with WithFunc, and cast to typ; without either it
// is missing.
func AddField(name string, typ schema.FieldType, opts ...Option) flow.Step {
	o := newOptions(opts)
	field := schema.NewField(name, typ)
	field.Format = o.format
	field.Constraints = o.constraints
	return flow.PackageStep(&fieldStep{
		o: o,
		describe: func(res *schema.Resource, _ map[string]bool) error {
			if o.position >= 0 {
				return res.Schema.InsertField(o.position, field)
			}
			return res.Schema.AddField(field)
		},
		rows: func(ctx context.Context, _, res *schema.Resource) rowMapper {
			caster := flow.CasterFrom(ctx)
			return func(_ context.Context, row schema.Row) (schema.Row, error) {
				v := o.value
				if o.compute != nil {
					var err error
					if v, err = o.compute(row); err != nil {
						return nil, err
					}
				}
				cv, err := caster.CastIn(res.Schema, field, v)
				if err != nil {
					return nil, err
				}
				out := row.Clone()
				out[name] = cv
				return out, nil
			}
		},
	}).Named("add_field")
}

// DeleteFields removes fields from every matched resource that has them.
func DeleteFields(names []string, opts ...Option) flow.Step {
	o := newOptions(opts)
	return flow.PackageStep(&fieldStep{
		o:        o,
		required: names,
		describe: func(res *schema.Resource, seen map[string]bool) error {
			for _, name := range names {
				if !res.Schema.HasField(name) {
					continue
				}
				seen[name] = true
				if _, err := res.Schema.RemoveField(name); err != nil {
					return err
				}
			}
			return nil
		},
		rows: func(context.Context, *schema.Resource, *schema.Resource) rowMapper {
			return func(_ context.Context, row schema.Row) (schema.Row, error) {
				out := row.Clone()
				for _, name := range names {
					delete(out, name)
				}
				return out, nil
			}
		},
	}).Named("delete_fields")
}

// SelectFields keeps only the named fields, in the given order, in every
// matched resource.
func SelectFields(names []string, opts ...Option) flow.Step {
	o := newOptions(opts)
	return flow.PackageStep(&fieldStep{
		o:        o,
		required: names,
		describe: func(res *schema.Resource, seen map[string]bool) error {
			var keep []string
			for _, name := range names {
				if res.Schema.HasField(name) && !slices.Contains(keep, name) {
					seen[name] = true
					keep = append(keep, name)
				}
			}
			for _, name := range res.Schema.FieldNames() {
				if !slices.Contains(keep, name) {
					if _, err := res.Schema.RemoveField(name); err != nil {
						return err
					}
				}
			}
			return res.Schema.ReorderFields(keep)
		},
		rows: func(_ context.Context, _, res *schema.Resource) rowMapper {
			keep := res.Schema.FieldNames()
			return func(_ context.Context, row schema.Row) (schema.Row, error) {
				out := make(schema.Row, len(keep))
				for _, name := range keep {
					if v, ok := row[name]; ok {
						out[name] = v
					}
				}
				return out, nil
			}
		},
	}).Named("select_fields")
}

// RenameFields renames fields, mapping old names to new ones, in every
// matched resource.
func RenameFields(renames map[string]string, opts ...Option) flow.Step {
	o := newOptions(opts)
	from := make([]string, 0, len(renames))
	for k := range renames {
		from = append(from, k)
	}
	slices.Sort(from)
	return flow.PackageStep(&fieldStep{
		o:        o,
		required: from,
		describe: func(res *schema.Resource, seen map[string]bool) error {
			for _, name := range from {
				if res.Schema.HasField(name) {
					seen[name] = true
				}
			}
			return res.Schema.RenameFields(renames)
		},
		rows: func(_ context.Context, upstream, _ *schema.Resource) rowMapper {
			var present []string
			for _, name := range from {
				if upstream.Schema.HasField(name) {
					present = append(present, name)
				}
			}
			if len(present) == 0 {
				return nil
			}
			return func(_ context.Context, row schema.Row) (schema.Row, error) {
				out := row.Clone()
				for _, name := range present {
					delete(out, name)
				}
				for _, name := range present {
					if v, ok := row[name]; ok {
						out[renames[name]] = v
					}
				}
				return out, nil
			}
		},
	}).Named("rename_fields")
}
