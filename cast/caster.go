package cast

import (
	"regexp"
	"slices"
	"sync"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
)

// Caster casts values against field descriptors. It is safe for concurrent
// use.
type Caster struct {
	opts     Options
	patterns sync.Map // pattern -> *regexp.Regexp
}

// New returns a caster with opts, defaults applied.
func New(opts Options) *Caster {
	opts.ApplyDefaults()
	return &Caster{opts: opts}
}

// Default returns a caster with default options.
func Default() *Caster {
	return New(Options{})
}

// Options returns the caster's effective options.
func (c *Caster) Options() Options {
	return c.opts
}

// Cast converts value to the field's native type and checks its constraints.
// Missing values are recognized with schema.DefaultMissingValues.
func (c *Caster) Cast(f schema.Field, value any) (any, error) {
	return c.castField(&f, value, schema.DefaultMissingValues)
}

// CastIn is Cast with the missing values declared by s.
func (c *Caster) CastIn(s *schema.Schema, f schema.Field, value any) (any, error) {
	return c.castField(&f, value, s.MissingValues())
}

// CastRow casts every schema field of row. The result holds exactly the
// schema's fields; absent keys are treated as missing.
func (c *Caster) CastRow(s *schema.Schema, row schema.Row) (schema.Row, error) {
	missing := s.MissingValues()
	out := make(schema.Row, s.Len())
	for i := 0; i < s.Len(); i++ {
		f := s.At(i)
		v, err := c.castField(f, row[f.Name], missing)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (c *Caster) castField(f *schema.Field, value any, missing []string) (any, error) {
	if isMissing(value, missing) {
		if f.Required() {
			return nil, errors.Cast(f.Name, value, "required")
		}
		return nil, nil
	}
	v, err := c.castType(f, value)
	if err != nil {
		return nil, err
	}
	if f.Constraints != nil {
		if err := c.checkConstraints(f, value, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func isMissing(value any, missing []string) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return slices.Contains(missing, v)
	}
	return false
}

func (c *Caster) castType(f *schema.Field, value any) (any, error) {
	var (
		v  any
		ok bool
	)
	switch f.EffectiveType() {
	case schema.TypeString:
		return c.castString(f, value)
	case schema.TypeInteger:
		v, ok = c.castInteger(f, value)
	case schema.TypeNumber:
		v, ok = c.castNumber(f, value)
	case schema.TypeBoolean:
		v, ok = c.castBoolean(f, value)
	case schema.TypeDate:
		v, ok = c.castDate(f, value)
	case schema.TypeDatetime:
		v, ok = c.castDatetime(f, value)
	case schema.TypeTime:
		v, ok = c.castTime(f, value)
	case schema.TypeYear:
		v, ok = castYear(value)
	case schema.TypeArray:
		v, ok = castArray(value)
	case schema.TypeObject:
		v, ok = castObject(value)
	case schema.TypeGeopoint:
		v, ok = castGeopoint(f.EffectiveFormat(), value)
	case schema.TypeAny:
		v, ok = Normalize(value)
	default:
		return nil, errors.Cast(f.Name, value, "type").
			WithDetail("type", string(f.Type))
	}
	if !ok {
		return nil, errors.Cast(f.Name, value, "type").
			WithDetail("type", string(f.EffectiveType()))
	}
	return v, nil
}

func (c *Caster) pattern(p string) (*regexp.Regexp, error) {
	if re, ok := c.patterns.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + p + `)$`)
	if err != nil {
		return nil, err
	}
	c.patterns.Store(p, re)
	return re, nil
}
