package cast

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
)

// Serialize converts a native value into its storage-neutral form: temporal
// values become ISO text, decimals their exact text, geopoints "lon,lat".
// Integers, booleans and strings are kept as they are; arrays, objects and
// any values are prepared with JSONValue.
func (c *Caster) Serialize(f schema.Field, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch f.EffectiveType() {
	case schema.TypeNumber:
		d, ok := value.(decimal.Decimal)
		if !ok {
			return nil, errors.Cast(f.Name, value, "type")
		}
		return decimalText(d), nil
	case schema.TypeDate:
		return formatTime(f, value, isoDate)
	case schema.TypeDatetime:
		return formatTime(f, value, isoDatetime)
	case schema.TypeTime:
		return formatTime(f, value, isoTime)
	case schema.TypeGeopoint:
		p, ok := value.(schema.GeoPoint)
		if !ok {
			return nil, errors.Cast(f.Name, value, "type")
		}
		return p.String(), nil
	case schema.TypeArray, schema.TypeObject, schema.TypeAny:
		return JSONValue(value), nil
	}
	return value, nil
}

// Text renders a native value as a single text cell, as written to CSV.
// Missing values render as the empty string.
func (c *Caster) Text(f schema.Field, value any) (string, error) {
	v, err := c.Serialize(f, value)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any, map[string]any:
		b, err := json.Marshal(t)
		return string(b), err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.Trim(string(b), `"`), nil
}

// decimalText keeps the exponent so Restore rebuilds an identical value.
func decimalText(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func formatTime(f schema.Field, value any, layout string) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return nil, errors.Cast(f.Name, value, "type")
	}
	return t.Format(layout), nil
}

// Restore reverses Serialize. It reads the serialized form regardless of the
// field's format, and performs no missing value mapping and no constraint
// checks.
func (c *Caster) Restore(f schema.Field, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	var (
		v  any
		ok bool
	)
	plain := schema.Field{Name: f.Name, Type: f.EffectiveType()}
	switch plain.Type {
	case schema.TypeString:
		return value, nil
	case schema.TypeAny:
		v, ok = Normalize(value)
	case schema.TypeInteger:
		v, ok = c.castInteger(&plain, value)
	case schema.TypeNumber:
		v, ok = c.castNumber(&plain, value)
	case schema.TypeBoolean:
		switch b := value.(type) {
		case bool:
			v, ok = b, true
		case string:
			var err error
			v, err = strconv.ParseBool(b)
			ok = err == nil
		}
	case schema.TypeDate:
		v, ok = restoreTime(value, isoDate)
	case schema.TypeDatetime:
		var t any
		if t, ok = restoreTime(value, isoDatetime); ok {
			v = normalizeZone(t.(time.Time))
		}
	case schema.TypeTime:
		v, ok = restoreTime(value, isoTime)
	case schema.TypeYear:
		v, ok = castYear(value)
	case schema.TypeArray:
		v, ok = castArray(value)
	case schema.TypeObject:
		v, ok = castObject(value)
	case schema.TypeGeopoint:
		v, ok = castGeopoint(schema.FormatDefault, value)
	}
	if !ok {
		return nil, errors.Cast(f.Name, value, "type")
	}
	return v, nil
}

func restoreTime(value any, layout string) (any, bool) {
	switch t := value.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(layout, t)
		return parsed, err == nil
	}
	return nil, false
}

// StorageSchema returns a copy of s whose fields use default formats and
// separators, matching what Serialize produces.
func StorageSchema(s *schema.Schema) *schema.Schema {
	out := s.Clone()
	for _, name := range out.FieldNames() {
		_ = out.UpdateField(name, func(f *schema.Field) {
			switch f.EffectiveType() {
			case schema.TypeString:
				return
			case schema.TypeBoolean:
				f.TrueValues = []string{"true"}
				f.FalseValues = []string{"false"}
			}
			f.Format = ""
			f.GroupChar = ""
			f.DecimalChar = ""
			f.BareNumber = nil
		})
	}
	return out
}
