package cast

import (
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
)

// checkConstraints validates an already cast value. raw is the input before
// casting; pattern constraints match against raw text when there is one.
func (c *Caster) checkConstraints(f *schema.Field, raw, v any) error {
	cons := f.Constraints
	bare := f.Clone()
	bare.Constraints = nil

	if len(cons.Enum) > 0 {
		found := false
		for _, e := range cons.Enum {
			ev, err := c.castType(&bare, e)
			if err == nil && equalValues(ev, v) {
				found = true
				break
			}
		}
		if !found {
			return errors.Cast(f.Name, raw, "enum")
		}
	}

	if cons.Pattern != "" {
		text, ok := raw.(string)
		if !ok {
			text, ok = v.(string)
		}
		if ok {
			re, err := c.pattern(cons.Pattern)
			if err != nil || !re.MatchString(text) {
				return errors.Cast(f.Name, raw, "pattern")
			}
		}
	}

	if cons.Minimum != nil {
		bound, err := c.castType(&bare, cons.Minimum)
		if err == nil {
			if cmp, ok := compareValues(v, bound); ok && cmp < 0 {
				return errors.Cast(f.Name, raw, "minimum")
			}
		}
	}
	if cons.Maximum != nil {
		bound, err := c.castType(&bare, cons.Maximum)
		if err == nil {
			if cmp, ok := compareValues(v, bound); ok && cmp > 0 {
				return errors.Cast(f.Name, raw, "maximum")
			}
		}
	}

	if cons.MinLength != nil || cons.MaxLength != nil {
		if n, ok := length(v); ok {
			if cons.MinLength != nil && n < *cons.MinLength {
				return errors.Cast(f.Name, raw, "minLength")
			}
			if cons.MaxLength != nil && n > *cons.MaxLength {
				return errors.Cast(f.Name, raw, "maxLength")
			}
		}
	}
	return nil
}

func length(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t), true
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	}
	return 0, false
}

// compareValues orders two values of the same native type.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		if !ok {
			return 0, false
		}
		return x.Cmp(y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// equalValues compares native values, treating numerically equal decimals and
// equal instants as equal.
func equalValues(a, b any) bool {
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
