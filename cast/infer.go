package cast

import (
	"context"
	"sort"

	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// inferOrder lists candidate types, narrowest first.
var inferOrder = []schema.FieldType{
	schema.TypeInteger,
	schema.TypeNumber,
	schema.TypeBoolean,
	schema.TypeDate,
	schema.TypeDatetime,
	schema.TypeArray,
	schema.TypeObject,
	schema.TypeString,
}

// Infer builds a schema from sample rows. Each field gets the first type in
// integer, number, boolean, date, datetime, array, object, string that casts
// every non-missing sampled value. Fields with only missing values are
// strings; fields whose values fit none of the candidates are "any".
//
// Field order is order of first appearance; keys first seen in the same row
// are sorted by name.
func (c *Caster) Infer(rows []schema.Row) *schema.Schema {
	var names []string
	seen := make(map[string]bool)
	for _, row := range rows {
		var fresh []string
		for k := range row {
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		names = append(names, fresh...)
	}

	s, _ := schema.NewSchema()
	for _, name := range names {
		// names are unique, AddField cannot fail
		_ = s.AddField(schema.NewField(name, c.inferType(name, rows)))
	}
	return s
}

func (c *Caster) inferType(name string, rows []schema.Row) schema.FieldType {
	var values []any
	for _, row := range rows {
		if v, ok := row[name]; ok && !isMissing(v, schema.DefaultMissingValues) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return schema.TypeString
	}
	for _, typ := range inferOrder {
		f := schema.NewField(name, typ)
		fits := true
		for _, v := range values {
			if _, err := c.castType(&f, v); err != nil {
				fits = false
				break
			}
		}
		if fits {
			return typ
		}
	}
	return schema.TypeAny
}

// InferStream samples up to Options.InferSampleSize rows from it, infers a
// schema from them, and returns an iterator that replays the sample before
// the rest of the stream.
func (c *Caster) InferStream(ctx context.Context, it schema.RowIterator) (*schema.Schema, schema.RowIterator, error) {
	head, replay, err := pipeline.Peek(ctx, it, c.opts.InferSampleSize)
	if err != nil {
		return nil, nil, err
	}
	return c.Infer(head), replay, nil
}
