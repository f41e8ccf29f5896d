package steps

import (
	"context"
	"slices"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// Predicate decides whether a row is kept.
type Predicate func(ctx context.Context, row schema.Row) (bool, error)

// FilterRows keeps the rows of every matched resource for which keep
// returns true. Order is preserved.
func FilterRows(keep Predicate, opts ...Option) flow.Step {
	o := newOptions(opts)
	return flow.RowsStep(func(_ context.Context, res *schema.Resource, rows schema.RowIterator) (schema.RowIterator, error) {
		if !o.matches(res.Name) {
			return rows, nil
		}
		return pipeline.Filter(rows, keep), nil
	}).Named("filter_rows")
}

// FilterEqual keeps rows whose field equals value. value is cast to the
// field's type first, so "3" matches an integer 3.
func FilterEqual(field string, value any, opts ...Option) flow.Step {
	return compareFilter("filter_equal", field, value, true, opts)
}

// FilterNotEqual drops rows whose field equals value.
func FilterNotEqual(field string, value any, opts ...Option) flow.Step {
	return compareFilter("filter_not_equal", field, value, false, opts)
}

func compareFilter(name, field string, value any, equal bool, opts []Option) flow.Step {
	o := newOptions(opts)
	return flow.RowsStep(func(ctx context.Context, res *schema.Resource, rows schema.RowIterator) (schema.RowIterator, error) {
		if !o.matches(res.Name) {
			return rows, nil
		}
		f, ok := res.Schema.Field(field)
		if !ok {
			return nil, errors.MissingName("field", field)
		}
		want, err := flow.CasterFrom(ctx).Cast(f, value)
		if err != nil {
			return nil, err
		}
		return pipeline.Filter(rows, func(_ context.Context, row schema.Row) (bool, error) {
			return cast.Equal(row[field], want) == equal, nil
		}), nil
	}).Named(name)
}

// SortRows orders the rows of every matched resource by the values of keys,
// compared left to right. The sort is stable; missing values sort first, or
// last with Descending. Each sorted resource is held in memory.
func SortRows(keys []string, opts ...Option) flow.Step {
	o := newOptions(opts)
	return flow.RowsStep(func(ctx context.Context, res *schema.Resource, rows schema.RowIterator) (schema.RowIterator, error) {
		if !o.matches(res.Name) {
			return rows, nil
		}
		for _, k := range keys {
			if !res.Schema.HasField(k) {
				return nil, errors.MissingName("field", k)
			}
		}
		all, err := pipeline.Collect(ctx, rows)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(all, func(a, b schema.Row) int {
			for _, k := range keys {
				if c := cast.Compare(a[k], b[k]); c != 0 {
					if o.reverse {
						return -c
					}
					return c
				}
			}
			return 0
		})
		return pipeline.FromSlice(all), nil
	}).Named("sort_rows")
}
