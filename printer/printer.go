// Package printer renders the head of each resource as a text table while
// the rows stream through.
package printer

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/validation"
)

// Options configures Print.
type Options struct {
	// Limit is the number of rows printed per resource. Defaults to 10.
	Limit int `yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	// MaxWidth truncates longer cells. Defaults to 40.
	MaxWidth int `yaml:"max_width" mapstructure:"max_width" validate:"gte=0"`
	// Resources restricts printing to the named resources.
	Resources []string `yaml:"resources" mapstructure:"resources"`
}

// ApplyDefaults fills unset fields.
func (o *Options) ApplyDefaults() {
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = 40
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	return validation.Validate(o)
}

// Print writes the first opts.Limit rows of every resource to w. Every row
// is passed on unchanged. A resource's table is written once its head is
// complete; the row count follows when the resource ends.
func Print(w io.Writer, opts Options) flow.Step {
	opts.ApplyDefaults()
	return flow.RowsStep(func(ctx context.Context, res *schema.Resource, rows schema.RowIterator) (schema.RowIterator, error) {
		if err := opts.Validate(); err != nil {
			return nil, err
		}
		if len(opts.Resources) > 0 && !slices.Contains(opts.Resources, res.Name) {
			return rows, nil
		}
		return &printIter{
			src:    rows,
			w:      w,
			res:    res,
			opts:   opts,
			caster: flow.CasterFrom(ctx),
		}, nil
	}).Named("print")
}

type printIter struct {
	src    schema.RowIterator
	w      io.Writer
	res    *schema.Resource
	opts   Options
	caster *cast.Caster

	head    [][]string
	printed bool
	ended   bool
	count   int64
}

func (it *printIter) Next(ctx context.Context) (schema.Row, bool, error) {
	row, ok, err := it.src.Next(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if it.ended {
			return nil, false, nil
		}
		it.ended = true
		if err := it.flush(); err != nil {
			return nil, false, err
		}
		_, err := fmt.Fprintf(it.w, "%s\n\n", rowCount(it.count))
		return nil, false, err
	}

	it.count++
	if len(it.head) < it.opts.Limit {
		cells, err := it.cells(row)
		if err != nil {
			return nil, false, err
		}
		it.head = append(it.head, cells)
		if len(it.head) == it.opts.Limit {
			if err := it.flush(); err != nil {
				return nil, false, err
			}
		}
	}
	return row, true, nil
}

func (it *printIter) cells(row schema.Row) ([]string, error) {
	sch := it.res.Schema
	out := make([]string, sch.Len())
	for i := range out {
		f := sch.At(i)
		s, err := it.caster.Text(*f, row[f.Name])
		if err != nil {
			return nil, err
		}
		out[i] = truncate(s, it.opts.MaxWidth)
	}
	return out, nil
}

// flush writes the table once.
func (it *printIter) flush() error {
	if it.printed {
		return nil
	}
	it.printed = true

	tw := tabwriter.NewWriter(it.w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\n", it.res.Name); err != nil {
		return err
	}
	lines := append([][]string{it.res.Schema.FieldNames()}, it.head...)
	for _, cells := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	it.head = nil
	return tw.Flush()
}

// Close prints what was read of an unfinished resource.
func (it *printIter) Close() error {
	if !it.ended {
		_ = it.flush()
	}
	return it.src.Close()
}

func rowCount(n int64) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
