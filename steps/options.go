package steps

import (
	"regexp"

	"github.com/kbukum/dataflow/schema"
)

// Option configures a step.
type Option func(*options)

type options struct {
	resources   []*regexp.Regexp
	format      string
	constraints *schema.Constraints
	position    int
	value       any
	compute     func(schema.Row) (any, error)
	reverse     bool
}

// Resources restricts a step to the named resources. Each name is matched
// as a whole, and may be a regular expression.
func Resources(names ...string) Option {
	return func(o *options) {
		for _, name := range names {
			re, err := regexp.Compile("^(?:" + name + ")$")
			if err != nil {
				re = regexp.MustCompile("^" + regexp.QuoteMeta(name) + "$")
			}
			o.resources = append(o.resources, re)
		}
	}
}

// WithFormat sets the format of a typed or added field.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithConstraints sets the constraints of a typed or added field.
func WithConstraints(c schema.Constraints) Option {
	return func(o *options) { o.constraints = &c }
}

// At inserts an added field at position pos instead of appending it.
func At(pos int) Option {
	return func(o *options) { o.position = pos }
}

// WithValue gives an added field a constant value.
func WithValue(v any) Option {
	return func(o *options) { o.value = v }
}

// WithFunc computes an added field from each row.
func WithFunc(fn func(schema.Row) (any, error)) Option {
	return func(o *options) { o.compute = fn }
}

// Descending sorts in reverse order.
func Descending() Option {
	return func(o *options) { o.reverse = true }
}

func newOptions(opts []Option) options {
	o := options{position: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) matches(name string) bool {
	if len(o.resources) == 0 {
		return true
	}
	for _, re := range o.resources {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
