package flow

import (
	"fmt"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/observability"
)

// DefaultName names flows created without WithName.
const DefaultName = "flow"

// Flow is an ordered list of steps. A Flow can be opened any number of times;
// each Open is an independent run.
type Flow struct {
	steps []Step

	name    string
	runID   string
	log     *logger.Logger
	caster  *cast.Caster
	metrics *observability.Metrics

	built    []Step
	buildErr error
}

// Option configures a Flow.
type Option func(*Flow)

// WithName sets the flow name used in logs, spans and metrics.
func WithName(name string) Option {
	return func(f *Flow) { f.name = name }
}

// WithLogger sets the flow's logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Flow) { f.log = l }
}

// WithCaster sets the caster used by seeds and made available to steps
// through CasterFrom.
func WithCaster(c *cast.Caster) Option {
	return func(f *Flow) { f.caster = c }
}

// WithRunID fixes the run id instead of generating one per run.
func WithRunID(id string) Option {
	return func(f *Flow) { f.runID = id }
}

// WithMetrics sets the metric instruments. Pass nil to disable metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

// New creates a flow from steps.
func New(steps ...Step) *Flow {
	return &Flow{
		steps:   steps,
		name:    DefaultName,
		log:     logger.Get("flow"),
		caster:  cast.Default(),
		metrics: observability.DefaultMetrics(),
	}
}

// With applies options and returns f.
func (f *Flow) With(opts ...Option) *Flow {
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the flow's name.
func (f *Flow) Name() string { return f.name }

// Step returns f as a nested step of another flow.
func (f *Flow) Step() Step { return Nested(f) }

// Build flattens nested flows and checks every step. It runs once; later
// calls return the cached result. Errors are StepSignatureErrors carrying the
// position of the offending step in the flattened list.
func (f *Flow) Build() ([]Step, error) {
	if f.built != nil || f.buildErr != nil {
		return f.built, f.buildErr
	}
	var out []Step
	if err := flatten(f, &out, map[*Flow]bool{}); err != nil {
		f.buildErr = err
		return nil, err
	}
	for i, s := range out {
		if err := check(i, s); err != nil {
			f.buildErr = err
			return nil, err
		}
	}
	if out == nil {
		out = []Step{}
	}
	f.built = out
	return out, nil
}

func flatten(f *Flow, out *[]Step, active map[*Flow]bool) error {
	active[f] = true
	defer delete(active, f)
	for _, s := range f.steps {
		if s.kind != KindNested {
			*out = append(*out, s)
			continue
		}
		switch {
		case s.flow == nil:
			return errors.StepSignature(len(*out), "nested flow is nil")
		case active[s.flow]:
			return errors.StepSignature(len(*out), fmt.Sprintf("flow %q includes itself", s.flow.name))
		}
		if err := flatten(s.flow, out, active); err != nil {
			return err
		}
	}
	return nil
}

func check(pos int, s Step) error {
	var missing bool
	switch s.kind {
	case KindRow:
		missing = s.row == nil
	case KindRows:
		missing = s.rows == nil
	case KindPackage:
		missing = s.pkg == nil
	case KindSeed:
		missing = s.seed == nil
		if pos != 0 {
			return errors.StepSignature(pos, "seed step must be the first step")
		}
	case KindCheckpoint:
		if s.store == nil || s.cpName == "" {
			return errors.StepSignature(pos, "checkpoint step needs a store and a name")
		}
	default:
		return errors.StepSignature(pos, fmt.Sprintf("unknown step kind %d", int(s.kind)))
	}
	if missing {
		return errors.StepSignature(pos, fmt.Sprintf("%s step has no function", s.kind))
	}
	return nil
}
