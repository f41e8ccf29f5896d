package flow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/observability"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/version"
)

// Open builds the flow, runs every package step's describe phase in order
// and wires lazy row streams. No row moves until the returned Stream is
// pulled. The caller must Close the stream.
func (f *Flow) Open(ctx context.Context) (*Stream, error) {
	steps, err := f.Build()
	if err != nil {
		return nil, err
	}

	runID := f.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.ContextWithRunID(ctx, runID)
	log := f.log.WithContext(ctx)
	ctx = context.WithValue(ctx, casterKey{}, f.caster)
	ctx = context.WithValue(ctx, loggerKey{}, log)
	ctx, run := observability.StartRun(ctx, f.name, runID, f.metrics)

	s := &Stream{flow: f, runCtx: ctx, run: run, log: log, runID: runID}
	log.Info("flow started", logger.Fields("flow", f.name, "steps", len(steps), "engine", version.Short()))

	if err := s.wire(ctx, steps); err != nil {
		s.fail(err)
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// wiring is the package descriptor and its streams between two steps.
type wiring struct {
	pkg     *schema.Package
	streams []schema.RowIterator
}

func (s *Stream) wire(ctx context.Context, steps []Step) error {
	w := wiring{pkg: &schema.Package{}}
	w.pkg.Freeze()

	start, err := s.resume(ctx, steps, &w)
	if err != nil {
		return err
	}

	for pos := start; pos < len(steps); pos++ {
		step := steps[pos]
		s.executed = append(s.executed, step)
		switch step.kind {
		case KindSeed:
			err = s.wireSeed(ctx, pos, step, &w)
		case KindRow:
			s.wireRow(pos, step, &w)
		case KindRows:
			s.wireRows(pos, step, &w)
		case KindPackage:
			err = s.wirePackage(ctx, pos, step, &w)
		case KindCheckpoint:
			s.wireCheckpoint(pos, step, &w)
		}
		if err != nil {
			return err
		}
		s.log.Debug("step wired", logger.Fields(
			"position", pos, "kind", step.kind.String(), "name", step.name,
			"resources", w.pkg.Len(),
		))
	}

	s.pkg = w.pkg
	s.outputs = make([]schema.RowIterator, len(w.streams))
	s.counts = make([]int64, len(w.streams))
	s.taken = make([]bool, len(w.streams))
	for i, it := range w.streams {
		s.outputs[i] = &outputIter{stream: s, index: i, src: it}
	}
	return nil
}

// resume finds the last checkpoint step with a saved record and loads it.
// It returns the position of the first step still to run.
func (s *Stream) resume(ctx context.Context, steps []Step, w *wiring) (int, error) {
	for pos := len(steps) - 1; pos >= 0; pos-- {
		step := steps[pos]
		if step.kind != KindCheckpoint {
			continue
		}
		ok, err := step.store.Exists(ctx, step.cpName)
		if err != nil {
			return 0, annotate(err, pos, step, "", -1)
		}
		if !ok {
			continue
		}
		pkg, streams, err := step.store.Load(ctx, step.cpName)
		if err != nil {
			return 0, annotate(err, pos, step, "", -1)
		}
		pkg.Freeze()
		w.pkg = pkg
		w.streams = make([]schema.RowIterator, len(streams))
		for i, it := range streams {
			w.streams[i] = s.stepStream(it, pos, step, pkg.ResourceAt(i).Name)
		}
		s.log.Debug("resuming from checkpoint", logger.Fields(
			"checkpoint", step.cpName, "position", pos, "skipped_steps", pos,
		))
		return pos + 1, nil
	}
	return 0, nil
}

func (s *Stream) wireSeed(ctx context.Context, pos int, step Step, w *wiring) error {
	res, it, err := step.seed(ctx)
	if err != nil {
		return annotate(err, pos, step, "", -1)
	}
	if it == nil {
		it = pipeline.Empty[schema.Row]()
	}
	it = s.track(it)
	if res == nil {
		res = schema.NewResource("res_1", nil)
	}
	caster := s.flow.caster
	if res.Schema == nil || res.Schema.Len() == 0 {
		inferred, replay, err := caster.InferStream(ctx, it)
		if err != nil {
			return annotate(err, pos, step, res.Name, -1)
		}
		it = s.track(replay)
		res.Schema = inferred
	}
	pkg, err := schema.NewPackage("", res)
	if err != nil {
		return annotate(err, pos, step, res.Name, -1)
	}
	if err := pkg.Validate(); err != nil {
		return annotate(err, pos, step, res.Name, -1)
	}
	pkg.Freeze()

	sch := res.Schema
	casted := pipeline.Map(it, func(_ context.Context, row schema.Row) (schema.Row, error) {
		return caster.CastRow(sch, row)
	})
	w.pkg = pkg
	w.streams = []schema.RowIterator{s.stepStream(casted, pos, step, res.Name)}
	return nil
}

func (s *Stream) wireRow(pos int, step Step, w *wiring) {
	fn := step.row
	for i, it := range w.streams {
		mapped := pipeline.Map(it, func(ctx context.Context, row schema.Row) (schema.Row, error) {
			out, err := fn(ctx, row)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return row, nil
			}
			return out, nil
		})
		w.streams[i] = s.stepStream(mapped, pos, step, w.pkg.ResourceAt(i).Name)
	}
}

func (s *Stream) wireRows(pos int, step Step, w *wiring) {
	fn := step.rows
	for i, it := range w.streams {
		name := w.pkg.ResourceAt(i).Name
		res := w.pkg.ResourceAt(i).Clone()
		res.Schema.Freeze()
		src := it
		deferred := pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
			out, err := fn(ctx, res, src)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return nil, errors.PackageContract("rows step returned no stream for resource %q", name)
			}
			return s.track(out), nil
		})
		w.streams[i] = s.stepStream(deferred, pos, step, name)
	}
}

func (s *Stream) wirePackage(ctx context.Context, pos int, step Step, w *wiring) error {
	next := w.pkg.Clone()
	if err := step.pkg.Describe(ctx, next); err != nil {
		return annotate(err, pos, step, "", -1)
	}
	if err := next.Validate(); err != nil {
		return annotate(err, pos, step, "", -1)
	}
	next.Freeze()

	in := newInputs(w.pkg, w.streams)
	outs, err := step.pkg.Process(ctx, next, in)
	if err != nil {
		return annotate(err, pos, step, "", -1)
	}
	if len(outs) != next.Len() {
		return annotate(errors.PackageContract(
			"package step returned %d streams for %d resources", len(outs), next.Len(),
		), pos, step, "", -1)
	}
	streams := make([]schema.RowIterator, len(outs))
	for i, it := range outs {
		name := next.ResourceAt(i).Name
		if it == nil {
			return annotate(errors.PackageContract("package step returned no stream for resource %q", name), pos, step, name, -1)
		}
		streams[i] = s.stepStream(s.track(it), pos, step, name)
	}
	s.pending = append(s.pending, in.untaken()...)

	w.pkg = next
	w.streams = streams
	return nil
}

func (s *Stream) wireCheckpoint(pos int, step Step, w *wiring) {
	cp := &checkpointRun{stream: s, step: step, pkg: w.pkg, upstream: w.streams}
	if len(w.streams) == 0 {
		// nothing will ever be pulled; save once the run is consumed
		s.finalize = append(s.finalize, func(ctx context.Context) error {
			if err := cp.save(ctx); err != nil {
				return annotate(err, pos, step, "", -1)
			}
			return nil
		})
		return
	}
	streams := make([]schema.RowIterator, len(w.streams))
	for i := range w.streams {
		idx := i
		deferred := pipeline.Defer(func(ctx context.Context) (schema.RowIterator, error) {
			return cp.replay(ctx, idx)
		})
		streams[i] = s.stepStream(deferred, pos, step, w.pkg.ResourceAt(i).Name)
	}
	w.streams = streams
}

// checkpointRun saves the package on the first pull of any of its resources
// and then serves every resource from the saved record.
type checkpointRun struct {
	stream   *Stream
	step     Step
	pkg      *schema.Package
	upstream []schema.RowIterator

	once   sync.Once
	loaded []schema.RowIterator
	err    error
}

func (c *checkpointRun) replay(ctx context.Context, i int) (schema.RowIterator, error) {
	if err := c.save(ctx); err != nil {
		return nil, err
	}
	return c.loaded[i], nil
}

func (c *checkpointRun) save(ctx context.Context) error {
	c.once.Do(func() {
		ctx, span := observability.StartSpan(ctx, observability.SpanCheckpointSave)
		defer span.End()
		if c.err = c.step.store.Save(ctx, c.step.cpName, c.pkg, c.upstream); c.err != nil {
			return
		}
		var pkg *schema.Package
		pkg, c.loaded, c.err = c.step.store.Load(ctx, c.step.cpName)
		if c.err == nil && pkg.Len() != len(c.upstream) {
			c.err = errors.PackageContract("checkpoint %q reloaded %d resources, saved %d", c.step.cpName, pkg.Len(), len(c.upstream))
		}
		for i, it := range c.loaded {
			c.loaded[i] = c.stream.track(it)
		}
		c.stream.log.Debug("checkpoint saved", logger.Fields("checkpoint", c.step.cpName))
	})
	return c.err
}

// track registers it for release by Stream.Close and returns it wrapped so
// that closing it more than once is harmless.
func (s *Stream) track(it schema.RowIterator) schema.RowIterator {
	if g, ok := it.(*guardedIter); ok {
		return g
	}
	g := &guardedIter{src: it}
	s.mu.Lock()
	s.closers = append(s.closers, g)
	s.mu.Unlock()
	return g
}

type guardedIter struct {
	src  schema.RowIterator
	once sync.Once
	err  error
}

func (g *guardedIter) Next(ctx context.Context) (schema.Row, bool, error) {
	return g.src.Next(ctx)
}

func (g *guardedIter) Close() error {
	g.once.Do(func() { g.err = g.src.Close() })
	return g.err
}

// stepStream attributes errors raised by src to the step at pos.
func (s *Stream) stepStream(src schema.RowIterator, pos int, step Step, resource string) schema.RowIterator {
	return s.track(&stepIter{src: src, pos: pos, step: step, resource: resource})
}

type stepIter struct {
	src      schema.RowIterator
	pos      int
	step     Step
	resource string
	row      int
}

func (it *stepIter) Next(ctx context.Context) (schema.Row, bool, error) {
	row, ok, err := it.src.Next(ctx)
	if err != nil {
		return nil, false, annotate(err, it.pos, it.step, it.resource, it.row)
	}
	if ok {
		it.row++
	}
	return row, ok, nil
}

func (it *stepIter) Close() error { return it.src.Close() }

// annotate attributes err to a step unless an earlier step already claimed
// it. Plain errors become STEP_FAILED errors. row < 0 means no row.
func annotate(err error, pos int, step Step, resource string, row int) error {
	appErr, ok := errors.AsAppError(err)
	switch {
	case ok && appErr.HasStep():
		return err
	case !ok:
		appErr = errors.StepFailed(err)
	}
	details := map[string]any{
		errors.DetailStep:     pos,
		errors.DetailStepKind: step.kind.String(),
	}
	if step.name != "" {
		details["step_name"] = step.name
	}
	if resource != "" {
		details[errors.DetailResource] = resource
	}
	if row >= 0 {
		details[errors.DetailRow] = row
	}
	return appErr.WithDetails(details)
}
