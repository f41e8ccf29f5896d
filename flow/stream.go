package flow

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/observability"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// Stream is an opened flow: the final package descriptor plus one lazy row
// stream per resource. Each resource stream can be taken once.
type Stream struct {
	flow   *Flow
	runCtx context.Context
	run    *observability.RunContext
	log    *logger.Logger
	runID  string

	executed []Step
	pkg      *schema.Package
	outputs  []schema.RowIterator
	counts   []int64
	taken    []bool
	pending  []schema.RowIterator
	finalize []func(context.Context) error

	mu      sync.Mutex
	closers []*guardedIter
	err     error
	closed  bool
}

// Package returns the final, frozen package descriptor.
func (s *Stream) Package() *schema.Package { return s.pkg }

// Len returns the number of output resources.
func (s *Stream) Len() int { return len(s.outputs) }

// RunID returns the id of this run.
func (s *Stream) RunID() string { return s.runID }

// Resource takes the row stream of the i-th output resource.
func (s *Stream) Resource(i int) (schema.RowIterator, error) {
	if i < 0 || i >= len(s.outputs) {
		return nil, errors.MissingName("resource", "#"+strconv.Itoa(i))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken[i] {
		return nil, errors.ExhaustedStream(s.pkg.ResourceAt(i).Name)
	}
	s.taken[i] = true
	return s.outputs[i], nil
}

// ByName takes the row stream of the output resource called name.
func (s *Stream) ByName(name string) (schema.RowIterator, error) {
	i := s.pkg.Index(name)
	if i < 0 {
		return nil, errors.MissingName("resource", name)
	}
	return s.Resource(i)
}

// Rows returns the number of rows emitted so far by the i-th resource.
func (s *Stream) Rows(i int) int64 {
	return atomic.LoadInt64(&s.counts[i])
}

// Finish drains the streams that package steps dropped so that their
// upstream side effects happen, and returns the first error seen by the run.
// Call it after consuming the output resources.
func (s *Stream) Finish(ctx context.Context) error {
	ctx = bind(ctx, s.runCtx)
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, it := range pending {
		if err := pipeline.Drain(ctx, it, func(context.Context, schema.Row) error { return nil }); err != nil {
			s.fail(err)
			break
		}
	}
	if s.Err() != nil {
		return s.Err()
	}
	s.mu.Lock()
	finalize := s.finalize
	s.finalize = nil
	s.mu.Unlock()
	for _, fn := range finalize {
		if err := fn(ctx); err != nil {
			s.fail(err)
			break
		}
	}
	return s.Err()
}

// Err returns the first error observed on any output stream.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases every stream of the run and records its outcome. It is safe
// to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.mu.Unlock()

	var closeErr error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	runErr := s.Err()
	code := ""
	if appErr, ok := errors.AsAppError(runErr); ok {
		code = string(appErr.Code)
	}
	s.run.End(s.runCtx, code, runErr)

	fields := logger.Fields("flow", s.flow.name, logger.FieldDuration, s.run.Duration().Milliseconds())
	if runErr != nil {
		s.log.Error("flow failed", logger.MergeWithError(fields, runErr))
	} else {
		s.log.Info("flow finished", fields)
	}
	return closeErr
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// outputIter runs the final stream of a resource under the run's context and
// counts its rows.
type outputIter struct {
	stream *Stream
	index  int
	src    schema.RowIterator
	done   bool
}

func (it *outputIter) Next(ctx context.Context) (schema.Row, bool, error) {
	s := it.stream
	ctx = bind(ctx, s.runCtx)
	row, ok, err := it.src.Next(ctx)
	switch {
	case err != nil:
		s.fail(err)
		return nil, false, err
	case ok:
		atomic.AddInt64(&s.counts[it.index], 1)
	case !it.done:
		it.done = true
		s.run.Rows(ctx, s.pkg.ResourceAt(it.index).Name, s.Rows(it.index))
	}
	return row, ok, nil
}

func (it *outputIter) Close() error { return it.src.Close() }
