package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/dataflow/checkpoint"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/storage/local"
)

// THelper binds the helpers to a test.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps t. Failures are reported with t.Fatalf.
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets the context used by the helpers.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Context returns the helper's context.
func (h *THelper) Context() context.Context { return h.ctx }

// Storage returns local storage rooted in a temporary directory that is
// removed when the test ends.
func (h *THelper) Storage() *local.Storage {
	h.t.Helper()
	st, err := local.NewStorage(h.t.TempDir())
	if err != nil {
		h.t.Fatalf("failed to create storage: %v", err)
	}
	return st
}

// CheckpointStore returns a checkpoint store over fresh temporary storage.
func (h *THelper) CheckpointStore(opts ...checkpoint.Option) *checkpoint.Store {
	h.t.Helper()
	opts = append([]checkpoint.Option{checkpoint.WithLogger(logger.Nop())}, opts...)
	return checkpoint.New(h.Storage(), opts...)
}

// Flow creates a flow that logs nothing and records no metrics.
func Flow(steps ...flow.Step) *flow.Flow {
	return flow.New(steps...).With(flow.WithLogger(logger.Nop()), flow.WithMetrics(nil))
}

// Results runs f to completion and fails the test on error.
func (h *THelper) Results(f *flow.Flow) *flow.Results {
	h.t.Helper()
	res, err := f.Results(h.ctx)
	if err != nil {
		h.t.Fatalf("flow %s failed: %v", f.Name(), err)
	}
	return res
}

// Open opens f and closes the stream when the test ends.
func (h *THelper) Open(f *flow.Flow) *flow.Stream {
	h.t.Helper()
	s, err := f.Open(h.ctx)
	if err != nil {
		h.t.Fatalf("failed to open flow %s: %v", f.Name(), err)
	}
	h.t.Cleanup(func() {
		if err := s.Close(); err != nil {
			h.t.Errorf("failed to close flow %s: %v", f.Name(), err)
		}
	})
	return s
}

// Collect drains it and fails the test on error.
func (h *THelper) Collect(it schema.RowIterator) []schema.Row {
	h.t.Helper()
	rows, err := pipeline.Collect(h.ctx, it)
	if err != nil {
		h.t.Fatalf("failed to collect rows: %v", err)
	}
	return rows
}
