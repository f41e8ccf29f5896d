package flow

import (
	"context"

	"github.com/kbukum/dataflow/pipeline"
	"github.com/kbukum/dataflow/schema"
)

// SinkSummary describes what a sink step wrote during a run.
type SinkSummary struct {
	Sink     string `json:"sink"`
	Dataset  string `json:"dataset,omitempty"`
	Location string `json:"location,omitempty"`
	Rows     int64  `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Hash     string `json:"hash,omitempty"`
}

// Summarizer is implemented by package steps that report on what they wrote.
// Summary is read after the run's streams have been consumed.
type Summarizer interface {
	Summary() (SinkSummary, bool)
}

// ResourceStat counts the rows emitted for one output resource.
type ResourceStat struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Results is the outcome of a complete run.
type Results struct {
	Package   *schema.Package
	Data      [][]schema.Row
	Stats     []ResourceStat
	Summaries []SinkSummary
}

// Resource returns the collected rows of the resource called name.
func (r *Results) Resource(name string) ([]schema.Row, bool) {
	i := r.Package.Index(name)
	if i < 0 || i >= len(r.Data) {
		return nil, false
	}
	return r.Data[i], true
}

// Results runs f to completion and collects every output row in memory.
func (f *Flow) Results(ctx context.Context) (*Results, error) {
	return f.run(ctx, true)
}

// Process runs f to completion for its side effects. Rows are counted, not
// kept.
func (f *Flow) Process(ctx context.Context) (*Results, error) {
	return f.run(ctx, false)
}

func (f *Flow) run(ctx context.Context, collect bool) (res *Results, err error) {
	s, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res = &Results{Package: s.Package()}
	if collect {
		res.Data = make([][]schema.Row, s.Len())
	}
	for i := 0; i < s.Len(); i++ {
		it, err := s.Resource(i)
		if err != nil {
			return nil, err
		}
		if collect {
			rows, err := pipeline.Collect(ctx, it)
			if err != nil {
				return nil, err
			}
			if rows == nil {
				rows = []schema.Row{}
			}
			res.Data[i] = rows
		} else if _, err := pipeline.Count(ctx, it); err != nil {
			return nil, err
		}
	}
	if err := s.Finish(ctx); err != nil {
		return nil, err
	}

	res.Stats = make([]ResourceStat, s.Len())
	for i := range res.Stats {
		res.Stats[i] = ResourceStat{Name: s.Package().ResourceAt(i).Name, Rows: s.Rows(i)}
	}
	res.Summaries = s.Summaries()
	return res, nil
}

// Summaries returns the reports of the sink steps that ran.
func (s *Stream) Summaries() []SinkSummary {
	var out []SinkSummary
	for _, step := range s.executed {
		sum, ok := step.pkg.(Summarizer)
		if !ok {
			continue
		}
		if v, ok := sum.Summary(); ok {
			out = append(out, v)
		}
	}
	return out
}
