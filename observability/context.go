package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunContext tracks the span and metrics of one flow run.
type RunContext struct {
	FlowName  string
	RunID     string
	StartTime time.Time
	Metrics   *Metrics

	span trace.Span
}

// StartRun starts the run's span. If metrics is nil, metric recording is
// silently skipped.
func StartRun(ctx context.Context, flowName, runID string, metrics *Metrics) (context.Context, *RunContext) {
	ctx, span := StartSpan(ctx, SpanFlowRun, trace.WithAttributes(
		attribute.String(AttrFlowName, flowName),
		attribute.String(AttrRunID, runID),
	))
	rc := &RunContext{
		FlowName:  flowName,
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
	return context.WithValue(ctx, runContextKey{}, rc), rc
}

type runContextKey struct{}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// Rows records n rows emitted for resource.
func (rc *RunContext) Rows(ctx context.Context, resource string, n int64) {
	if rc.Metrics != nil && n > 0 {
		rc.Metrics.RecordRows(ctx, rc.FlowName, resource, n)
	}
}

// End ends the span and records the run. code labels the error metric when
// err is not nil.
func (rc *RunContext) End(ctx context.Context, code string, err error) {
	duration := time.Since(rc.StartTime)
	status := StatusOK
	if err != nil {
		status = StatusError
		rc.span.RecordError(err)
		rc.span.SetStatus(codes.Error, err.Error())
		rc.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	rc.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	rc.span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordRun(ctx, rc.FlowName, status, duration)
		if err != nil {
			rc.Metrics.RecordError(ctx, code, "flow")
		}
	}
}

// Span returns the run's span.
func (rc *RunContext) Span() trace.Span { return rc.span }

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
