package flow

import (
	"context"

	"github.com/kbukum/dataflow/cast"
	"github.com/kbukum/dataflow/logger"
)

type casterKey struct{}

type loggerKey struct{}

// CasterFrom returns the caster of the running flow, or the default caster
// outside a run.
func CasterFrom(ctx context.Context) *cast.Caster {
	if c, ok := ctx.Value(casterKey{}).(*cast.Caster); ok {
		return c
	}
	return cast.Default()
}

// RunIDFrom returns the id of the running flow.
func RunIDFrom(ctx context.Context) string {
	id, _ := logger.RunIDFromContext(ctx)
	return id
}

// LoggerFrom returns the running flow's logger, tagged with the run id.
func LoggerFrom(ctx context.Context) *logger.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*logger.Logger); ok {
		return l
	}
	return logger.Get("flow").WithContext(ctx)
}

// boundContext carries the run's values into a caller's context: values are
// looked up in run first, cancellation and deadlines come from the caller.
type boundContext struct {
	context.Context
	run context.Context
}

func (c boundContext) Value(key any) any {
	if v := c.run.Value(key); v != nil {
		return v
	}
	return c.Context.Value(key)
}

func bind(caller, run context.Context) context.Context {
	if caller == run {
		return caller
	}
	if b, ok := caller.(boundContext); ok && b.run == run {
		return caller
	}
	return boundContext{Context: caller, run: run}
}
