// Package observability provides OpenTelemetry tracing and metrics for flow
// runs.
//
// Setup:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability)
//	defer shutdown(ctx)
//
// Each flow run gets a "flow.run" span and records rows, runs and errors:
//
//	ctx, run := observability.StartRun(ctx, "orders", runID, observability.DefaultMetrics())
//	defer run.End(ctx, "", err)
package observability
