package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/dataflow/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Setup initializes tracing and metrics when cfg.Enabled. The returned
// shutdown function flushes and stops both providers; it is a no-op when
// export is disabled.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		terr := tp.Shutdown(ctx)
		if merr := mp.Shutdown(ctx); merr != nil {
			return merr
		}
		return terr
	}, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's metric instruments.
type Metrics struct {
	rowsTotal   metric.Int64Counter
	runTotal    metric.Int64Counter
	runDuration metric.Float64Histogram
	errorTotal  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	rowsTotal, err := meter.Int64Counter("dataflow.rows",
		metric.WithDescription("Rows emitted by flow runs, per resource"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dataflow.rows counter: %w", err)
	}

	runTotal, err := meter.Int64Counter("dataflow.runs",
		metric.WithDescription("Completed flow runs by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dataflow.runs counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("dataflow.run.duration",
		metric.WithDescription("Duration of flow runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dataflow.run.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("dataflow.errors",
		metric.WithDescription("Flow errors by code and step kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dataflow.errors counter: %w", err)
	}

	return &Metrics{
		rowsTotal:   rowsTotal,
		runTotal:    runTotal,
		runDuration: runDuration,
		errorTotal:  errorTotal,
	}, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter provider. Metrics
// recorded before InitMeter are dropped by the no-op provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(Meter(instrumentationName))
		if err != nil {
			logger.Get("observability").Warn("metrics disabled", logger.ErrorFields("new_metrics", err))
			return
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordRows adds n rows emitted for resource by flow.
func (m *Metrics) RecordRows(ctx context.Context, flow, resource string, n int64) {
	m.rowsTotal.Add(ctx, n, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("resource", resource),
	))
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, flow, status string, duration time.Duration) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("flow", flow),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
