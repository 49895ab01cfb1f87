package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/suka712/inyeon-upstream/internal/agent"
)

// MetricsHook records step and run metrics. It implements agent.Hook.
type MetricsHook struct {
	agent.NopHook

	steps        metric.Int64Counter
	stepFailures metric.Int64Counter
	stepDuration metric.Float64Histogram
	routes       metric.Int64Counter
	runs         metric.Int64Counter
}

// NewMetricsHook creates the instruments on meter, or on the global meter when nil.
func NewMetricsHook(meter metric.Meter) (*MetricsHook, error) {
	if meter == nil {
		meter = otel.Meter(ServiceName)
	}

	steps, err := meter.Int64Counter(
		"inyeon.agent.steps",
		metric.WithDescription("Workflow steps executed"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}
	stepFailures, err := meter.Int64Counter(
		"inyeon.agent.step.failures",
		metric.WithDescription("Workflow steps that failed"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}
	stepDuration, err := meter.Float64Histogram(
		"inyeon.agent.step.duration_ms",
		metric.WithDescription("Duration of a workflow step in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	routes, err := meter.Int64Counter(
		"inyeon.agent.routes",
		metric.WithDescription("Routing decisions after analysis"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	runs, err := meter.Int64Counter(
		"inyeon.agent.runs",
		metric.WithDescription("Completed workflow runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHook{
		steps:        steps,
		stepFailures: stepFailures,
		stepDuration: stepDuration,
		routes:       routes,
		runs:         runs,
	}, nil
}

func (m *MetricsHook) OnStepEnd(ctx context.Context, step agent.StepName, _ agent.State, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("step", string(step)))
	m.steps.Add(ctx, 1, attrs)
	m.stepDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	if err != nil {
		m.stepFailures.Add(ctx, 1, attrs)
	}
}

func (m *MetricsHook) OnRoute(ctx context.Context, route agent.Route, _ agent.State) {
	m.routes.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route.String())))
}

func (m *MetricsHook) OnDone(ctx context.Context, _ agent.State, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
