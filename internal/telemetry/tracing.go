// Package telemetry wires OpenTelemetry tracing and run metrics.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies this process in exported spans.
const ServiceName = "inyeon"

// ShutdownFunc flushes and stops a tracer or meter provider.
type ShutdownFunc func(context.Context) error

// InitTracer installs the global tracer provider. When enabled is false a
// no-op provider is installed. Spans are written as JSON to w (stderr when nil).
func InitTracer(enabled bool, w io.Writer) (ShutdownFunc, error) {
	if !enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}
	if w == nil {
		w = os.Stderr
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func resource() *sdkresource.Resource {
	return sdkresource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("host.name", hostname()),
	)
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
