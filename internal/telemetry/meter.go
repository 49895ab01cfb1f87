package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultMetricsInterval is how often the periodic reader exports when no interval is given.
const DefaultMetricsInterval = time.Minute

// InitMeter installs the global meter provider. When enabled is false a no-op
// provider is installed. Metrics are written as JSON to w (stderr when nil)
// every interval and once more on shutdown.
func InitMeter(enabled bool, w io.Writer, interval time.Duration) (ShutdownFunc, error) {
	if !enabled {
		otel.SetMeterProvider(noop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}
	if w == nil {
		w = os.Stderr
	}
	if interval <= 0 {
		interval = DefaultMetricsInterval
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource()),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
