package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goContacts/metrics"
	otelexport "github.com/MrEthical07/goContacts/metrics/export/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

const serviceName = "contactsd"

// startOTelMetrics pushes m to an OTLP/HTTP collector every interval. The
// returned stop function flushes the last cycle and must be called once.
func startOTelMetrics(ctx context.Context, endpoint string, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	client, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("otlp metric client: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(client, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)

	exporter, err := otelexport.NewExporter(provider.Meter("github.com/MrEthical07/goContacts"), m)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	logger.Info("otlp metrics enabled", zap.String("endpoint", endpoint), zap.Duration("interval", interval))
	return func(ctx context.Context) error {
		// The provider flushes a final collection on Shutdown, so the
		// callback is unregistered afterwards.
		return errors.Join(provider.Shutdown(ctx), exporter.Close())
	}, nil
}
