// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"gymnexus/internal/config"
)

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP when an endpoint is configured.
// Without one the global no-op provider stays in place.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger logrus.FieldLogger) (Shutdown, error) {
	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled: no OTLP endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{}
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := NewProvider(exp, cfg.ServiceName)
	otel.SetTracerProvider(tp)
	logger.WithField("endpoint", cfg.Endpoint).Info("tracing enabled")
	return tp.Shutdown, nil
}

// NewProvider batches spans to exp under the given service name.
func NewProvider(exp sdktrace.SpanExporter, serviceName string) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
}
