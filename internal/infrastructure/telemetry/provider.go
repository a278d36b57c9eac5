// Package telemetry provides OpenTelemetry tracing and metrics for the split
// pipeline and the laboratory service clients.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultMetricsInterval = 60 * time.Second
	shutdownTimeout        = 10 * time.Second
)

// Config selects the OTLP collector both signals are exported to.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	// SamplingRatio is the share of root traces kept, 0.0 to 1.0
	SamplingRatio   float64
	MetricsInterval time.Duration
	ServiceName     string
	ServiceVersion  string
	Insecure        bool
}

// Providers owns the SDK tracer and meter providers. When telemetry is
// disabled both are nil and the global no-op implementations serve callers.
type Providers struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logger  *zap.Logger
}

// Setup builds both providers and installs them as the otel globals.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{logger: logger}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled, using no-op providers")
		return p, nil
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	spanExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}

	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
	)
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
	)

	otel.SetTracerProvider(p.traces)
	otel.SetMeterProvider(p.metrics)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Duration("metrics_interval", interval),
		zap.String("service_name", cfg.ServiceName),
	)
	return p, nil
}

// samplerFor keeps child decisions consistent with the parent span
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newResource(serviceName, serviceVersion string) (*resource.Resource, error) {
	if serviceVersion == "" {
		serviceVersion = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Enabled reports whether spans and metrics are exported
func (p *Providers) Enabled() bool {
	return p != nil && p.traces != nil
}

// Tracer returns a named tracer
func (p *Providers) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if !p.Enabled() {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.traces.Tracer(name, opts...)
}

// Meter returns a named meter
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if !p.Enabled() {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// ForceFlush exports everything buffered so far
func (p *Providers) ForceFlush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return errors.Join(p.traces.ForceFlush(ctx), p.metrics.ForceFlush(ctx))
}

// Shutdown flushes and stops both providers. A short-lived command must call
// it before exiting or the last batch of spans and metrics is lost.
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := errors.Join(p.traces.Shutdown(ctx), p.metrics.Shutdown(ctx))
	if err != nil {
		p.logger.Error("Error shutting down telemetry", zap.Error(err))
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}
	p.logger.Info("OpenTelemetry shutdown complete")
	return nil
}
