package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerProvider owns the SDK tracer provider used by the HTTP, service and
// database spans. While disabled, the global provider stays in place.
type TracerProvider struct {
	sdk *sdktrace.TracerProvider
	log *zap.Logger
}

type tracerOptions struct {
	processor sdktrace.SpanProcessor
}

// TracerOption customises NewTracerProvider
type TracerOption func(*tracerOptions)

// WithSpanProcessor sends spans to processor instead of the OTLP batcher and
// builds the provider even when telemetry is disabled.
func WithSpanProcessor(processor sdktrace.SpanProcessor) TracerOption {
	return func(o *tracerOptions) { o.processor = processor }
}

// NewTracerProvider builds the tracer provider for cfg. An exporting provider
// is installed globally together with the W3C trace context propagator.
func NewTracerProvider(ctx context.Context, cfg Config, log *zap.Logger, opts ...TracerOption) (*TracerProvider, error) {
	var o tracerOptions
	for _, opt := range opts {
		opt(&o)
	}

	tp := &TracerProvider{log: log}
	if o.processor == nil && !cfg.Enabled {
		log.Info("Tracing disabled")
		return tp, nil
	}

	processor := o.processor
	if processor == nil {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		processor = sdktrace.NewBatchSpanProcessor(exporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ledger"
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, err
	}

	sampler := samplerFor(cfg.SamplingRatio)
	if o.processor != nil && !cfg.Enabled {
		sampler = sdktrace.AlwaysSample()
	}
	tp.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	if o.processor == nil {
		otel.SetTracerProvider(tp.sdk)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		log.Info("Exporting traces",
			zap.String("collector_endpoint", cfg.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.SamplingRatio),
			zap.String("service_name", serviceName),
		)
	}
	return tp, nil
}

// samplerFor honours the parent's decision and samples roots by ratio
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

// Tracer returns the named tracer, falling back to the global provider
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.sdk == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.sdk.Tracer(name, opts...)
}

// Shutdown flushes pending spans. Bounded to ten seconds.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tp.sdk.Shutdown(ctx); err != nil {
		tp.log.Error("Flushing spans failed", zap.Error(err))
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}

// IsEnabled reports whether spans are recorded anywhere
func (tp *TracerProvider) IsEnabled() bool {
	return tp.sdk != nil
}
