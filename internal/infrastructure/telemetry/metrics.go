package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// LedgerMeterName scopes the stock ledger instruments
const LedgerMeterName = "github.com/mfgorder/backend/ledger"

const defaultExportInterval = time.Minute

// MeterProvider owns the SDK meter provider behind the ledger counters.
// A disabled provider hands out no-op meters and is safe to shut down.
type MeterProvider struct {
	sdk     *sdkmetric.MeterProvider
	log     *zap.Logger
	enabled bool
}

type meterOptions struct {
	reader sdkmetric.Reader
}

// MeterOption customises NewMeterProvider
type MeterOption func(*meterOptions)

// WithMetricReader collects through reader instead of the OTLP exporter.
// The provider is built even when telemetry is disabled, which lets tests
// read back what the ledger recorded.
func WithMetricReader(reader sdkmetric.Reader) MeterOption {
	return func(o *meterOptions) { o.reader = reader }
}

// NewMeterProvider builds the meter provider for cfg and installs it globally
// when metrics are exported.
func NewMeterProvider(ctx context.Context, cfg Config, log *zap.Logger, opts ...MeterOption) (*MeterProvider, error) {
	var o meterOptions
	for _, opt := range opts {
		opt(&o)
	}

	mp := &MeterProvider{log: log}
	if o.reader == nil && !cfg.Enabled {
		log.Info("Metrics disabled, ledger counters are not exported")
		return mp, nil
	}

	reader := o.reader
	if reader == nil {
		r, err := otlpReader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		reader = r
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ledger"
	}
	res, err := newResource(serviceName)
	if err != nil {
		return nil, err
	}

	mp.sdk = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	mp.enabled = true
	if o.reader == nil {
		otel.SetMeterProvider(mp.sdk)
		log.Info("Exporting ledger metrics",
			zap.String("collector_endpoint", cfg.CollectorEndpoint),
			zap.Duration("export_interval", exportInterval(cfg)),
		)
	}
	return mp, nil
}

func exportInterval(cfg Config) time.Duration {
	if cfg.MetricsInterval > 0 {
		return cfg.MetricsInterval
	}
	return defaultExportInterval
}

func otlpReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval(cfg))), nil
}

// Meter returns the named meter, or a no-op meter when metrics are off
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.sdk == nil {
		return noop.NewMeterProvider().Meter(name, opts...)
	}
	return mp.sdk.Meter(name, opts...)
}

// LedgerMetrics creates the ledger counters on this provider
func (mp *MeterProvider) LedgerMetrics() (*LedgerMetrics, error) {
	return NewLedgerMetrics(mp.Meter(LedgerMeterName))
}

// Shutdown flushes buffered data points. Bounded to ten seconds.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.sdk.Shutdown(ctx); err != nil {
		mp.log.Error("Flushing ledger metrics failed", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// IsEnabled reports whether recorded metrics go anywhere
func (mp *MeterProvider) IsEnabled() bool {
	return mp.enabled
}
