// Package telemetry wires OpenTelemetry traces, metrics and logs, database
// instrumentation and Pyroscope continuous profiling.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/config"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	MetricsInterval   time.Duration
}

// FromConfig maps the application settings onto the provider config
func FromConfig(cfg config.TelemetryConfig, version string) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Insecure,
	}
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// providerShutdownTimeout bounds the final flush of each exporter
const providerShutdownTimeout = 10 * time.Second

func stopProvider(ctx context.Context, kind string, logger *zap.Logger, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("telemetry provider shutdown failed", zap.String("provider", kind), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", kind, err)
	}
	logger.Debug("telemetry provider stopped", zap.String("provider", kind))
	return nil
}

// Telemetry bundles the providers started for one process
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	logger   *zap.Logger
}

// Setup starts every provider. With telemetry disabled each provider is a
// no-op, so callers never need nil checks.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := FromConfig(cfg, version)
	t := &Telemetry{logger: logger}

	var err error
	if t.Tracer, err = NewTracerProvider(ctx, base, logger); err != nil {
		return nil, err
	}
	if t.Meter, err = NewMeterProvider(ctx, base, logger); err != nil {
		return nil, multierror.Append(err, t.Shutdown(ctx)).ErrorOrNil()
	}
	if t.Logs, err = NewLoggerProvider(ctx, base, logger); err != nil {
		return nil, multierror.Append(err, t.Shutdown(ctx)).ErrorOrNil()
	}

	t.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeEndpoint,
		ApplicationName: cfg.ServiceName,
		Tags:            map[string]string{"version": base.ServiceVersion},
	}, logger)
	if err != nil {
		return nil, multierror.Append(err, t.Shutdown(ctx)).ErrorOrNil()
	}
	if t.Profiler.IsEnabled() {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			logger.Warn("span profiles unavailable", zap.Error(err))
		}
	}
	return t, nil
}

// Shutdown flushes and stops every provider, collecting all failures
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if t.Profiler != nil {
		if err := t.Profiler.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if t.Logs != nil {
		if err := t.Logs.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if t.Meter != nil {
		if err := t.Meter.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if t.Tracer != nil {
		if err := t.Tracer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// DBPlugins returns the GORM plugins for tracing and metrics on a database
// opened with the given driver.
func (t *Telemetry) DBPlugins(cfg config.TelemetryConfig, driver string) ([]gorm.Plugin, error) {
	plugins := []gorm.Plugin{NewDBTracingPlugin(DBTracingConfigFrom(cfg, driver), t.logger)}
	if !t.Meter.IsEnabled() {
		return plugins, nil
	}
	metrics, err := NewDBMetrics(t.Meter.Meter("db.client"), DBMetricsConfig{
		SlowQueryThreshold: cfg.DBSlowQueryThresh,
	}, t.logger)
	if err != nil {
		return nil, err
	}
	return append(plugins, metrics), nil
}

// CacheRecorder returns a cache.Recorder backed by the meter provider.
func (t *Telemetry) CacheRecorder() (*CacheMetrics, error) {
	return NewCacheMetrics(t.Meter.Meter("bizdesk.cache"))
}

// DocumentMetrics returns the PDF rendering instruments.
func (t *Telemetry) DocumentMetrics() (*DocumentMetrics, error) {
	return NewDocumentMetrics(t.Meter.Meter("bizdesk.documents"))
}
