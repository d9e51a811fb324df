package telemetry

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Default OTLP/HTTP signal paths, appended to an endpoint without a path.
const (
	TracesPath  = "/v1/traces"
	MetricsPath = "/v1/metrics"
)

// Setup installs global tracer and meter providers for serviceName and
// returns the Config that reads them.
//
// Export is opt-in: endpoint is the base URL of an OTLP/HTTP collector, e.g.
// "http://collector:4318". With an empty endpoint no exporter is attached, so
// spans and metrics are recorded and dropped. The returned shutdown function
// flushes pending data and should be deferred by the caller.
func Setup(ctx context.Context, serviceName, endpoint string) (Config, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Config{}, nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if endpoint != "" {
		tracesURL, err := SignalURL(endpoint, TracesPath)
		if err != nil {
			return Config{}, nil, err
		}
		metricsURL, err := SignalURL(endpoint, MetricsPath)
		if err != nil {
			return Config{}, nil, err
		}
		spans, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(tracesURL))
		if err != nil {
			return Config{}, nil, err
		}
		metrics, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(metricsURL))
		if err != nil {
			return Config{}, nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(spans))
		metricOpts = append(metricOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics)))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)
	mp := sdkmetric.NewMeterProvider(metricOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}
	return Config{TracerProvider: tp, MeterProvider: mp}, shutdown, nil
}

// SignalURL returns endpoint with path appended when endpoint has no path
// of its own. An endpoint that already names a path is returned unchanged.
func SignalURL(endpoint, path string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "otlp endpoint")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("otlp endpoint %q must be an absolute URL", endpoint)
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = path
	}
	return u.String(), nil
}
