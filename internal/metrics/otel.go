package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const defaultServiceName = "game-stock"

var (
	promReaderFactory = prometheusComponents
	otlpReaderFactory = buildOTLPReader
	instrumentFactory = newOtelInstruments
)

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and optional OTLP exporter.
// It returns a Recorder, the Prometheus HTTP handler, and a shutdown function.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	promReader, promHandler, err := promReaderFactory()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if cfg.OtlpEndpoint != "" {
		otlpReader, err := otlpReaderFactory(ctx, cfg.OtlpEndpoint, cfg.OtlpInsecure)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(otlpReader))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)

	otelInst, err := instrumentFactory(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	rec := newRecorder(otelInst)
	shutdown := func(c context.Context) error {
		return provider.Shutdown(c)
	}

	return rec, promHandler, shutdown, nil
}

func buildOTLPReader(ctx context.Context, endpoint string, insecure bool) (sdkmetric.Reader, error) {
	otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
	}
	otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second)), nil
}

func prometheusComponents() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	return promExp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

type otelInstruments struct {
	ctx              context.Context
	requests         metric.Int64Counter
	requestLatencyMs metric.Float64Histogram
	commits          metric.Int64Counter
	commitFailures   metric.Int64Counter
	commitLatencyMs  metric.Float64Histogram
	committedCopies  metric.Int64Counter
	basketRejections metric.Int64Counter
	catalogLoads     metric.Int64Counter
	catalogErrors    metric.Int64Counter
	catalogLatencyMs metric.Float64Histogram
}

func newOtelInstruments(provider metric.MeterProvider) (*otelInstruments, error) {
	meter := provider.Meter(defaultServiceName)

	requests, err := meter.Int64Counter("http_requests_total")
	if err != nil {
		return nil, err
	}
	requestLatency, err := meter.Float64Histogram("http_request_duration_ms")
	if err != nil {
		return nil, err
	}
	commits, err := meter.Int64Counter("purchase_commits_total")
	if err != nil {
		return nil, err
	}
	commitFailures, err := meter.Int64Counter("purchase_commit_failures_total")
	if err != nil {
		return nil, err
	}
	commitLatency, err := meter.Float64Histogram("purchase_commit_duration_ms")
	if err != nil {
		return nil, err
	}
	committedCopies, err := meter.Int64Counter("purchase_committed_copies_total")
	if err != nil {
		return nil, err
	}
	basketRejections, err := meter.Int64Counter("basket_rejections_total")
	if err != nil {
		return nil, err
	}
	catalogLoads, err := meter.Int64Counter("catalog_loads_total")
	if err != nil {
		return nil, err
	}
	catalogErrors, err := meter.Int64Counter("catalog_load_errors_total")
	if err != nil {
		return nil, err
	}
	catalogLatency, err := meter.Float64Histogram("catalog_load_duration_ms")
	if err != nil {
		return nil, err
	}

	return &otelInstruments{
		ctx:              context.Background(),
		requests:         requests,
		requestLatencyMs: requestLatency,
		commits:          commits,
		commitFailures:   commitFailures,
		commitLatencyMs:  commitLatency,
		committedCopies:  committedCopies,
		basketRejections: basketRejections,
		catalogLoads:     catalogLoads,
		catalogErrors:    catalogErrors,
		catalogLatencyMs: catalogLatency,
	}, nil
}

func (o *otelInstruments) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
		attribute.Int(AttrStatus, status),
	}
	o.recordCounter(o.requests, 1, attrs...)
	o.recordHistogram(o.requestLatencyMs, float64(duration.Milliseconds()), attrs...)
}

func (o *otelInstruments) recordCommit(duration time.Duration, copies int, stage string, err error) {
	if o == nil {
		return
	}
	o.recordHistogram(o.commitLatencyMs, float64(duration.Milliseconds()))
	if err != nil {
		o.recordCounter(o.commitFailures, 1, attribute.String(AttrStage, stage))
		return
	}
	o.recordCounter(o.commits, 1)
	o.recordCounter(o.committedCopies, int64(copies))
}

func (o *otelInstruments) recordBasketRejection(reason string) {
	if o == nil {
		return
	}
	o.recordCounter(o.basketRejections, 1, attribute.String(AttrReason, reason))
}

func (o *otelInstruments) recordCatalogLoad(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.recordCounter(o.catalogLoads, 1)
	o.recordHistogram(o.catalogLatencyMs, float64(duration.Milliseconds()))
	if err != nil {
		o.recordCounter(o.catalogErrors, 1)
	}
}

func (o *otelInstruments) recordCounter(counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	counter.Add(o.ctx, value, metric.WithAttributes(attrs...))
}

func (o *otelInstruments) recordHistogram(hist metric.Float64Histogram, value float64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	hist.Record(o.ctx, value, metric.WithAttributes(attrs...))
}
