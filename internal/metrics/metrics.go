package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// AppMetrics holds all storefront metrics. A nil *AppMetrics records nothing.
type AppMetrics struct {
	// Remote API
	APIRequestsTotal   metric.Int64Counter
	APIRequestsErrors  metric.Int64Counter
	APIRequestDuration metric.Float64Histogram

	// Cart
	CartMutations  metric.Int64Counter
	CartItemsCount metric.Int64Gauge
	StoreErrors    metric.Int64Counter

	// Checkout
	CheckoutOutcomes metric.Int64Counter
	OrdersPlaced     metric.Int64Counter
	RevenueTotal     metric.Float64Counter
}

// InitMetrics builds the meter provider. Without an OTLP endpoint the
// provider has no reader and instruments are effectively no-ops.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("service.version", cfg.OTELServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.MetricsEnabled() {
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.OTELExporterOTLPHeaders != "" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
		}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second)),
		))
	}

	meterProvider := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(meterProvider)

	m, err := NewAppMetrics(meterProvider.Meter(cfg.OTELServiceName))
	if err != nil {
		return nil, nil, err
	}
	return m, meterProvider, nil
}

// NewAppMetrics creates every instrument from meter.
func NewAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 30000}

	var (
		m   AppMetrics
		err error
	)

	if m.APIRequestsTotal, err = meter.Int64Counter(
		"storefront.api.request.count",
		metric.WithDescription("Requests sent to the commerce backend"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create api requests counter: %w", err)
	}

	if m.APIRequestsErrors, err = meter.Int64Counter(
		"storefront.api.request.error.count",
		metric.WithDescription("Backend requests that failed or returned a non-2xx status"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create api errors counter: %w", err)
	}

	if m.APIRequestDuration, err = meter.Float64Histogram(
		"storefront.api.request.duration",
		metric.WithDescription("Backend request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create api duration histogram: %w", err)
	}

	if m.CartMutations, err = meter.Int64Counter(
		"cart_mutations_total",
		metric.WithDescription("Cart mutations by operation"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart mutations counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in the cart"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.StoreErrors, err = meter.Int64Counter(
		"kv_store_errors_total",
		metric.WithDescription("Key-value store failures swallowed by the adapter"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create store errors counter: %w", err)
	}

	if m.CheckoutOutcomes, err = meter.Int64Counter(
		"checkout_outcomes_total",
		metric.WithDescription("Checkout payment attempts by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create checkout outcomes counter: %w", err)
	}

	if m.OrdersPlaced, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Orders paid successfully"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue of paid orders"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	return &m, nil
}

// RecordAPIRequest records one backend call. status is 0 when no response
// arrived.
func (m *AppMetrics) RecordAPIRequest(ctx context.Context, operation string, status int, start time.Time, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.APIRequestsTotal.Add(ctx, 1, attrs)
	if failed {
		m.APIRequestsErrors.Add(ctx, 1, attrs)
	}
	m.APIRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

func (m *AppMetrics) RecordCartMutation(ctx context.Context, operation string, itemCount int) {
	if m == nil {
		return
	}
	m.CartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	m.CartItemsCount.Record(ctx, int64(itemCount))
}

func (m *AppMetrics) RecordStoreError(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *AppMetrics) RecordCheckout(ctx context.Context, outcome string, amount float64) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == OutcomeSucceeded {
		m.OrdersPlaced.Add(ctx, 1)
		m.RevenueTotal.Add(ctx, amount)
	}
}

// Checkout outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
)

// parseHeaders parses "key1=value1,key2=value2".
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
