package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "github.com/yukikurage/task-realtime-api"

// InitMeterProvider installs a global MeterProvider backed by a Prometheus exporter
// and returns the handler serving /metrics.
func InitMeterProvider(ctx context.Context, serviceName string) (http.Handler, error) {
	if serviceName == "" {
		serviceName = "task-realtime-api"
	}
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otelglobal.SetMeterProvider(provider)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}

// Meter returns the application meter (after InitMeterProvider).
func Meter() metric.Meter {
	return otelglobal.Meter(meterName)
}

// Attribute keys shared by the instruments.
var (
	AttrOperation = attribute.Key("operation")
	AttrOutcome   = attribute.Key("outcome")
	AttrEvent     = attribute.Key("event")
	AttrType      = attribute.Key("type")
)
