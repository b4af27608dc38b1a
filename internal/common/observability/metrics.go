package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	dispatchCounter  otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	dispatchCounter, _ := meter.Int64Counter(
		"dispatches.processed",
		otelmetric.WithDescription("Number of dispatch commands processed"),
	)

	dispatchDuration, _ := meter.Float64Histogram(
		"dispatches.duration",
		otelmetric.WithDescription("Dispatch processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		dispatchCounter:  dispatchCounter,
		dispatchDuration: dispatchDuration,
	}
}

func (o *Observability) RecordDispatchProcessed(ctx context.Context, status string) {
	if o.dispatchCounter != nil {
		o.dispatchCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordDispatchDuration(ctx context.Context, duration time.Duration, status string) {
	if o.dispatchDuration != nil {
		o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
