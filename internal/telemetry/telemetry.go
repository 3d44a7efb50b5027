package telemetry

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// Tracer is the global tracer for the application.
	Tracer trace.Tracer

	// Meter is the global meter for custom metrics.
	Meter metric.Meter

	// Custom metrics
	AssistRequests  metric.Int64Counter
	AssistFailures  metric.Int64Counter
	DispatchLatency metric.Float64Histogram
	TasksLogged     metric.Int64Counter
)

// InitTelemetry initializes OpenTelemetry tracing and metrics. The returned
// function shuts the trace provider down.
func InitTelemetry(ctx context.Context, serviceName, otelEndpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
			attribute.String("environment", "development"),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	Tracer = otel.Tracer(serviceName)
	Meter = otel.Meter(serviceName)

	if err := initMetrics(); err != nil {
		return nil, err
	}

	log.Printf("[Telemetry] Initialized with endpoint %s", otelEndpoint)

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return traceProvider.Shutdown(shutdownCtx)
	}, nil
}

func initMetrics() error {
	var err error

	AssistRequests, err = Meter.Int64Counter(
		"workassist.assist.requests",
		metric.WithDescription("Number of assist requests dispatched"),
	)
	if err != nil {
		return err
	}

	AssistFailures, err = Meter.Int64Counter(
		"workassist.assist.failures",
		metric.WithDescription("Number of assist requests that failed"),
	)
	if err != nil {
		return err
	}

	DispatchLatency, err = Meter.Float64Histogram(
		"workassist.dispatch.latency",
		metric.WithDescription("Completion dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	TasksLogged, err = Meter.Int64Counter(
		"workassist.tasks.logged",
		metric.WithDescription("Tasks appended to session logs"),
	)
	if err != nil {
		return err
	}

	return nil
}
