package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/milan604/buffer-go/pkg/config"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityIface is the tracing surface used by the client and the web front.
type ObservabilityIface interface {
	StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
	Shutdown(ctx context.Context) error
	GetTracer() trace.Tracer
}

// Observability owns the OpenTelemetry tracer provider.
type Observability struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	log            logger.LogManager
	serviceName    string
}

// New builds an OTLP/HTTP tracer provider from cfg and installs it globally.
// When telemetry.enabled is false it returns a no-op implementation.
//
// Keys: service_name, telemetry.enabled, telemetry.endpoint, telemetry.insecure,
// telemetry.sample_ratio.
func New(log logger.LogManager, cfg *config.Config) (ObservabilityIface, error) {
	serviceName := cfg.GetStringD("service_name", "buffer-go")
	if !cfg.GetBoolD("telemetry.enabled", false) {
		return NewNoop(serviceName), nil
	}

	endpoint := cfg.GetStringD("telemetry.endpoint", "localhost:4318")

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.GetBoolD("telemetry.insecure", true) {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(context.Background(), exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	ratio := cfg.GetFloat64("telemetry.sample_ratio")
	sampler := sdktrace.ParentBased(sdktrace.AlwaysSample())
	if ratio > 0 && ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.InfoF("tracing enabled: service=%s endpoint=%s", serviceName, endpoint)

	return &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName, trace.WithInstrumentationVersion(version.Version)),
		log:            log,
		serviceName:    serviceName,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(log logger.LogManager, cfg *config.Config) ObservabilityIface {
	obs, err := New(log, cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize observability: %v", err))
	}
	return obs
}

func (o *Observability) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans.
func (o *Observability) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := o.tracerProvider.Shutdown(ctx); err != nil {
		o.log.ErrorF("failed to shutdown tracer provider: %v", err)
		return err
	}
	return nil
}

func (o *Observability) GetTracer() trace.Tracer {
	return o.tracer
}

type noopObservability struct {
	tracer trace.Tracer
}

// NewNoop returns an implementation that records nothing.
func NewNoop(serviceName string) ObservabilityIface {
	return &noopObservability{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

func (n *noopObservability) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return n.tracer.Start(ctx, name, opts...)
}

func (n *noopObservability) Shutdown(context.Context) error { return nil }

func (n *noopObservability) GetTracer() trace.Tracer { return n.tracer }
