package observability

import (
	"context"
	"time"

	"translatorhub/internal/config"
	contextutils "translatorhub/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes an OpenTelemetry MeterProvider exporting over OTLP
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *sdkmetric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter sdkmetric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrConfigInvalid, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	return mp, nil
}

// Instruments holds the hub's metric instruments. A nil *Instruments records nothing.
type Instruments struct {
	submissions     metric.Int64Counter
	outcomes        metric.Int64Counter
	requestDuration metric.Float64Histogram
	staleResponses  metric.Int64Counter
	cacheLookups    metric.Int64Counter
	activeSessions  metric.Int64UpDownCounter
}

// NewInstruments creates the hub instruments on the given meter provider.
// A nil provider falls back to the global one.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(InstrumentationScope)

	var (
		inst Instruments
		err  error
	)
	if inst.submissions, err = meter.Int64Counter("hub.requests.submitted",
		metric.WithDescription("Requests dispatched to the translation backend"),
		metric.WithUnit("{request}")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create submissions counter")
	}
	if inst.outcomes, err = meter.Int64Counter("hub.requests.completed",
		metric.WithDescription("Settled requests by outcome"),
		metric.WithUnit("{request}")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create outcomes counter")
	}
	if inst.requestDuration, err = meter.Float64Histogram("hub.requests.duration",
		metric.WithDescription("Time from dispatch to applied response"),
		metric.WithUnit("s")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create duration histogram")
	}
	if inst.staleResponses, err = meter.Int64Counter("hub.responses.discarded",
		metric.WithDescription("Responses dropped because a newer request superseded them"),
		metric.WithUnit("{response}")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create stale response counter")
	}
	if inst.cacheLookups, err = meter.Int64Counter("hub.cache.lookups",
		metric.WithDescription("Translation cache lookups by result"),
		metric.WithUnit("{lookup}")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create cache lookup counter")
	}
	if inst.activeSessions, err = meter.Int64UpDownCounter("hub.sessions.active",
		metric.WithDescription("Open websocket hub sessions"),
		metric.WithUnit("{session}")); err != nil {
		return nil, contextutils.WrapError(err, "failed to create session gauge")
	}
	return &inst, nil
}

// RecordSubmission counts a request dispatched in the given mode
func (i *Instruments) RecordSubmission(ctx context.Context, mode string) {
	if i == nil {
		return
	}
	i.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordOutcome counts a settled request; outcome is "succeeded" or an error kind
func (i *Instruments) RecordOutcome(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode), attribute.String("outcome", outcome))
	i.outcomes.Add(ctx, 1, attrs)
	i.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordStaleResponse counts a response discarded by the generation check
func (i *Instruments) RecordStaleResponse(ctx context.Context, mode string) {
	if i == nil {
		return
	}
	i.staleResponses.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordCacheLookup counts a cache hit or miss
func (i *Instruments) RecordCacheLookup(ctx context.Context, hit bool) {
	if i == nil {
		return
	}
	i.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// SessionOpened increments the live websocket session count
func (i *Instruments) SessionOpened(ctx context.Context) {
	if i == nil {
		return
	}
	i.activeSessions.Add(ctx, 1)
}

// SessionClosed decrements the live session count
func (i *Instruments) SessionClosed(ctx context.Context) {
	if i == nil {
		return
	}
	i.activeSessions.Add(ctx, -1)
}
