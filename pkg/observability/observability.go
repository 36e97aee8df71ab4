// Package observability wires pkg/ruleeng.Analyzer.Analyze into
// OpenTelemetry: a span per call plus rules-evaluated/matched counters
// and an evaluation-duration histogram, labelled with result_type and
// change_type (the rules-evaluated counter with result_type only). Grounded on core/pkg/observability/observability.go's
// Provider, trimmed to the single RED-style surface this engine needs
// instead of the teacher's full request/error/duration trio.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
	Enabled      bool
	Insecure     bool
}

// Provider owns the tracer/meter pair and the instruments
// Hooks records into. A disabled Provider (Config.Enabled == false)
// still satisfies the ruleeng.Hooks interface but every method is a
// no-op, so callers never need to branch on whether observability is
// turned on.
type Provider struct {
	config *Config
	logger *slog.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer

	rulesEvaluated metric.Int64Counter
	rulesMatched   metric.Int64Counter
	evalDuration   metric.Float64Histogram
}

// New builds a Provider. A nil or disabled config yields a Provider
// whose methods are all no-ops, matching the teacher's "Enabled: false
// skips wiring real exporters" behavior.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Provider{config: cfg, logger: slog.Default().With("component", "observability")}
	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: building resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, err
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, err
	}

	p.tracer = otel.Tracer("ruleanalyzer")
	meter := otel.Meter("ruleanalyzer")

	p.rulesEvaluated, err = meter.Int64Counter("ruleanalyzer.rules.evaluated",
		metric.WithDescription("Number of candidate rules evaluated per Analyze call"),
		metric.WithUnit("{rule}"))
	if err != nil {
		return nil, fmt.Errorf("observability: building rules.evaluated counter: %w", err)
	}
	p.rulesMatched, err = meter.Int64Counter("ruleanalyzer.rules.matched",
		metric.WithDescription("Number of rules matched per Analyze call, by result_type and change_type"),
		metric.WithUnit("{rule}"))
	if err != nil {
		return nil, fmt.Errorf("observability: building rules.matched counter: %w", err)
	}
	p.evalDuration, err = meter.Float64Histogram("ruleanalyzer.analyze.duration",
		metric.WithDescription("Analyze call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0))
	if err != nil {
		return nil, fmt.Errorf("observability: building analyze.duration histogram: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("observability: creating trace exporter: %w", err)
	}

	sampler := sdktrace.TraceIDRatioBased(p.config.SampleRate)
	if p.config.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if p.config.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("observability: creating metric exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

// Shutdown flushes and tears down the providers. Safe to call on a
// disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "trace provider shutdown failed", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "meter provider shutdown failed", "error", err)
		}
	}
	return nil
}

// OnAnalyze implements ruleeng.Hooks: it records a span and the
// rules-matched counter/duration histogram for one Analyze call. The
// "rules evaluated" count isn't available from the Hooks signature
// (ruleeng.Analyzer only reports how many matched, not how many
// candidates it tried), so RecordCandidates exists for callers that
// want that half of the RED picture too.
func (p *Provider) OnAnalyze(ctx context.Context, resultType ruletypes.ResultType, changeType ruletypes.ChangeType, matched int, duration time.Duration) {
	if p.tracer != nil {
		_, span := p.tracer.Start(ctx, "ruleanalyzer.Analyze",
			trace.WithAttributes(
				attribute.String("result_type", string(resultType)),
				attribute.String("change_type", string(changeType)),
				attribute.Int("matched", matched),
			))
		span.End()
	}
	attrs := metric.WithAttributes(
		attribute.String("result_type", string(resultType)),
		attribute.String("change_type", string(changeType)),
	)
	if p.rulesMatched != nil {
		p.rulesMatched.Add(ctx, int64(matched), attrs)
	}
	if p.evalDuration != nil {
		p.evalDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordCandidates records how many candidate rules an Analyze call
// considered before filtering, for callers that want it alongside the
// matched count OnAnalyze reports.
func (p *Provider) RecordCandidates(ctx context.Context, resultType ruletypes.ResultType, count int) {
	if p.rulesEvaluated == nil {
		return
	}
	p.rulesEvaluated.Add(ctx, int64(count), metric.WithAttributes(attribute.String("result_type", string(resultType))))
}
