// Package telemetry records traces and metrics for mutation dispatch.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Protocol-Lattice/configql/dispatch"

var (
	attrMutation  = attribute.Key("configql.mutation")
	attrCommand   = attribute.Key("configql.command")
	attrVerb      = attribute.Key("configql.verb")
	attrRequestID = attribute.Key("configql.request_id")
	attrSuccess   = attribute.Key("configql.success")
)

// Config selects the providers. Nil providers fall back to the otel globals.
type Config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Dispatch describes one handled mutation.
type Dispatch struct {
	Mutation  string
	Command   string
	Verb      string
	RequestID string
}

func (d Dispatch) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attrMutation.String(d.Mutation),
		attrCommand.String(d.Command),
		attrVerb.String(d.Verb),
	}
}

// Recorder wraps a tracer plus the dispatch counters. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// New builds a Recorder from cfg.
func New(cfg Config) (*Recorder, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	total, err := meter.Int64Counter("configql.mutations.total",
		metric.WithDescription("Mutations dispatched, by outcome."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("configql.mutation.duration.ms",
		metric.WithDescription("Mutation handler latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Recorder{
		tracer:   tp.Tracer(instrumentationName),
		total:    total,
		duration: duration,
	}, nil
}

// Start opens the dispatch span. The returned function ends it and records
// the outcome; errMsg is empty on success.
func (r *Recorder) Start(ctx context.Context, d Dispatch) (context.Context, func(errMsg string)) {
	if r == nil {
		return ctx, func(string) {}
	}
	start := time.Now()
	attrs := d.attributes()
	ctx, span := r.tracer.Start(ctx, "dispatch "+d.Mutation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs, attrRequestID.String(d.RequestID))...))

	return ctx, func(errMsg string) {
		ok := errMsg == ""
		if ok {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, errMsg)
		}
		span.SetAttributes(attrSuccess.Bool(ok))
		span.End()

		outcome := metric.WithAttributes(append(attrs, attrSuccess.Bool(ok))...)
		r.total.Add(ctx, 1, outcome)
		r.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), outcome)
	}
}
