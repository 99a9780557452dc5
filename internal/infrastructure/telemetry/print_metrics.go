package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome values recorded on print metrics
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDegraded = "degraded"
)

// PrintMetrics records the companion's job, render, dispatch and surface activity.
// A nil *PrintMetrics is valid and records nothing.
type PrintMetrics struct {
	jobsReceived    *Counter
	renders         *Counter
	renderDuration  *Histogram
	dispatches      *Counter
	surfaceRequests *Counter
}

// NewPrintMetrics registers the print instruments on meter
func NewPrintMetrics(meter metric.Meter) (*PrintMetrics, error) {
	jobs, err := NewCounter(meter, "printbridge.jobs.received", "Print jobs accepted by the ingestion endpoint", "{job}")
	if err != nil {
		return nil, err
	}
	renders, err := NewCounter(meter, "printbridge.renders", "Render attempts by outcome", "{render}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "printbridge.render.duration",
		Description: "Time from tab creation to PDF bytes",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	dispatches, err := NewCounter(meter, "printbridge.dispatches", "Dispatch attempts by output type and strategy", "{dispatch}")
	if err != nil {
		return nil, err
	}
	surfaces, err := NewCounter(meter, "printbridge.surface.requests", "Surface requests by resolution path", "{request}")
	if err != nil {
		return nil, err
	}

	return &PrintMetrics{
		jobsReceived:    jobs,
		renders:         renders,
		renderDuration:  duration,
		dispatches:      dispatches,
		surfaceRequests: surfaces,
	}, nil
}

// RecordJobReceived counts one accepted print job
func (m *PrintMetrics) RecordJobReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobsReceived.Inc(ctx)
}

// RecordRender counts a render and its duration. An empty errorCode means success.
func (m *PrintMetrics) RecordRender(ctx context.Context, d time.Duration, errorCode string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrOutcome.String(OutcomeSuccess)}
	if errorCode != "" {
		attrs = []attribute.KeyValue{AttrOutcome.String(OutcomeFailure), AttrErrorCode.String(errorCode)}
	}
	m.renders.Inc(ctx, attrs...)
	m.renderDuration.RecordDuration(ctx, d, attrs[0])
}

// RecordDispatch counts a dispatch by output type, the strategy that handled it and the outcome
func (m *PrintMetrics) RecordDispatch(ctx context.Context, outputType, strategy, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.Inc(ctx,
		AttrOutputType.String(outputType),
		AttrStrategy.String(strategy),
		AttrOutcome.String(outcome),
	)
}

// RecordSurfaceRequest counts how a surface request was resolved
// (reused, promoted, built, cooldown, failed)
func (m *PrintMetrics) RecordSurfaceRequest(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.surfaceRequests.Inc(ctx, AttrSurfaceOp.String(op))
}
