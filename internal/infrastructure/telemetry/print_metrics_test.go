package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestPrintMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	ctx := context.Background()

	m, err := telemetry.NewPrintMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordJobReceived(ctx)
	m.RecordJobReceived(ctx)
	m.RecordRender(ctx, 2*time.Second, "")
	m.RecordRender(ctx, 30*time.Second, "LOAD_TIMEOUT")
	m.RecordDispatch(ctx, "printer", "lp", telemetry.OutcomeSuccess)
	m.RecordSurfaceRequest(ctx, "promoted")

	metrics := collect(t, reader)

	jobs := metrics["printbridge.jobs.received"].Data.(metricdata.Sum[int64])
	require.Len(t, jobs.DataPoints, 1)
	assert.Equal(t, int64(2), jobs.DataPoints[0].Value)

	renders := metrics["printbridge.renders"].Data.(metricdata.Sum[int64])
	assert.Len(t, renders.DataPoints, 2)
	var sawTimeout bool
	for _, dp := range renders.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("error_code")); ok && v.AsString() == "LOAD_TIMEOUT" {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout)

	duration := metrics["printbridge.render.duration"].Data.(metricdata.Histogram[float64])
	var total uint64
	for _, dp := range duration.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(2), total)

	dispatches := metrics["printbridge.dispatches"].Data.(metricdata.Sum[int64])
	require.Len(t, dispatches.DataPoints, 1)
	strategy, _ := dispatches.DataPoints[0].Attributes.Value(telemetry.AttrStrategy)
	assert.Equal(t, "lp", strategy.AsString())

	surfaces := metrics["printbridge.surface.requests"].Data.(metricdata.Sum[int64])
	require.Len(t, surfaces.DataPoints, 1)
}

func TestPrintMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.PrintMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordJobReceived(ctx)
		m.RecordRender(ctx, time.Second, "")
		m.RecordDispatch(ctx, "pdf", "viewer", telemetry.OutcomeDegraded)
		m.RecordSurfaceRequest(ctx, "built")
	})
}
