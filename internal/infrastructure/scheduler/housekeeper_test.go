package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(ctx context.Context) int {
	s.calls.Add(1)
	return 2
}

type stubCleaner struct {
	calls  atomic.Int32
	maxAge atomic.Int64
	err    error
}

func (c *stubCleaner) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	c.calls.Add(1)
	c.maxAge.Store(int64(age))
	return 1, c.err
}

func TestHousekeeper_RunsTasksOnStartAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	cleaner := &stubCleaner{}
	h := NewHousekeeper(zap.NewNop(),
		SessionSweepTask(sweeper, 20*time.Millisecond, nil),
		PreviewCleanupTask(cleaner, 24*time.Hour, 0, nil),
	)

	require.NoError(t, h.Start(context.Background()))
	assert.Equal(t, int32(1), cleaner.calls.Load())
	assert.Equal(t, int64(24*time.Hour), cleaner.maxAge.Load())

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Stop(ctx))

	after := sweeper.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load())
	// zero interval task only ran at start
	assert.Equal(t, int32(1), cleaner.calls.Load())
}

func TestHousekeeper_StartAndStopAreIdempotent(t *testing.T) {
	sweeper := &countingSweeper{}
	h := NewHousekeeper(nil, SessionSweepTask(sweeper, time.Hour, nil))

	require.NoError(t, h.Start(context.Background()))
	require.NoError(t, h.Start(context.Background()))
	assert.Equal(t, int32(1), sweeper.calls.Load())

	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Stop(context.Background()))
}

func TestHousekeeper_LogsTaskFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cleaner := &stubCleaner{err: errors.New("permission denied")}
	h := NewHousekeeper(zap.New(core), PreviewCleanupTask(cleaner, time.Hour, 0, nil))

	h.RunNow(context.Background())

	entries := logs.FilterMessage("Housekeeping task failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "preview-cleanup", entries[0].ContextMap()["task"])
}
