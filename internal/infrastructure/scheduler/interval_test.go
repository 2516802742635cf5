package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	var runs atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)

	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { t.Error("second start must be ignored") }))

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(time.Hour)

	started := make(chan struct{})
	require.NoError(t, s.Start(ctx, func(time.Time) { close(started) }))
	<-started

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
}

func TestIntervalSchedulerRestartsAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(time.Hour)

	var runs atomic.Int32
	job := func(time.Time) { runs.Add(1) }
	require.NoError(t, s.Start(ctx, job))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-s.Done()

	require.NoError(t, s.Start(context.Background(), job))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerRejectsZeroInterval(t *testing.T) {
	err := NewIntervalScheduler(0).Start(context.Background(), func(time.Time) {})
	require.ErrorIs(t, err, ErrBadInterval)
}
