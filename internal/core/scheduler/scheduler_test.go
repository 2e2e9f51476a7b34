package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPicksImplementation(t *testing.T) {
	job := func(context.Context) {}

	s, err := New("*/5 * * * *", time.Second, job)
	require.NoError(t, err)
	assert.IsType(t, &Cron{}, s)

	s, err = New("", time.Second, job)
	require.NoError(t, err)
	assert.IsType(t, &Interval{}, s)

	s, err = New("", 0, job)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New("every tuesday", 0, job)
	require.Error(t, err)
}

func TestIntervalRunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	s := NewInterval(10*time.Millisecond, func(context.Context) { runs.Add(1) })
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestCronStartStop(t *testing.T) {
	s, err := NewCron("@every 1s", func(context.Context) {})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
