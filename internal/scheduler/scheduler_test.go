package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-alerts/internal/notify"
)

type countingRunner struct {
	calls       atomic.Int32
	hadDeadline atomic.Bool
}

func (r *countingRunner) Run(ctx context.Context) notify.Result {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); ok || ctx.Done() != nil {
		r.hadDeadline.Store(true)
	}
	return notify.Result{Success: true, Message: notify.MsgProcessed}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_IntervalRunsJob(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, Config{Interval: 50 * time.Millisecond}, discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RunIsNotCancellable(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, Config{Interval: 20 * time.Millisecond}, discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return runner.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, runner.hadDeadline.Load())
}

func TestScheduler_WaitsForFirstInterval(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, Config{Interval: time.Hour}, discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.calls.Load())
}

func TestScheduler_NoSchedule(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, Config{}, discard())

	require.NoError(t, s.Start())
	assert.False(t, s.scheduler.IsRunning())
	s.Stop()
}

func TestScheduler_InvalidCron(t *testing.T) {
	s := New(&countingRunner{}, Config{Cron: "every now and then"}, discard())
	assert.Error(t, s.Start())
	s.Stop()
}

func TestScheduler_ValidCron(t *testing.T) {
	s := New(&countingRunner{}, Config{Cron: "0 */3 * * *", Interval: time.Minute}, discard())

	require.NoError(t, s.Start())
	defer s.Stop()

	jobs := s.scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].NextRun().After(time.Now()))
}
