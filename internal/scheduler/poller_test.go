package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RunsImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("test", 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Start(ctx, func(context.Context) error {
			calls.Add(1)
			return nil
		})
		close(done)
	}()
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestPoller_SkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	p := NewPoller("slow", 5*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = p.Start(ctx, func(context.Context) error {
			calls.Add(1)
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool { return p.Skipped() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	close(release)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPoller_InvalidIntervalReturns(t *testing.T) {
	p := NewPoller("bad", 0, true)
	assert.NoError(t, p.Start(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, int64(0), p.Runs())
}

func TestPoller_StartWaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	p := NewPoller("drain", time.Hour, true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Start(ctx, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.True(t, finished.Load(), "Start returned before the running task finished")
}
