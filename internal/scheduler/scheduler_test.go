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
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoop_DeferNeverRunsInline(t *testing.T) {
	loop := NewLoop(testLogger())

	ran := false
	loop.Defer(func() { ran = true })

	assert.False(t, ran)
	assert.Equal(t, 1, loop.Pending())

	assert.Equal(t, 1, loop.RunTick())
	assert.True(t, ran)
	assert.Equal(t, 0, loop.Pending())
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	loop := NewLoop(testLogger())

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Defer(func() { order = append(order, i) })
	}

	loop.RunTick()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoop_TasksDeferredDuringTickRunNextTick(t *testing.T) {
	loop := NewLoop(testLogger())

	var order []string
	loop.Defer(func() {
		order = append(order, "first")
		loop.Defer(func() { order = append(order, "nested") })
	})
	loop.Defer(func() { order = append(order, "second") })

	assert.Equal(t, 2, loop.RunTick())
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, loop.Pending())

	assert.Equal(t, 1, loop.RunTick())
	assert.Equal(t, []string{"first", "second", "nested"}, order)
	assert.Equal(t, uint64(2), loop.Ticks())
}

func TestLoop_PanickingTaskDoesNotStopTick(t *testing.T) {
	loop := NewLoop(testLogger())

	ran := false
	loop.Defer(func() { panic("boom") })
	loop.Defer(func() { ran = true })

	assert.NotPanics(t, func() { loop.RunTick() })
	assert.True(t, ran)
}

func TestLoop_Drain(t *testing.T) {
	loop := NewLoop(testLogger())

	var reschedule func()
	count := 0
	reschedule = func() {
		count++
		if count < 3 {
			loop.Defer(reschedule)
		}
	}
	loop.Defer(reschedule)

	assert.Equal(t, 3, loop.Drain(10))
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, loop.Drain(10))
}

func TestLoop_Run(t *testing.T) {
	loop := NewLoop(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var ran atomic.Int32
	loop.Defer(func() { ran.Add(1) })

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, loop.HealthCheck(context.Background()))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.ErrorIs(t, loop.HealthCheck(context.Background()), ErrNotRunning)
}

func TestLoop_RunFlushesQueuedTasksOnCancel(t *testing.T) {
	loop := NewLoop(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var order []string
	loop.Defer(func() {
		order = append(order, "first")
		loop.Defer(func() { order = append(order, "deferred by first") })
	})
	loop.Defer(func() { order = append(order, "second") })

	err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first", "second", "deferred by first"}, order)
	assert.Equal(t, 0, loop.Pending())
	assert.False(t, loop.Running())
}

func TestLoop_RunReturnsWhenIdleAndCancelled(t *testing.T) {
	loop := NewLoop(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	require.Eventually(t, loop.Running, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 0, loop.Pending())
}
