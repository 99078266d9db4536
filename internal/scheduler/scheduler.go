// Package scheduler runs deferred single-shot tasks on an explicit event loop.
// A task deferred while a tick is running executes on the following tick,
// never inline from Defer.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler accepts tasks that must run after the current unit of work.
type Scheduler interface {
	Defer(task func())
}

// Loop is a FIFO queue of deferred tasks drained one tick at a time.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	log     *slog.Logger
	ticks   uint64
	running bool
}

// NewLoop creates an idle Loop.
func NewLoop(log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}

	return &Loop{
		wake: make(chan struct{}, 1),
		log:  log,
	}
}

// Defer queues task for the next tick.
func (l *Loop) Defer(task func()) {
	if task == nil {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunTick runs exactly the tasks that were queued when it was called and
// returns how many ran. A panicking task is logged and does not stop the tick.
func (l *Loop) RunTick() int {
	l.mu.Lock()
	tasks := l.queue
	l.queue = nil
	l.ticks++
	tick := l.ticks
	l.mu.Unlock()

	for _, task := range tasks {
		l.runTask(tick, task)
	}

	return len(tasks)
}

// Drain runs ticks until the queue stays empty or maxTicks ticks were run. It
// returns the number of ticks that ran tasks.
func (l *Loop) Drain(maxTicks int) int {
	ran := 0
	for ran < maxTicks && l.Pending() > 0 {
		l.RunTick()
		ran++
	}
	return ran
}

// Pending reports the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Ticks reports how many ticks have run.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Running reports whether Run is currently driving the loop.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Run drives ticks whenever work is queued until ctx is cancelled. Tasks
// still queued at cancellation are run once before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.log.Info("scheduler: loop started")
	for {
		for l.Pending() > 0 {
			l.RunTick()
		}

		select {
		case <-ctx.Done():
			flushed := l.RunTick()
			l.log.Info("scheduler: loop stopped", slog.Int("flushed_tasks", flushed))
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// HealthCheck fails when the loop is not being driven.
func (l *Loop) HealthCheck(ctx context.Context) error {
	if !l.Running() {
		return ErrNotRunning
	}
	return nil
}

func (l *Loop) runTask(tick uint64, task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("scheduler: task panicked",
				slog.Uint64("tick", tick),
				slog.Any("panic", r),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}()

	task()
}
