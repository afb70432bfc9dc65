// Package scheduler runs periodic background work.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusy is returned by RunNow when a previous run is still in progress.
var ErrBusy = errors.New("task is already running")

// Task runs Run every Interval. Runs never overlap: a firing that arrives
// while the previous run is still going is skipped.
type Task struct {
	Run      func(ctx context.Context) error
	cancel   context.CancelFunc
	done     chan struct{}
	Name     string
	Interval time.Duration
	mu       sync.Mutex
	running  atomic.Bool
}

// Start runs the task once immediately and then on every tick until ctx is
// canceled or Stop is called. Starting a started task is a no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.loop(ctx, t.done)
}

// Stop halts the loop and waits for an in-flight run to finish.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunNow runs the task synchronously unless a run is already in progress.
func (t *Task) RunNow(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer t.running.Store(false)

	start := time.Now()
	err := t.Run(ctx)
	if err != nil {
		slog.Error("Scheduled task failed", "task", t.Name, "duration", time.Since(start), "error", err)
		return err
	}
	slog.Debug("Scheduled task completed", "task", t.Name, "duration", time.Since(start))
	return nil
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := t.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	t.fire(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

func (t *Task) fire(ctx context.Context) {
	if err := t.RunNow(ctx); errors.Is(err, ErrBusy) {
		slog.Warn("Skipping scheduled run, previous run still in progress", "task", t.Name)
	}
}
