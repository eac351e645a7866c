package prefetch

import (
	"context"
	"sync"
	"time"
)

// Task manages a background function that runs at a regular interval. It is
// cancellable as a unit so tests never leak timers.
type Task struct {
	interval time.Duration
	fn       func()
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewTask creates a periodic task. It does not start until Start is called.
func NewTask(interval time.Duration, fn func()) *Task {
	return &Task{interval: interval, fn: fn}
}

// Start begins executing the function at the configured interval.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.fn()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the task and waits for any in-flight run to finish.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	t.cancel()
	t.wg.Wait()
	t.running = false
}

// IsRunning reports whether the task is active.
func (t *Task) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
