package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher runs refreshes in the background after catalog mutations. The
// mutation response never blocks on the refresh; failures land in an
// error-logging sink instead of surfacing to the user who made the edit.
type Dispatcher struct {
	pipeline *Pipeline
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	errs   chan error
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher and starts its error sink.
func NewDispatcher(pipeline *Pipeline, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	d := &Dispatcher{
		pipeline: pipeline,
		logger:   logger,
		timeout:  timeout,
		errs:     make(chan error, 16),
	}
	go d.drain()
	return d
}

// Dispatch schedules a refresh and returns immediately.
func (d *Dispatcher) Dispatch() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if _, err := d.pipeline.Run(ctx); err != nil {
			select {
			case d.errs <- err:
			default:
				// Sink backlogged; log directly rather than block the task.
				d.logger.Error("Background refresh failed", "error", err)
			}
		}
	}()
}

// Close waits for in-flight refreshes and stops the sink.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errs)
}

func (d *Dispatcher) drain() {
	for err := range d.errs {
		d.logger.Error("Background refresh failed", "error", err)
	}
}
