package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/restock/internal/logger"
	"github.com/MrSnakeDoc/restock/internal/monitor"
)

// Runner executes one monitoring run.
type Runner interface {
	Run(ctx context.Context, opts monitor.RunOptions) monitor.RunOutcome
}

// Dispatcher starts runs in the background and keeps track of them so
// shutdown can wait for in-flight work.
type Dispatcher struct {
	runner  Runner
	logger  logger.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher. Runs use a context detached from
// whoever triggered them; it is only cancelled by Close.
func NewDispatcher(runner Runner, log logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner:  runner,
		logger:  log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Trigger schedules a run and returns immediately. It reports false once
// the dispatcher is closed.
func (d *Dispatcher) Trigger(force bool, trigger string) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("run rejected, dispatcher is shutting down",
			logger.String("trigger", trigger))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Errorf("run panicked: %v", r)
			}
		}()

		d.runner.Run(d.baseCtx, monitor.RunOptions{Force: force, Trigger: trigger})
	}()

	return true
}

// Close stops accepting runs and waits for in-flight ones. When ctx expires
// first, running probes are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		// give cancelled runs a moment to flush their digests
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return ctx.Err()
	}
}
