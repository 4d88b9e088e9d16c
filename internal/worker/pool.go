// Package worker runs fire-and-forget background tasks on a bounded pool.
//
// Tasks never report back to the submitter. A failing, panicking or timed out
// task is logged with its name and counted under the "worker" metrics domain.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scrilab/artale-auth/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when the task queue has no free slot.
	ErrQueueFull = errors.New("worker queue full")
	// ErrPoolClosed is returned by Submit after Shutdown has started.
	ErrPoolClosed = errors.New("worker pool closed")
)

const metricsDomain = "worker"

// TaskFunc is the unit of background work.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	fn   TaskFunc
}

// Config sizes the pool.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Pool is a fixed set of workers reading from a bounded queue.
type Pool struct {
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
	timeout time.Duration

	queue  chan task
	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPool starts cfg.Workers workers. Zero values fall back to one worker,
// a queue of 64 and a 10 second task timeout.
func NewPool(cfg Config, logger *slog.Logger, businessMetrics metrics.BusinessMetrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:  logger,
		metrics: businessMetrics,
		timeout: cfg.TaskTimeout,
		queue:   make(chan task, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.group.Go(func() error {
			for t := range p.queue {
				p.run(t)
			}
			return nil
		})
	}

	return p
}

// Submit enqueues fn without blocking. A full queue is logged and counted
// before ErrQueueFull is returned, so the task is never dropped silently.
func (p *Pool) Submit(name string, fn TaskFunc) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("background task rejected, pool closed", slog.String("task", name))
		p.metrics.RecordOperation(p.ctx, metricsDomain, name, "rejected")
		return ErrPoolClosed
	}

	select {
	case p.queue <- task{name: name, fn: fn}:
		return nil
	default:
		p.logger.Error("background task rejected, queue full",
			slog.String("task", name),
			slog.Int("queue_size", cap(p.queue)),
		)
		p.metrics.RecordOperation(p.ctx, metricsDomain, name, "rejected")
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Shutdown stops accepting tasks and waits for the queue to drain.
// When ctx expires first, running tasks are cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

func (p *Pool) run(t task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	err := p.safeCall(ctx, t)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		p.logger.Error("background task failed",
			slog.String("task", t.name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
	}
	p.metrics.RecordOperation(ctx, metricsDomain, t.name, status)
	p.metrics.RecordDuration(ctx, metricsDomain, t.name, time.Since(start), status)
}

func (p *Pool) safeCall(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.logger.Error("background task panicked",
				slog.String("task", t.name),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	return t.fn(ctx)
}
