package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/envelope"
	"github.com/deltacrown/herald/observability"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity and the
// backpressure policy is to drop.
var ErrQueueFull = errors.New("delivery: queue is full")

// BackpressurePolicy controls what Enqueue does when the queue is full.
type BackpressurePolicy int

const (
	// BackpressureDrop rejects the task with ErrQueueFull. The producer is
	// never blocked; the drop is counted in metrics. This is the default.
	BackpressureDrop BackpressurePolicy = iota

	// BackpressureBlock blocks Enqueue until queue space frees up or the
	// context is cancelled.
	BackpressureBlock
)

// Task is one bound event waiting for delivery, paired with a snapshot of
// its endpoint. The snapshot is taken at enqueue time: a secret rotation or
// disable after that does not affect deliveries already in the queue.
type Task struct {
	Event    *envelope.Event
	Endpoint *endpoint.Endpoint
}

// EngineConfig sizes the delivery engine.
type EngineConfig struct {
	Workers      int
	QueueSize    int
	Backpressure BackpressurePolicy
}

// Engine owns the bounded delivery queue and the fixed worker pool. Each
// worker drains one task at a time and drives it to a terminal state via the
// scheduler, so attempts for a given delivery are strictly sequential while
// distinct deliveries proceed concurrently.
type Engine struct {
	cfg       EngineConfig
	scheduler *Scheduler
	metrics   *observability.Metrics
	logger    *slog.Logger

	queue   chan *Task
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewEngine creates a delivery engine. The queue is allocated up front:
// tasks may be enqueued before Start and are drained once workers run.
func NewEngine(cfg EngineConfig, scheduler *Scheduler, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if metrics == nil {
		metrics = observability.NewDefaultMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:       cfg,
		scheduler: scheduler,
		metrics:   metrics,
		logger:    logger,
		queue:     make(chan *Task, cfg.QueueSize),
	}
}

// Start launches the worker pool. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}

	// Workers outlive the caller's context; Stop is the only way down.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(runCtx)
	}

	e.logger.InfoContext(ctx, "delivery engine started",
		"workers", e.cfg.Workers, "queue_size", e.cfg.QueueSize)
	return nil
}

// Stop shuts the pool down: no new tasks are picked up, waits and backoffs
// are interrupted, and attempts already on the wire complete naturally. It
// returns once all workers have exited or the context expires.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.InfoContext(ctx, "delivery engine stopped", "queued_remaining", len(e.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands a task to the worker pool. Under BackpressureDrop a full
// queue rejects immediately with ErrQueueFull; under BackpressureBlock the
// call waits for space or context cancellation.
func (e *Engine) Enqueue(ctx context.Context, task *Task) error {
	switch e.cfg.Backpressure {
	case BackpressureBlock:
		select {
		case e.queue <- task:
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		select {
		case e.queue <- task:
		default:
			e.metrics.EventsDroppedTotal.Inc()
			return ErrQueueFull
		}
	}

	e.metrics.QueueDepth.Inc()
	return nil
}

// Depth returns the number of tasks currently queued.
func (e *Engine) Depth() int {
	return len(e.queue)
}

// Running reports whether the worker pool is up.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-e.queue:
			e.metrics.QueueDepth.Dec()
			e.scheduler.Deliver(ctx, task.Event, task.Endpoint)
		}
	}
}
