// Package worker runs player update tasks on a bounded pool of workers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hiscores/internal/adapters/mq/queue"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/okian/hiscores/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Processor handles a single task.
type Processor interface {
	Process(ctx context.Context, t queue.Task) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, t queue.Task) error

// Process calls f(ctx, t).
func (f ProcessorFunc) Process(ctx context.Context, t queue.Task) error { return f(ctx, t) }

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Result is the outcome of one task.
type Result struct {
	Task     queue.Task
	Err      error
	Duration time.Duration
}

// Worker processes tasks until its queue is drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the task in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	report    func(Result)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		report:    func(Result) {},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, t)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, t queue.Task) {
	start := time.Now()
	err := w.processor.Process(ctx, t)
	took := time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(took.Milliseconds()))

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		w.logger.Warn(ctx, "task failed, skipping user",
			logger.String("task_id", t.ID),
			logger.String("username", t.Username),
			logger.Error(err),
		)
	}
	w.report(Result{Task: t, Err: err, Duration: took})
}

// BatchResult summarises one drained batch.
type BatchResult struct {
	Processed int
	Failed    int
	// Skipped counts tasks never handed to a worker, e.g. after cancellation.
	Skipped int
	Errors  map[string]error
}

// Pool drains batches of tasks with a fixed number of workers.
type Pool struct {
	size      int
	processor Processor
	active    atomic.Int64
	logger    logger.Logger
}

// NewPool creates a new worker pool. A non-positive size picks one from the CPU count.
func NewPool(size int, p Processor, opts ...PoolOption) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}
	pool := &Pool{size: size, processor: p}
	for _, opt := range opts {
		opt(pool)
	}
	if pool.logger == nil {
		pool.logger = logger.Get().Named("worker-pool")
	}
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the maximum number of concurrent workers.
func (p *Pool) Size() int { return p.size }

// RunBatch enqueues tasks on a fresh queue and blocks until every worker has
// drained it. A failing task never aborts the rest of the batch.
func (p *Pool) RunBatch(ctx context.Context, tasks []queue.Task) BatchResult {
	res := BatchResult{Errors: make(map[string]error)}
	if len(tasks) == 0 {
		return res
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(tasks)))
	enqueued := 0
	for _, t := range tasks {
		if !q.Enqueue(ctx, t) {
			res.Failed++
			res.Errors[t.Username] = queue.ErrQueueFull
			continue
		}
		enqueued++
	}
	_ = q.Close()

	var mu sync.Mutex
	handled := 0
	reporter := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		handled++
		if r.Err != nil {
			res.Failed++
			res.Errors[r.Task.Username] = r.Err
			return
		}
		res.Processed++
	}

	workers := p.size
	if workers > enqueued {
		workers = enqueued
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := NewInMemoryWorker(q, p.processor,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
			WithReporter(reporter),
		)
		wg.Add(1)
		metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
		go func() {
			defer wg.Done()
			defer func() { metrics.UpdateWorkerActiveCount(int(p.active.Add(-1))) }()
			w.Run(ctx)
		}()
	}
	wg.Wait()

	res.Skipped = enqueued - handled
	if res.Skipped > 0 {
		p.logger.Warn(ctx, "batch interrupted", logger.Int("skipped", res.Skipped))
	}
	return res
}
