package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned when enqueueing after shutdown.
var ErrQueueClosed = errors.New("tasks: queue closed")

// ErrQueueFull is returned when the queue buffer is saturated.
var ErrQueueFull = errors.New("tasks: queue full")

// Job is one unit of queued work.
type Job struct {
	Name string
	Run  func(context.Context) Result
}

// Queue executes jobs asynchronously on a fixed pool of workers, each job
// under the runner's retry policy.
type Queue struct {
	runner  *Runner
	jobs    chan Job
	logger  *slog.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewQueue starts worker goroutines consuming a buffered job queue.
func NewQueue(runner *Runner, workers, buffer int, logger *slog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		runner:  runner,
		jobs:    make(chan Job, buffer),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		if err := q.runner.Run(q.baseCtx, job.Name, job.Run); err != nil {
			q.logger.Error("background job failed", "job", job.Name, "error", err)
		}
	}
}

// Enqueue submits a job. It never blocks; a saturated queue rejects the job.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}
