package worker

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// Job is one unit of background work. Run returns nil on success; errors
// tagged transient are retried with backoff, everything else is terminal.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// FailureHandler is implemented by jobs that need to act when the queue
// gives up on them, e.g. to notify the business owner.
type FailureHandler interface {
	OnFailure(ctx context.Context, err error)
}

type queuedJob struct {
	job     Job
	attempt int
}

// Queue is an in-process job queue with a bounded worker pool.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Jobs lost on process restart are re-driven by the periodic batch jobs
type Queue struct {
	jobs chan queuedJob

	workers     int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	timerWG sync.WaitGroup
}

type QueueOption func(*Queue)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		q.workers = n
	}
}

// WithMaxAttempts bounds how often a transiently failing job is retried.
func WithMaxAttempts(n int) QueueOption {
	return func(q *Queue) {
		q.maxAttempts = n
	}
}

// WithBaseDelay sets the first retry delay. Tests use small values.
func WithBaseDelay(d time.Duration) QueueOption {
	return func(q *Queue) {
		q.baseDelay = d
	}
}

// WithMaxDelay caps the exponential backoff.
func WithMaxDelay(d time.Duration) QueueOption {
	return func(q *Queue) {
		q.maxDelay = d
	}
}

// WithQueueSize sets the pending-job buffer. Enqueue fails when full.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		q.jobs = make(chan queuedJob, n)
	}
}

func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		jobs:        make(chan queuedJob, 256),
		workers:     4,
		maxAttempts: 5,
		baseDelay:   2 * time.Second,
		maxDelay:    5 * time.Minute,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Start spawns the worker pool. Does not block.
func (q *Queue) Start(ctx context.Context) error {
	logging.Default().Info("job queue starting",
		"workers", q.workers, "max_attempts", q.maxAttempts)

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.runWorker(ctx)
		}()
	}

	go func() {
		wg.Wait()
		close(q.doneCh)
	}()

	return nil
}

// Stop signals the workers to drain and waits for completion. Pending
// retry timers are abandoned.
func (q *Queue) Stop() {
	logging.Default().Info("job queue stopping")
	close(q.stopCh)
	<-q.doneCh
	q.timerWG.Wait()
	logging.Default().Info("job queue stopped")
}

// Enqueue submits a job. Fails when the queue is stopped or full; callers
// treat a full queue as backpressure and rely on the periodic batches.
func (q *Queue) Enqueue(job Job) error {
	return q.enqueue(queuedJob{job: job, attempt: 1})
}

// EnqueueAfter submits a job after a delay. The delay is abandoned when
// the queue stops first.
func (q *Queue) EnqueueAfter(job Job, delay time.Duration) {
	q.timerWG.Add(1)
	go func() {
		defer q.timerWG.Done()
		select {
		case <-time.After(delay):
		case <-q.stopCh:
			return
		}
		if err := q.Enqueue(job); err != nil {
			logging.Default().Warn("delayed job dropped", "job", job.Name(), "error", err)
		}
	}()
}

func (q *Queue) enqueue(item queuedJob) error {
	select {
	case <-q.stopCh:
		return goerr.New("queue stopped", goerr.V("job", item.job.Name()))
	default:
	}

	select {
	case q.jobs <- item:
		return nil
	default:
		return goerr.New("queue full", goerr.V("job", item.job.Name()))
	}
}

func (q *Queue) runWorker(ctx context.Context) {
	for {
		select {
		case item := <-q.jobs:
			q.process(ctx, item)

		case <-q.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) process(ctx context.Context, item queuedJob) {
	err := q.runJob(ctx, item.job)
	if err == nil {
		return
	}

	if types.IsTransient(err) && item.attempt < q.maxAttempts {
		delay := q.backoff(item.attempt)
		logging.From(ctx).Warn("job failed, retrying",
			"job", item.job.Name(), "attempt", item.attempt, "delay", delay.String(), "error", err)
		q.retryAfter(queuedJob{job: item.job, attempt: item.attempt + 1}, delay)
		return
	}

	logging.From(ctx).Error("job failed terminally",
		"job", item.job.Name(), "attempt", item.attempt, "error", err)
	if handler, ok := item.job.(FailureHandler); ok {
		handler.OnFailure(ctx, err)
	}
}

func (q *Queue) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerr.New("panic in job", goerr.V("job", job.Name()), goerr.V("panic", r))
		}
	}()
	return job.Run(ctx)
}

func (q *Queue) retryAfter(item queuedJob, delay time.Duration) {
	q.timerWG.Add(1)
	go func() {
		defer q.timerWG.Done()
		select {
		case <-time.After(delay):
		case <-q.stopCh:
			return
		}
		if err := q.enqueue(item); err != nil {
			logging.Default().Warn("retry dropped", "job", item.job.Name(), "error", err)
		}
	}()
}

// backoff doubles the delay per attempt up to the cap, keeping 50-100% of
// the computed value so retry bursts spread out.
func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= q.maxDelay {
			delay = q.maxDelay
			break
		}
	}

	half := delay / 2
	return half + rand.N(half+1)
}
