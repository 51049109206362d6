package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/worker"
)

type stubJob struct {
	mu        sync.Mutex
	runs      int
	failUntil int
	err       error

	succeeded chan struct{}
	failed    chan error
}

func newStubJob(failUntil int, err error) *stubJob {
	return &stubJob{
		failUntil: failUntil,
		err:       err,
		succeeded: make(chan struct{}, 1),
		failed:    make(chan error, 1),
	}
}

func (j *stubJob) Name() string {
	return "stub"
}

func (j *stubJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.runs++
	if j.runs <= j.failUntil {
		return j.err
	}

	select {
	case j.succeeded <- struct{}{}:
	default:
	}
	return nil
}

func (j *stubJob) OnFailure(ctx context.Context, err error) {
	select {
	case j.failed <- err:
	default:
	}
}

func (j *stubJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newTestQueue(t *testing.T, opts ...worker.QueueOption) *worker.Queue {
	t.Helper()

	opts = append([]worker.QueueOption{
		worker.WithWorkers(2),
		worker.WithBaseDelay(time.Millisecond),
		worker.WithMaxDelay(10 * time.Millisecond),
	}, opts...)

	q := worker.NewQueue(opts...)
	gt.NoError(t, q.Start(context.Background())).Required()
	t.Cleanup(q.Stop)
	return q
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	q := newTestQueue(t)

	job := newStubJob(2, goerr.New("flaky", goerr.T(types.ErrTagTransient)))
	gt.NoError(t, q.Enqueue(job)).Required()

	select {
	case <-job.succeeded:
	case <-time.After(5 * time.Second):
		t.Fatal("job never succeeded")
	}

	gt.Number(t, job.runCount()).Equal(3)
	select {
	case <-job.failed:
		t.Fatal("transient failure must not reach the failure handler")
	default:
	}
}

func TestQueuePermanentFailureIsTerminal(t *testing.T) {
	q := newTestQueue(t)

	job := newStubJob(10, goerr.New("broken", goerr.T(types.ErrTagPermanent)))
	gt.NoError(t, q.Enqueue(job)).Required()

	select {
	case err := <-job.failed:
		gt.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("failure handler never invoked")
	}

	gt.Number(t, job.runCount()).Equal(1)
}

func TestQueueBoundsAttempts(t *testing.T) {
	q := newTestQueue(t, worker.WithMaxAttempts(3))

	job := newStubJob(100, goerr.New("down", goerr.T(types.ErrTagTransient)))
	gt.NoError(t, q.Enqueue(job)).Required()

	select {
	case <-job.failed:
	case <-time.After(5 * time.Second):
		t.Fatal("failure handler never invoked")
	}

	gt.Number(t, job.runCount()).Equal(3)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	// No Start: nothing drains the buffer
	q := worker.NewQueue(worker.WithQueueSize(1))

	gt.NoError(t, q.Enqueue(newStubJob(0, nil))).Required()

	err := q.Enqueue(newStubJob(0, nil))
	gt.Error(t, err)
}

func TestQueueEnqueueAfter(t *testing.T) {
	q := newTestQueue(t)

	job := newStubJob(0, nil)
	q.EnqueueAfter(job, time.Millisecond)

	select {
	case <-job.succeeded:
	case <-time.After(5 * time.Second):
		t.Fatal("delayed job never ran")
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	q := newTestQueue(t)

	job := &panicJob{failed: make(chan error, 1)}
	gt.NoError(t, q.Enqueue(job)).Required()

	select {
	case err := <-job.failed:
		gt.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("panicking job never reported failure")
	}
}

type panicJob struct {
	failed chan error
}

func (j *panicJob) Name() string {
	return "panic"
}

func (j *panicJob) Run(ctx context.Context) error {
	panic("boom")
}

func (j *panicJob) OnFailure(ctx context.Context, err error) {
	select {
	case j.failed <- err:
	default:
	}
}
