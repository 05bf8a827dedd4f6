package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Submit when no slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueStopped is returned by Submit after Stop.
	ErrQueueStopped = errors.New("job queue is stopped")
)

// Context is handed to a running Func.
type Context struct {
	context.Context
	Job *Job
	Log *slog.Logger
}

// Queue runs submitted jobs on a fixed pool of workers.
type Queue struct {
	store   *Store
	queue   chan *Job
	workers int
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex // guards stopped and the close of queue
	stopped bool
}

func NewQueue(workers, size int, ttl time.Duration, log *slog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &Queue{
		store:   NewStore(ttl),
		queue:   make(chan *Job, size),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker goroutines and the store cleanup loop.
func (q *Queue) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for range q.workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-q.queue:
					if !ok {
						return
					}
					q.process(workerCtx, job)
				}
			}
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case now := <-ticker.C:
				q.store.Cleanup(now)
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit. Later
// submissions fail with ErrQueueStopped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	if q.cancel != nil {
		q.cancel()
	}
	close(q.queue)
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit registers the job and queues it for a worker.
func (q *Queue) Submit(job *Job) error {
	q.store.Put(job)

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		job.SetStatus(StatusFailed, "stopped")
		return ErrQueueStopped
	}
	select {
	case q.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, cap(q.queue))
	}
}

func (q *Queue) Get(id string) *Job {
	return q.store.Get(id)
}

// Depth returns the number of jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.queue)
}

func (q *Queue) process(ctx context.Context, job *Job) {
	log := q.log.With("job_id", job.ID, "kind", job.Kind)
	job.SetStatus(StatusRunning, "")
	start := time.Now()

	err := job.run(Context{Context: ctx, Job: job, Log: log})
	switch {
	case err != nil:
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "")
		log.Error("job failed", "error", err)
	case len(job.Snapshot().Errors) > 0:
		job.SetStatus(StatusPartial, "")
		log.Warn("job finished with errors", "duration_ms", time.Since(start).Milliseconds())
	default:
		job.SetStatus(StatusCompleted, "")
		log.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
	}
}
