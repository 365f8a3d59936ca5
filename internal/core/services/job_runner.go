package services

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrQueueFull is returned when the background queue cannot take more jobs
var ErrQueueFull = errors.New("ingestion queue is full")

// errRunnerStopped is returned by Enqueue after Stop
var errRunnerStopped = errors.New("job runner stopped")

// JobRunner executes queued jobs on a fixed pool of goroutines
type JobRunner struct {
	workers  int
	jobs     chan string
	stopChan chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewJobRunner creates a runner with the given pool and queue sizes
func NewJobRunner(workers, queueSize int) *JobRunner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		workers:  workers,
		jobs:     make(chan string, queueSize),
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers. Each job ID is passed to handler.
func (r *JobRunner) Start(handler func(ctx context.Context, jobID string)) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(handler)
	}
	log.Printf("🚀 JobRunner started (%d workers)", r.workers)
}

func (r *JobRunner) work(handler func(ctx context.Context, jobID string)) {
	defer r.wg.Done()
	for {
		select {
		case id := <-r.jobs:
			handler(r.ctx, id)
		case <-r.stopChan:
			return
		}
	}
}

// Enqueue hands a job to the pool without blocking
func (r *JobRunner) Enqueue(jobID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return errRunnerStopped
	}

	select {
	case r.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop waits for running jobs to return. Queued jobs that have not started
// stay PENDING.
func (r *JobRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()
	r.cancel()
	log.Println("🛑 JobRunner stopped")
}
