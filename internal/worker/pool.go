package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/meetapp/internal/domain"
)

// Pool manages a fixed number of goroutines draining notification jobs.
type Pool struct {
	numWorkers int
	jobs       chan domain.NotificationJob
	notifier   *Notifier
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, notifier *Notifier, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan domain.NotificationJob, numWorkers*2),
		notifier:   notifier,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("notification worker pool started", "num_workers", p.numWorkers)
}

// Submit hands a claimed job to the pool.
func (p *Pool) Submit(job domain.NotificationJob) {
	p.jobs <- job
}

// Stop closes the jobs channel and waits for the workers to drain every
// buffered job. Submitted jobs were already claimed off the queue, so
// abandoning them here would lose them.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("notification worker pool stopped")
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.notifier.Process(ctx, job)
	}
}
