package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Priya8975/broadcast-review/internal/engine"
)

// JobHandler processes one country job.
type JobHandler interface {
	Handle(ctx context.Context, job engine.CountryJob)
}

// Pool runs a fixed number of goroutines that each reconcile one country at a time.
type Pool struct {
	numWorkers int
	jobs       chan engine.CountryJob
	handler    JobHandler
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, handler JobHandler, logger *slog.Logger) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan engine.CountryJob, numWorkers),
		handler:    handler,
		logger:     logger,
	}
}

// Start launches the workers. They drain the jobs channel until Stop.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit hands a job to a worker. It returns false if ctx ends first.
func (p *Pool) Submit(ctx context.Context, job engine.CountryJob) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop closes the jobs channel and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if ctx.Err() != nil {
			p.logger.Warn("dropping job after shutdown", "worker", id, "run_id", job.RunID, "country", job.Country)
			continue
		}
		p.handler.Handle(ctx, job)
	}
}
