package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"backend/internal/model"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 20
)

// Pool polls the outbox for due jobs and fans them out to a fixed number of
// worker goroutines. Claiming uses SKIP LOCKED, so multiple instances of the
// service can run pools against the same table.
type Pool struct {
	worker  *Worker
	workers int

	pollInterval time.Duration
	batchSize    int

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewPool(worker *Worker, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		worker:       worker,
		workers:      workers,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		stop:         make(chan struct{}),
	}
}

// Start launches the poll loop and worker goroutines. It returns immediately;
// call Stop to drain.
func (p *Pool) Start(ctx context.Context) {
	jobs := make(chan model.OutboxJob)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range jobs {
				p.runProtected(ctx, job)
			}
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(jobs)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.dispatch(ctx, jobs)
			}
		}
	}()
}

// Stop signals the poll loop and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Pool) dispatch(ctx context.Context, jobs chan<- model.OutboxJob) {
	claimed, err := p.worker.outboxRepo.ClaimDue(ctx, model.QueueWhatsApp, p.batchSize)
	if err != nil {
		log.Printf("outbox: failed to claim due jobs: %v", err)
		return
	}

	for _, job := range claimed {
		select {
		case jobs <- job:
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

// runProtected keeps a panicking job from taking down the whole pool. The job
// stays in PROCESSING and is returned to PENDING by the stale-job sweep.
func (p *Pool) runProtected(ctx context.Context, job model.OutboxJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("outbox: panic while processing job %s: %v", job.ID, r)
		}
	}()
	p.worker.Process(ctx, job)
}
