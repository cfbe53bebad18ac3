package queue

import (
	"context"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/robfig/cron/v3"
)

// staleAfter is how long a job may sit in PROCESSING before the sweep assumes
// its worker died and releases it.
const staleAfter = 10 * time.Minute

// Scheduler owns the cron-driven maintenance work: the daily low-stock digest
// and the stale-job sweep.
type Scheduler struct {
	cron *cron.Cron

	itemRepo        repository.ItemRepository
	supplyRepo      repository.SupplyRepository
	outboxRepo      repository.OutboxRepository
	notificationSvc service.NotificationService
}

func NewScheduler(
	itemRepo repository.ItemRepository,
	supplyRepo repository.SupplyRepository,
	outboxRepo repository.OutboxRepository,
	notificationSvc service.NotificationService,
) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		itemRepo:        itemRepo,
		supplyRepo:      supplyRepo,
		outboxRepo:      outboxRepo,
		notificationSvc: notificationSvc,
	}
}

// Start registers the jobs and starts the cron loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	// Digest goes out each morning at 08:00 server time.
	if _, err := s.cron.AddFunc("0 8 * * *", func() { s.runDigest(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("*/5 * * * *", func() { s.releaseStale(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runDigest collects every item and supply at or below its reorder threshold
// into a single summary message for the operator. An empty collection
// enqueues nothing.
func (s *Scheduler) runDigest(ctx context.Context) {
	var payload service.LowStockDigestPayload

	items, err := s.itemRepo.ListBelowThreshold(ctx)
	if err != nil {
		log.Printf("digest: failed to list low-stock items: %v", err)
		return
	}
	for _, item := range items {
		payload.Entries = append(payload.Entries, service.LowStockEntry{
			Name:      item.Name,
			Quantity:  item.Quantity,
			Threshold: item.ReorderThreshold,
			Unit:      item.Unit,
		})
	}

	supplies, err := s.supplyRepo.ListBelowThreshold(ctx)
	if err != nil {
		log.Printf("digest: failed to list low-stock supplies: %v", err)
		return
	}
	for _, supply := range supplies {
		payload.Entries = append(payload.Entries, service.LowStockEntry{
			Name:      supply.Name,
			Quantity:  supply.Quantity,
			Threshold: supply.ReorderThreshold,
			Unit:      supply.Unit,
		})
	}

	if err := s.notificationSvc.EnqueueDigest(ctx, payload); err != nil {
		log.Printf("digest: failed to enqueue: %v", err)
	}
}

func (s *Scheduler) releaseStale(ctx context.Context) {
	released, err := s.outboxRepo.ReleaseStale(ctx, model.QueueWhatsApp, time.Now().Add(-staleAfter))
	if err != nil {
		log.Printf("outbox sweep: %v", err)
		return
	}
	if released > 0 {
		log.Printf("outbox sweep: released %d stale jobs", released)
	}
}
