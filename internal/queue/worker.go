package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend/internal/gateway"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
)

// backoffDelays holds the wait before each retry: 1 minute after the first
// failed attempt, then 5, then 30.
var backoffDelays = []time.Duration{1 * time.Minute, 5 * time.Minute, 30 * time.Minute}

// renderFallback is logged when the terminal failure handler cannot
// regenerate the message text.
const renderFallback = "(message could not be generated)"

// Worker executes one claimed outbox job per call. Delivery is at-least-once:
// a retried job may duplicate an outbound message if the provider partially
// succeeded, which is accepted for this internal channel.
type Worker struct {
	outboxRepo repository.OutboxRepository
	userRepo   repository.UserRepository
	prefRepo   repository.PreferenceRepository
	logRepo    repository.NotificationLogRepository
	gateway    gateway.MessagingGateway
	now        func() time.Time
}

func NewWorker(
	outboxRepo repository.OutboxRepository,
	userRepo repository.UserRepository,
	prefRepo repository.PreferenceRepository,
	logRepo repository.NotificationLogRepository,
	gw gateway.MessagingGateway,
) *Worker {
	return &Worker{
		outboxRepo: outboxRepo,
		userRepo:   userRepo,
		prefRepo:   prefRepo,
		logRepo:    logRepo,
		gateway:    gw,
		now:        time.Now,
	}
}

// Process runs a single delivery attempt for a claimed job. The job's
// Attempts counter was already incremented when the job was claimed, so the
// zero-based retry count is Attempts-1.
func (w *Worker) Process(ctx context.Context, job model.OutboxJob) {
	retryCount := job.Attempts - 1

	// Re-check the recipient still has a phone number; it may have been
	// removed since the job was routed.
	user, err := w.userRepo.GetByID(ctx, job.UserID.String())
	if err != nil || user.Phone == "" {
		w.markSkipped(ctx, job, "recipient has no phone number")
		return
	}

	pref, err := w.prefRepo.GetOrCreate(ctx, job.UserID)
	if err != nil {
		w.retryOrDrop(ctx, job, retryCount, fmt.Errorf("failed to load preference: %w", err))
		return
	}
	if !pref.Enabled || !pref.CategoryEnabled(job.EventType) {
		w.markSkipped(ctx, job, "notifications disabled for category "+job.EventType)
		return
	}

	// Quiet hours are a skip, not a failure: no retry is scheduled and no
	// failure row is written.
	if withinQuietHours(pref.QuietStart, pref.QuietEnd, w.now()) {
		w.markSkipped(ctx, job, "within quiet hours")
		return
	}

	message, err := service.RenderMessage(job.EventType, []byte(job.Payload))
	if err != nil {
		// Rendering errors are programming errors. Fail loudly, never retry.
		w.logOutcome(ctx, job, model.DeliveryFailed, renderFallback, "", err.Error(), retryCount)
		if markErr := w.outboxRepo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			log.Printf("outbox: failed to mark job %s failed: %v", job.ID, markErr)
		}
		return
	}

	response, err := w.gateway.Send(ctx, user.Phone, message)
	if err != nil {
		w.logOutcome(ctx, job, model.DeliveryFailed, message, response, err.Error(), retryCount)
		w.retryOrDrop(ctx, job, retryCount, err)
		return
	}

	w.logOutcome(ctx, job, model.DeliverySent, message, response, "", retryCount)
	if markErr := w.outboxRepo.MarkSent(ctx, job.ID); markErr != nil {
		log.Printf("outbox: failed to mark job %s sent: %v", job.ID, markErr)
	}
}

// retryOrDrop reschedules the job with backoff, or drops it when the attempt
// budget is exhausted. Failures after the final attempt are terminal: the job
// is marked failed and nobody is alerted about the failure itself.
func (w *Worker) retryOrDrop(ctx context.Context, job model.OutboxJob, retryCount int, cause error) {
	if job.Attempts >= job.MaxAttempts {
		if err := w.outboxRepo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
			log.Printf("outbox: failed to mark job %s failed: %v", job.ID, err)
		}
		log.Printf("outbox: job %s dropped after %d attempts: %v", job.ID, job.Attempts, cause)
		return
	}

	delay := backoffDelays[len(backoffDelays)-1]
	if retryCount < len(backoffDelays) {
		delay = backoffDelays[retryCount]
	}
	if err := w.outboxRepo.Reschedule(ctx, job.ID, cause.Error(), w.now().Add(delay)); err != nil {
		log.Printf("outbox: failed to reschedule job %s: %v", job.ID, err)
	}
}

func (w *Worker) markSkipped(ctx context.Context, job model.OutboxJob, reason string) {
	if err := w.outboxRepo.MarkSkipped(ctx, job.ID); err != nil {
		log.Printf("outbox: failed to mark job %s skipped: %v", job.ID, err)
	}
	log.Printf("outbox: job %s skipped: %s", job.ID, reason)
}

func (w *Worker) logOutcome(ctx context.Context, job model.OutboxJob, status, message, providerResponse, errorDetail string, retryCount int) {
	entry := model.NotificationLog{
		UserID:           job.UserID,
		EventType:        job.EventType,
		Message:          message,
		Status:           status,
		ProviderResponse: providerResponse,
		ErrorDetail:      errorDetail,
		RetryCount:       retryCount,
	}
	if err := w.logRepo.Create(ctx, &entry); err != nil {
		log.Printf("outbox: failed to write delivery log for job %s: %v", job.ID, err)
	}
}

// withinQuietHours reports whether the wall-clock time of day falls inside
// the [start, end) window. A window with start > end wraps midnight, so
// "22:00" to "06:00" covers late evening and early morning.
func withinQuietHours(start, end string, now time.Time) bool {
	startMin, okStart := parseClock(start)
	endMin, okEnd := parseClock(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if startMin < endMin {
		return cur >= startMin && cur < endMin
	}
	return cur >= startMin || cur < endMin
}

func parseClock(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
