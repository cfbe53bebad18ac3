package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, job *model.OutboxJob) error
	// ClaimDue atomically moves up to limit due PENDING jobs on the queue to
	// PROCESSING and returns them. FOR UPDATE SKIP LOCKED keeps concurrent
	// workers from claiming the same job twice.
	ClaimDue(ctx context.Context, queue string, limit int) ([]model.OutboxJob, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkSkipped(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Reschedule(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error
	// ReleaseStale returns PROCESSING jobs older than cutoff to PENDING,
	// covering workers that died mid-attempt.
	ReleaseStale(ctx context.Context, queue string, cutoff time.Time) (int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, job *model.OutboxJob) error {
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = time.Now()
	}
	return GetDB(ctx, r.db).Create(job).Error
}

func (r *outboxRepository) ClaimDue(ctx context.Context, queue string, limit int) ([]model.OutboxJob, error) {
	var jobs []model.OutboxJob

	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ? AND status = ? AND next_attempt_at <= ?", queue, model.JobStatusPending, time.Now()).
			Order("next_attempt_at asc").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(jobs))
		for i := range jobs {
			ids = append(ids, jobs[i].ID)
			jobs[i].Status = model.JobStatusProcessing
			jobs[i].Attempts++
		}

		return tx.Model(&model.OutboxJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":   model.JobStatusProcessing,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, model.JobStatusSent, "")
}

func (r *outboxRepository) MarkSkipped(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, model.JobStatusSkipped, "")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.setStatus(ctx, id, model.JobStatusFailed, lastError)
}

func (r *outboxRepository) setStatus(ctx context.Context, id uuid.UUID, status, lastError string) error {
	updates := map[string]interface{}{"status": status}
	if lastError != "" {
		updates["last_error"] = lastError
	}
	return GetDB(ctx, r.db).Model(&model.OutboxJob{}).Where("id = ?", id).Updates(updates).Error
}

func (r *outboxRepository) Reschedule(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	return GetDB(ctx, r.db).Model(&model.OutboxJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.JobStatusPending,
			"last_error":      lastError,
			"next_attempt_at": nextAttemptAt,
		}).Error
}

func (r *outboxRepository) ReleaseStale(ctx context.Context, queue string, cutoff time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.OutboxJob{}).
		Where("queue = ? AND status = ? AND updated_at < ?", queue, model.JobStatusProcessing, cutoff).
		Update("status", model.JobStatusPending)
	return res.RowsAffected, res.Error
}
