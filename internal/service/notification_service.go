package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"backend/internal/event"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpdatePreferenceRequest struct {
	Enabled        *bool  `json:"enabled"`
	ReorderAlert   *bool  `json:"reorder_alert"`
	ApprovalNeeded *bool  `json:"approval_needed"`
	RequestUpdate  *bool  `json:"request_update"`
	QuietStart     *string `json:"quiet_start" binding:"omitempty,len=5"`
	QuietEnd       *string `json:"quiet_end" binding:"omitempty,len=5"`
}

// --- Interface ---

// NotificationService routes domain events to WhatsApp outbox jobs and owns
// the preference/log read paths for the API.
type NotificationService interface {
	// HandleEvent is the bus subscription entry point. Suppression is silent:
	// a missing recipient, phone, or preference never raises an error.
	HandleEvent(ctx context.Context, e event.Event)

	// EnqueueDigest queues a low-stock digest message to the operator.
	EnqueueDigest(ctx context.Context, payload LowStockDigestPayload) error

	GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error)
	UpdatePreference(ctx context.Context, userID string, req UpdatePreferenceRequest) (*model.NotificationPreference, error)
	ListLogs(ctx context.Context, status string, page, limit int) ([]model.NotificationLog, int64, error)
	ListLogsByUser(ctx context.Context, userID string, page, limit int) ([]model.NotificationLog, int64, error)
}

type notificationService struct {
	userRepo   repository.UserRepository
	prefRepo   repository.PreferenceRepository
	logRepo    repository.NotificationLogRepository
	outboxRepo repository.OutboxRepository
}

func NewNotificationService(
	userRepo repository.UserRepository,
	prefRepo repository.PreferenceRepository,
	logRepo repository.NotificationLogRepository,
	outboxRepo repository.OutboxRepository,
) NotificationService {
	return &notificationService{
		userRepo:   userRepo,
		prefRepo:   prefRepo,
		logRepo:    logRepo,
		outboxRepo: outboxRepo,
	}
}

// --- Routing ---

func (s *notificationService) HandleEvent(ctx context.Context, e event.Event) {
	recipientID, ok := s.resolveRecipient(ctx, e)
	if !ok {
		return
	}

	if !s.shouldSend(ctx, recipientID, e.Type()) {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("notification routing: failed to marshal %s payload: %v", e.Type(), err)
		return
	}

	job := model.OutboxJob{
		Queue:     model.QueueWhatsApp,
		UserID:    recipientID,
		EventType: e.Type(),
		Payload:   string(payload),
	}
	if err := s.outboxRepo.Enqueue(ctx, &job); err != nil {
		log.Printf("notification routing: failed to enqueue %s for %s: %v", e.Type(), recipientID, err)
	}
}

// resolveRecipient maps an event variant to its single recipient. Request
// events go to the requester; reorder alerts go to any operator.
func (s *notificationService) resolveRecipient(ctx context.Context, e event.Event) (uuid.UUID, bool) {
	switch ev := e.(type) {
	case event.RequestCreated:
		return ev.RequesterID, true
	case event.ApprovalNeeded:
		return ev.RequesterID, true
	case event.RequestUpdate:
		return ev.RequesterID, true
	case event.ReorderPointAlert:
		operator, err := s.userRepo.GetFirstByRole(ctx, model.RoleOperator)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("notification routing: operator lookup failed: %v", err)
			}
			return uuid.Nil, false
		}
		return operator.ID, true
	}
	return uuid.Nil, false
}

// shouldSend gates enqueueing: recipient must exist with a phone number, a
// preference record must already exist, the master switch must be on and the
// event's category enabled. Every failed check suppresses silently.
func (s *notificationService) shouldSend(ctx context.Context, userID uuid.UUID, eventType string) bool {
	user, err := s.userRepo.GetByID(ctx, userID.String())
	if err != nil {
		return false
	}
	if user.Phone == "" {
		return false
	}

	pref, err := s.prefRepo.FindByUserID(ctx, userID)
	if err != nil {
		return false
	}
	if !pref.Enabled {
		return false
	}
	return pref.CategoryEnabled(eventType)
}

// --- Digest ---

func (s *notificationService) EnqueueDigest(ctx context.Context, payload LowStockDigestPayload) error {
	if len(payload.Entries) == 0 {
		return nil
	}

	operator, err := s.userRepo.GetFirstByRole(ctx, model.RoleOperator)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("operator lookup failed: %w", err)
	}

	if !s.shouldSend(ctx, operator.ID, model.EventTypeLowStockDigest) {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal digest payload: %w", err)
	}

	return s.outboxRepo.Enqueue(ctx, &model.OutboxJob{
		Queue:     model.QueueWhatsApp,
		UserID:    operator.ID,
		EventType: model.EventTypeLowStockDigest,
		Payload:   string(raw),
	})
}

// --- Preferences & logs ---

func (s *notificationService) GetPreference(ctx context.Context, userID string) (*model.NotificationPreference, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	return s.prefRepo.GetOrCreate(ctx, id)
}

func (s *notificationService) UpdatePreference(ctx context.Context, userID string, req UpdatePreferenceRequest) (*model.NotificationPreference, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	pref, err := s.prefRepo.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}
	if req.ReorderAlert != nil {
		pref.ReorderAlert = *req.ReorderAlert
	}
	if req.ApprovalNeeded != nil {
		pref.ApprovalNeeded = *req.ApprovalNeeded
	}
	if req.RequestUpdate != nil {
		pref.RequestUpdate = *req.RequestUpdate
	}
	// Quiet hours are cleared with an explicit empty string, never by omission
	if req.QuietStart != nil {
		pref.QuietStart = *req.QuietStart
	}
	if req.QuietEnd != nil {
		pref.QuietEnd = *req.QuietEnd
	}

	if err := s.prefRepo.Update(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to update preference: %w", err)
	}
	return pref, nil
}

func (s *notificationService) ListLogs(ctx context.Context, status string, page, limit int) ([]model.NotificationLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.logRepo.List(ctx, status, page, limit)
}

func (s *notificationService) ListLogsByUser(ctx context.Context, userID string, page, limit int) ([]model.NotificationLog, int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user id: %w", err)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.logRepo.ListByUser(ctx, id, page, limit)
}
