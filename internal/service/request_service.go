package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/event"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type RequestLineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type CreateItemRequestDTO struct {
	Department string             `json:"department" binding:"required"`
	Lines      []RequestLineInput `json:"lines" binding:"required,min=1,dive"`
}

type RejectRequestDTO struct {
	Reason string `json:"reason" binding:"required"`
}

type FulfillLineInput struct {
	LineID   string `json:"line_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gte=0"`
}

type CompleteRequestDTO struct {
	Lines []FulfillLineInput `json:"lines"`
}

type RequestFilter struct {
	Status      string
	RequesterID string
	Page        int
	Limit       int
}

type RequestLineResponse struct {
	ID                string `json:"id"`
	ItemID            string `json:"item_id"`
	ItemName          string `json:"item_name"`
	Unit              string `json:"unit"`
	QuantityRequested int    `json:"quantity_requested"`
	QuantityApproved  int    `json:"quantity_approved"`
	QuantityFulfilled int    `json:"quantity_fulfilled"`
}

type ApprovalStepResponse struct {
	Level      int     `json:"level"`
	ApproverID *string `json:"approver_id"`
	ApprovedAt *string `json:"approved_at"`
}

type ItemRequestResponse struct {
	ID              string                 `json:"id"`
	RequestNumber   string                 `json:"request_number"`
	RequesterID     string                 `json:"requester_id"`
	RequesterName   string                 `json:"requester_name"`
	Department      string                 `json:"department"`
	Status          string                 `json:"status"`
	Lines           []RequestLineResponse  `json:"lines"`
	Approvals       []ApprovalStepResponse `json:"approvals"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

// --- Interface ---

// ItemRequestService governs the multi-level approval state machine for
// asset requests. Transitions only move forward through the configured
// levels; REJECTED absorbs from any pending state; APPROVED, REJECTED and
// COMPLETED are terminal for approval actions.
type ItemRequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateItemRequestDTO) (*ItemRequestResponse, error)
	GetRequest(ctx context.Context, id string) (*ItemRequestResponse, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]ItemRequestResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string) (*ItemRequestResponse, error)
	Reject(ctx context.Context, actor Actor, id string, reason string) (*ItemRequestResponse, error)
	Complete(ctx context.Context, actor Actor, id string, req CompleteRequestDTO) (*ItemRequestResponse, error)
}

type itemRequestService struct {
	requestRepo  repository.ItemRequestRepository
	itemRepo     repository.ItemRepository
	movementRepo repository.MovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	bus          *event.Bus
	levels       int // configured approval-level count, 1..3
}

func NewItemRequestService(
	requestRepo repository.ItemRequestRepository,
	itemRepo repository.ItemRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	bus *event.Bus,
	levels int,
) ItemRequestService {
	if levels < 1 {
		levels = 1
	}
	if levels > model.MaxApprovalLevels {
		levels = model.MaxApprovalLevels
	}
	return &itemRequestService{
		requestRepo:  requestRepo,
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		bus:          bus,
		levels:       levels,
	}
}

// --- Implementation ---

func (s *itemRequestService) CreateRequest(ctx context.Context, actor Actor, req CreateItemRequestDTO) (*ItemRequestResponse, error) {
	lines := make([]model.ItemRequestLine, 0, len(req.Lines))
	eventLines := make([]event.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		itemID, err := uuid.Parse(l.ItemID)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q: %w", l.ItemID, err)
		}
		item, err := s.itemRepo.FindByID(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("item not found: %s: %w", l.ItemID, err)
		}
		lines = append(lines, model.ItemRequestLine{
			ItemID:            itemID,
			QuantityRequested: l.Quantity,
		})
		eventLines = append(eventLines, event.Line{Name: item.Name, Quantity: l.Quantity, Unit: item.Unit})
	}

	request := model.ItemRequest{
		RequesterID: actor.ID,
		Department:  req.Department,
		Status:      model.PendingStatusForLevel(1),
		Lines:       lines,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.requestRepo.NextRequestNumber(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate request number: %w", numErr)
		}
		request.RequestNumber = number

		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create item request: %w", createErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionCreateItemRequest, &request, map[string]interface{}{
			"department": req.Department,
			"line_count": len(req.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload item request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestCreated{
		RequestKind:   event.KindItemRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Department:    full.Department,
		Lines:         eventLines,
	})

	return toItemRequestResponse(full), nil
}

func (s *itemRequestService) GetRequest(ctx context.Context, id string) (*ItemRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	request, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("item request not found: %w", err)
	}
	return toItemRequestResponse(request), nil
}

func (s *itemRequestService) ListRequests(ctx context.Context, filter RequestFilter) ([]ItemRequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var requesterID *uuid.UUID
	if filter.RequesterID != "" {
		parsed, err := uuid.Parse(filter.RequesterID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid requester id: %w", err)
		}
		requesterID = &parsed
	}

	requests, total, err := s.requestRepo.List(ctx, filter.Status, requesterID, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch item requests: %w", err)
	}

	result := make([]ItemRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toItemRequestResponse(&requests[i]))
	}
	return result, total, nil
}

// Approve advances the request past its current pending level. The row is
// locked for the duration of the transaction and the status re-checked under
// the lock, so of two concurrent approvals at the same level exactly one
// succeeds and the other observes a non-pending state.
func (s *itemRequestService) Approve(ctx context.Context, actor Actor, id string) (*ItemRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	var nextLevel int
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return fmt.Errorf("item request not found: %w", findErr)
		}

		level := request.PendingLevel()
		if level == 0 {
			return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, request.Status)
		}
		if !actor.CanApproveLevel(level) {
			// An approver whose own gate already passed lost a race with a
			// concurrent approval; the state moved past them, their authority
			// did not change.
			if held := actor.ApprovalLevel(); held > 0 && held < level {
				return fmt.Errorf("%w: request is already %s", ErrInvalidStateTransition, request.Status)
			}
			return fmt.Errorf("%w: level %d requires role %s", ErrPermissionDenied, level, model.ApproverRoleForLevel(level))
		}

		now := time.Now()
		request.RecordApproval(level, actor.ID, now)
		if level < s.levels {
			request.Status = model.PendingStatusForLevel(level + 1)
			nextLevel = level + 1
		} else {
			request.Status = model.RequestStatusApproved
			// Final approval locks in approved quantities
			for i := range request.Lines {
				if request.Lines[i].QuantityApproved == 0 {
					request.Lines[i].QuantityApproved = request.Lines[i].QuantityRequested
				}
				if lineErr := s.requestRepo.UpdateLine(txCtx, &request.Lines[i]); lineErr != nil {
					return fmt.Errorf("failed to update request line: %w", lineErr)
				}
			}
		}
		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update item request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionApproveItemRequest, request, map[string]interface{}{
			"level":      level,
			"new_status": request.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload item request: %w", err)
	}

	if nextLevel > 0 {
		s.bus.Publish(ctx, event.ApprovalNeeded{
			RequestKind:   event.KindItemRequest,
			RequestID:     full.ID,
			RequestNumber: full.RequestNumber,
			RequesterID:   full.RequesterID,
			RequesterName: requesterName(full.Requester),
			Department:    full.Department,
			NextLevel:     nextLevel,
		})
	} else {
		s.bus.Publish(ctx, event.RequestUpdate{
			RequestKind:   event.KindItemRequest,
			RequestID:     full.ID,
			RequestNumber: full.RequestNumber,
			RequesterID:   full.RequesterID,
			RequesterName: requesterName(full.Requester),
			Status:        full.Status,
		})
	}

	return toItemRequestResponse(full), nil
}

func (s *itemRequestService) Reject(ctx context.Context, actor Actor, id string, reason string) (*ItemRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return fmt.Errorf("item request not found: %w", findErr)
		}

		level := request.PendingLevel()
		if level == 0 {
			return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, request.Status)
		}
		if !actor.CanApproveLevel(level) {
			if held := actor.ApprovalLevel(); held > 0 && held < level {
				return fmt.Errorf("%w: request is already %s", ErrInvalidStateTransition, request.Status)
			}
			return fmt.Errorf("%w: level %d requires role %s", ErrPermissionDenied, level, model.ApproverRoleForLevel(level))
		}

		now := time.Now()
		request.Status = model.RequestStatusRejected
		request.RejectedByID = &actor.ID
		request.RejectedAt = &now
		request.RejectionReason = reason

		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update item request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionRejectItemRequest, request, map[string]interface{}{
			"level":  level,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload item request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestUpdate{
		RequestKind:   event.KindItemRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Status:        full.Status,
		Reason:        reason,
	})

	return toItemRequestResponse(full), nil
}

// Complete fulfills an APPROVED request: records fulfilled quantities per
// line (partial fulfillment allowed), decrements item stock and writes one
// movement row per line.
func (s *itemRequestService) Complete(ctx context.Context, actor Actor, id string, req CompleteRequestDTO) (*ItemRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	if !actor.CanFulfill() {
		return nil, fmt.Errorf("%w: fulfillment requires the operator role", ErrPermissionDenied)
	}

	fulfillments := make(map[uuid.UUID]int, len(req.Lines))
	for _, f := range req.Lines {
		lineID, parseErr := uuid.Parse(f.LineID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid line id %q: %w", f.LineID, parseErr)
		}
		fulfillments[lineID] = f.Quantity
	}

	var alerts []event.ReorderPointAlert
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return fmt.Errorf("item request not found: %w", findErr)
		}

		if request.Status != model.RequestStatusApproved {
			return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, request.Status)
		}

		for i := range request.Lines {
			line := &request.Lines[i]
			qty, ok := fulfillments[line.ID]
			if !ok {
				qty = line.QuantityApproved
			}
			line.QuantityFulfilled = qty
			if lineErr := s.requestRepo.UpdateLine(txCtx, line); lineErr != nil {
				return fmt.Errorf("failed to update request line: %w", lineErr)
			}
			if qty == 0 {
				continue
			}

			item, itemErr := s.itemRepo.FindByIDForUpdate(txCtx, line.ItemID)
			if itemErr != nil {
				return fmt.Errorf("item not found: %s: %w", line.ItemID, itemErr)
			}
			oldQty := item.Quantity
			if oldQty < qty {
				return fmt.Errorf("insufficient stock for item %s (current: %d, requested: %d)",
					item.Name, oldQty, qty)
			}

			newQty := oldQty - qty
			if updateErr := s.itemRepo.UpdateQuantity(txCtx, item.ID, newQty); updateErr != nil {
				return fmt.Errorf("failed to update stock for item %s: %w", item.Name, updateErr)
			}

			movement := model.StockMovement{
				EntityKind:      model.StockKindItem,
				EntityID:        item.ID,
				RequestID:       &request.ID,
				MovementType:    model.MovementOut,
				QuantityChanged: -qty,
				QuantityAfter:   newQty,
				Note:            "fulfillment of " + request.RequestNumber,
			}
			if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
				return fmt.Errorf("failed to record stock movement: %w", moveErr)
			}

			if alert := reorderCheck(model.StockKindItem, item.ID, item.Name, item.Unit, oldQty, newQty, item.ReorderThreshold); alert != nil {
				alerts = append(alerts, *alert)
			}
		}

		now := time.Now()
		request.Status = model.RequestStatusCompleted
		request.CompletedAt = &now
		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update item request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionCompleteItemRequest, request, map[string]interface{}{
			"line_count": len(request.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload item request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestUpdate{
		RequestKind:   event.KindItemRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Status:        full.Status,
	})
	for _, alert := range alerts {
		s.bus.Publish(ctx, alert)
	}

	return toItemRequestResponse(full), nil
}

func (s *itemRequestService) audit(ctx context.Context, userID *uuid.UUID, action string, request *model.ItemRequest, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   request.ID.String(),
		EntityName: request.RequestNumber,
		Details:    string(payload),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// --- Helpers ---

// reorderCheck implements the stock-monitor predicate: an alert fires when
// the quantity value actually changed and the new value sits at or below the
// threshold. Every qualifying mutation re-emits while the level stays low.
func reorderCheck(kind string, id uuid.UUID, name, unit string, oldQty, newQty, threshold int) *event.ReorderPointAlert {
	if newQty == oldQty {
		return nil
	}
	if newQty > threshold {
		return nil
	}
	return &event.ReorderPointAlert{
		EntityKind: kind,
		EntityID:   id,
		Name:       name,
		Quantity:   newQty,
		Threshold:  threshold,
		Unit:       unit,
	}
}

func requesterName(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func toItemRequestResponse(r *model.ItemRequest) *ItemRequestResponse {
	resp := &ItemRequestResponse{
		ID:              r.ID.String(),
		RequestNumber:   r.RequestNumber,
		RequesterID:     r.RequesterID.String(),
		RequesterName:   requesterName(r.Requester),
		Department:      r.Department,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	for _, line := range r.Lines {
		resp.Lines = append(resp.Lines, RequestLineResponse{
			ID:                line.ID.String(),
			ItemID:            line.ItemID.String(),
			ItemName:          line.Item.Name,
			Unit:              line.Item.Unit,
			QuantityRequested: line.QuantityRequested,
			QuantityApproved:  line.QuantityApproved,
			QuantityFulfilled: line.QuantityFulfilled,
		})
	}

	steps := []struct {
		level int
		id    *uuid.UUID
		at    *time.Time
	}{
		{1, r.Level1ApproverID, r.Level1ApprovedAt},
		{2, r.Level2ApproverID, r.Level2ApprovedAt},
		{3, r.Level3ApproverID, r.Level3ApprovedAt},
	}
	for _, step := range steps {
		if step.id == nil {
			continue
		}
		idStr := step.id.String()
		var atStr *string
		if step.at != nil {
			s := step.at.Format(time.RFC3339)
			atStr = &s
		}
		resp.Approvals = append(resp.Approvals, ApprovalStepResponse{
			Level:      step.level,
			ApproverID: &idStr,
			ApprovedAt: atStr,
		})
	}

	return resp
}
