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

type SupplyLineInput struct {
	SupplyID string `json:"supply_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type CreateSupplyRequestDTO struct {
	Department string            `json:"department" binding:"required"`
	Lines      []SupplyLineInput `json:"lines" binding:"required,min=1,dive"`
}

type SupplyLineResponse struct {
	ID                string `json:"id"`
	SupplyID          string `json:"supply_id"`
	SupplyName        string `json:"supply_name"`
	Unit              string `json:"unit"`
	QuantityRequested int    `json:"quantity_requested"`
	QuantityApproved  int    `json:"quantity_approved"`
	QuantityFulfilled int    `json:"quantity_fulfilled"`
}

type SupplyRequestResponse struct {
	ID              string               `json:"id"`
	RequestNumber   string               `json:"request_number"`
	RequesterID     string               `json:"requester_id"`
	RequesterName   string               `json:"requester_name"`
	Department      string               `json:"department"`
	Status          string               `json:"status"`
	Lines           []SupplyLineResponse `json:"lines"`
	ApprovedByID    *string              `json:"approved_by_id"`
	ApprovedAt      *string              `json:"approved_at"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	CreatedAt       string               `json:"created_at"`
}

// --- Interface ---

// SupplyRequestService is the reduced, single-gate variant of the approval
// machine: PENDING → APPROVED → COMPLETED, REJECTED reachable from PENDING.
type SupplyRequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateSupplyRequestDTO) (*SupplyRequestResponse, error)
	GetRequest(ctx context.Context, id string) (*SupplyRequestResponse, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]SupplyRequestResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string) (*SupplyRequestResponse, error)
	Reject(ctx context.Context, actor Actor, id string, reason string) (*SupplyRequestResponse, error)
	Complete(ctx context.Context, actor Actor, id string, req CompleteRequestDTO) (*SupplyRequestResponse, error)
}

type supplyRequestService struct {
	requestRepo  repository.SupplyRequestRepository
	supplyRepo   repository.SupplyRepository
	movementRepo repository.MovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	bus          *event.Bus
}

func NewSupplyRequestService(
	requestRepo repository.SupplyRequestRepository,
	supplyRepo repository.SupplyRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	bus *event.Bus,
) SupplyRequestService {
	return &supplyRequestService{
		requestRepo:  requestRepo,
		supplyRepo:   supplyRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		bus:          bus,
	}
}

// --- Implementation ---

func (s *supplyRequestService) CreateRequest(ctx context.Context, actor Actor, req CreateSupplyRequestDTO) (*SupplyRequestResponse, error) {
	lines := make([]model.SupplyRequestLine, 0, len(req.Lines))
	eventLines := make([]event.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		supplyID, err := uuid.Parse(l.SupplyID)
		if err != nil {
			return nil, fmt.Errorf("invalid supply id %q: %w", l.SupplyID, err)
		}
		supply, err := s.supplyRepo.FindByID(ctx, supplyID)
		if err != nil {
			return nil, fmt.Errorf("supply not found: %s: %w", l.SupplyID, err)
		}
		lines = append(lines, model.SupplyRequestLine{
			SupplyID:          supplyID,
			QuantityRequested: l.Quantity,
		})
		eventLines = append(eventLines, event.Line{Name: supply.Name, Quantity: l.Quantity, Unit: supply.Unit})
	}

	request := model.SupplyRequest{
		RequesterID: actor.ID,
		Department:  req.Department,
		Status:      model.SupplyStatusPending,
		Lines:       lines,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.requestRepo.NextRequestNumber(txCtx)
		if numErr != nil {
			return fmt.Errorf("failed to generate request number: %w", numErr)
		}
		request.RequestNumber = number

		if createErr := s.requestRepo.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create supply request: %w", createErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionCreateSupplyRequest, &request, map[string]interface{}{
			"department": req.Department,
			"line_count": len(req.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload supply request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestCreated{
		RequestKind:   event.KindSupplyRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Department:    full.Department,
		Lines:         eventLines,
	})

	return toSupplyRequestResponse(full), nil
}

func (s *supplyRequestService) GetRequest(ctx context.Context, id string) (*SupplyRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	request, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("supply request not found: %w", err)
	}
	return toSupplyRequestResponse(request), nil
}

func (s *supplyRequestService) ListRequests(ctx context.Context, filter RequestFilter) ([]SupplyRequestResponse, int64, error) {
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
		return nil, 0, fmt.Errorf("failed to fetch supply requests: %w", err)
	}

	result := make([]SupplyRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toSupplyRequestResponse(&requests[i]))
	}
	return result, total, nil
}

func (s *supplyRequestService) Approve(ctx context.Context, actor Actor, id string) (*SupplyRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return fmt.Errorf("supply request not found: %w", findErr)
		}

		if request.Status != model.SupplyStatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, request.Status)
		}
		if !actor.CanApproveLevel(1) {
			return fmt.Errorf("%w: supply approvals require role %s", ErrPermissionDenied, model.ApproverRoleForLevel(1))
		}

		now := time.Now()
		request.Status = model.SupplyStatusApproved
		request.ApprovedByID = &actor.ID
		request.ApprovedAt = &now
		for i := range request.Lines {
			if request.Lines[i].QuantityApproved == 0 {
				request.Lines[i].QuantityApproved = request.Lines[i].QuantityRequested
			}
			if lineErr := s.requestRepo.UpdateLine(txCtx, &request.Lines[i]); lineErr != nil {
				return fmt.Errorf("failed to update request line: %w", lineErr)
			}
		}

		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update supply request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionApproveSupplyRequest, request, nil)
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload supply request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestUpdate{
		RequestKind:   event.KindSupplyRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Status:        full.Status,
	})

	return toSupplyRequestResponse(full), nil
}

func (s *supplyRequestService) Reject(ctx context.Context, actor Actor, id string, reason string) (*SupplyRequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return fmt.Errorf("supply request not found: %w", findErr)
		}

		if request.Status != model.SupplyStatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, request.Status)
		}
		if !actor.CanApproveLevel(1) {
			return fmt.Errorf("%w: supply approvals require role %s", ErrPermissionDenied, model.ApproverRoleForLevel(1))
		}

		now := time.Now()
		request.Status = model.SupplyStatusRejected
		request.ApprovedByID = &actor.ID
		request.ApprovedAt = &now
		request.RejectionReason = reason

		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update supply request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionRejectSupplyRequest, request, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload supply request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestUpdate{
		RequestKind:   event.KindSupplyRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Status:        full.Status,
		Reason:        reason,
	})

	return toSupplyRequestResponse(full), nil
}

func (s *supplyRequestService) Complete(ctx context.Context, actor Actor, id string, req CompleteRequestDTO) (*SupplyRequestResponse, error) {
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
			return fmt.Errorf("supply request not found: %w", findErr)
		}

		if request.Status != model.SupplyStatusApproved {
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

			supply, supplyErr := s.supplyRepo.FindByIDForUpdate(txCtx, line.SupplyID)
			if supplyErr != nil {
				return fmt.Errorf("supply not found: %s: %w", line.SupplyID, supplyErr)
			}
			oldQty := supply.Quantity
			if oldQty < qty {
				return fmt.Errorf("insufficient stock for supply %s (current: %d, requested: %d)",
					supply.Name, oldQty, qty)
			}

			newQty := oldQty - qty
			if updateErr := s.supplyRepo.UpdateQuantity(txCtx, supply.ID, newQty); updateErr != nil {
				return fmt.Errorf("failed to update stock for supply %s: %w", supply.Name, updateErr)
			}

			movement := model.StockMovement{
				EntityKind:      model.StockKindSupply,
				EntityID:        supply.ID,
				RequestID:       &request.ID,
				MovementType:    model.MovementOut,
				QuantityChanged: -qty,
				QuantityAfter:   newQty,
				Note:            "fulfillment of " + request.RequestNumber,
			}
			if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
				return fmt.Errorf("failed to record stock movement: %w", moveErr)
			}

			if alert := reorderCheck(model.StockKindSupply, supply.ID, supply.Name, supply.Unit, oldQty, newQty, supply.ReorderThreshold); alert != nil {
				alerts = append(alerts, *alert)
			}
		}

		now := time.Now()
		request.Status = model.SupplyStatusCompleted
		request.CompletedAt = &now
		if saveErr := s.requestRepo.Update(txCtx, request); saveErr != nil {
			return fmt.Errorf("failed to update supply request: %w", saveErr)
		}

		return s.audit(txCtx, &actor.ID, model.ActionCompleteSupplyRequest, request, map[string]interface{}{
			"line_count": len(request.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload supply request: %w", err)
	}

	s.bus.Publish(ctx, event.RequestUpdate{
		RequestKind:   event.KindSupplyRequest,
		RequestID:     full.ID,
		RequestNumber: full.RequestNumber,
		RequesterID:   full.RequesterID,
		RequesterName: requesterName(full.Requester),
		Status:        full.Status,
	})
	for _, alert := range alerts {
		s.bus.Publish(ctx, alert)
	}

	return toSupplyRequestResponse(full), nil
}

func (s *supplyRequestService) audit(ctx context.Context, userID *uuid.UUID, action string, request *model.SupplyRequest, details map[string]interface{}) error {
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

func toSupplyRequestResponse(r *model.SupplyRequest) *SupplyRequestResponse {
	resp := &SupplyRequestResponse{
		ID:              r.ID.String(),
		RequestNumber:   r.RequestNumber,
		RequesterID:     r.RequesterID.String(),
		RequesterName:   requesterName(r.Requester),
		Department:      r.Department,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	if r.ApprovedByID != nil {
		s := r.ApprovedByID.String()
		resp.ApprovedByID = &s
	}
	if r.ApprovedAt != nil {
		s := r.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}

	for _, line := range r.Lines {
		resp.Lines = append(resp.Lines, SupplyLineResponse{
			ID:                line.ID.String(),
			SupplyID:          line.SupplyID.String(),
			SupplyName:        line.Supply.Name,
			Unit:              line.Supply.Unit,
			QuantityRequested: line.QuantityRequested,
			QuantityApproved:  line.QuantityApproved,
			QuantityFulfilled: line.QuantityFulfilled,
		})
	}

	return resp
}
