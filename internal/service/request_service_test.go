package service

import (
	"context"
	"testing"

	"backend/internal/event"
	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemRequestFixture struct {
	service     ItemRequestService
	requestRepo *fakeItemRequestRepo
	itemRepo    *fakeItemRepo
	movements   *fakeMovementRepo
	audit       *fakeAuditRepo
	events      func() []event.Event
	item        *model.Item
	requester   Actor
}

func newItemRequestFixture(t *testing.T, levels int) *itemRequestFixture {
	t.Helper()

	requestRepo := newFakeItemRequestRepo()
	itemRepo := newFakeItemRepo()
	movements := &fakeMovementRepo{}
	audit := &fakeAuditRepo{}
	bus := event.NewBus()
	events := captureEvents(bus)

	item := &model.Item{
		ID:               uuid.New(),
		Code:             "CHAIR-01",
		Name:             "Office Chair",
		Unit:             "pcs",
		Quantity:         10,
		ReorderThreshold: 5,
	}
	require.NoError(t, itemRepo.Create(context.Background(), item))

	return &itemRequestFixture{
		service:     NewItemRequestService(requestRepo, itemRepo, movements, audit, fakeTxManager{}, bus, levels),
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
		movements:   movements,
		audit:       audit,
		events:      events,
		item:        item,
		requester:   Actor{ID: uuid.New(), Role: model.RoleStaff},
	}
}

func (f *itemRequestFixture) createRequest(t *testing.T, quantity int) *ItemRequestResponse {
	t.Helper()
	resp, err := f.service.CreateRequest(context.Background(), f.requester, CreateItemRequestDTO{
		Department: "Civil Division",
		Lines:      []RequestLineInput{{ItemID: f.item.ID.String(), Quantity: quantity}},
	})
	require.NoError(t, err)
	return resp
}

func (f *itemRequestFixture) eventsOfType(eventType string) []event.Event {
	var out []event.Event
	for _, e := range f.events() {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func approverAt(level int) Actor {
	return Actor{ID: uuid.New(), Role: model.ApproverRoleForLevel(level)}
}

func TestItemRequestFullLifecycle(t *testing.T) {
	f := newItemRequestFixture(t, 3)
	ctx := context.Background()

	resp := f.createRequest(t, 4)
	assert.Equal(t, model.RequestStatusPendingLevel1, resp.Status)
	assert.Contains(t, resp.RequestNumber, "REQ-")
	require.Len(t, f.eventsOfType(model.EventTypeRequestCreated), 1)

	resp, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPendingLevel2, resp.Status)

	resp, err = f.service.Approve(ctx, approverAt(2), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPendingLevel3, resp.Status)

	needed := f.eventsOfType(model.EventTypeApprovalNeeded)
	require.Len(t, needed, 2)
	assert.Equal(t, 2, needed[0].(event.ApprovalNeeded).NextLevel)
	assert.Equal(t, 3, needed[1].(event.ApprovalNeeded).NextLevel)

	resp, err = f.service.Approve(ctx, approverAt(3), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, resp.Status)
	assert.Len(t, resp.Approvals, 3)

	// Final approval locks in the approved quantity
	stored := f.requestRepo.requests[uuid.MustParse(resp.ID)]
	assert.Equal(t, 4, stored.Lines[0].QuantityApproved)

	updates := f.eventsOfType(model.EventTypeRequestUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, model.RequestStatusApproved, updates[0].(event.RequestUpdate).Status)

	// Fulfillment deducts stock and records an OUT movement
	operator := Actor{ID: uuid.New(), Role: model.RoleOperator}
	resp, err = f.service.Complete(ctx, operator, resp.ID, CompleteRequestDTO{})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, resp.Status)
	assert.Equal(t, 6, f.item.Quantity)
	assert.Equal(t, 4, stored.Lines[0].QuantityFulfilled)

	require.Len(t, f.movements.movements, 1)
	movement := f.movements.movements[0]
	assert.Equal(t, model.MovementOut, movement.MovementType)
	assert.Equal(t, -4, movement.QuantityChanged)
	assert.Equal(t, 6, movement.QuantityAfter)
}

func TestItemRequestApproveWrongRole(t *testing.T) {
	f := newItemRequestFixture(t, 3)
	ctx := context.Background()

	resp := f.createRequest(t, 2)

	// A level-2 approver cannot act while the request waits on level 1
	_, err := f.service.Approve(ctx, approverAt(2), resp.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.service.Approve(ctx, f.requester, resp.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestItemRequestSameLevelApprovalRace(t *testing.T) {
	f := newItemRequestFixture(t, 3)
	ctx := context.Background()

	resp := f.createRequest(t, 2)

	// Two distinct level-1 approvers act on the same request. The first
	// advances it; the second finds the state moved past their gate, which
	// is a stale transition rather than missing authority.
	first := approverAt(1)
	second := approverAt(1)

	resp, err := f.service.Approve(ctx, first, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPendingLevel2, resp.Status)

	_, err = f.service.Approve(ctx, second, resp.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	// The loser must not have mutated anything
	stored := f.requestRepo.requests[uuid.MustParse(resp.ID)]
	assert.Equal(t, model.RequestStatusPendingLevel2, stored.Status)
	require.NotNil(t, stored.Level1ApproverID)
	assert.Equal(t, first.ID, *stored.Level1ApproverID)
	assert.Nil(t, stored.Level2ApproverID)
}

func TestItemRequestApproveTerminalState(t *testing.T) {
	f := newItemRequestFixture(t, 1)
	ctx := context.Background()

	resp := f.createRequest(t, 2)

	_, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)

	// Single configured level means the request is now APPROVED
	_, err = f.service.Approve(ctx, approverAt(1), resp.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestItemRequestAdminBypassesGates(t *testing.T) {
	f := newItemRequestFixture(t, 3)
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	resp := f.createRequest(t, 1)
	for _, want := range []string{
		model.RequestStatusPendingLevel2,
		model.RequestStatusPendingLevel3,
		model.RequestStatusApproved,
	} {
		var err error
		resp, err = f.service.Approve(ctx, admin, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Status)
	}
}

func TestItemRequestRejectRequiresReason(t *testing.T) {
	f := newItemRequestFixture(t, 3)

	resp := f.createRequest(t, 2)
	_, err := f.service.Reject(context.Background(), approverAt(1), resp.ID, "")
	assert.ErrorContains(t, err, "reason is required")
}

func TestItemRequestRejectKeepsEarlierApprovals(t *testing.T) {
	f := newItemRequestFixture(t, 3)
	ctx := context.Background()

	resp := f.createRequest(t, 2)

	levelOne := approverAt(1)
	_, err := f.service.Approve(ctx, levelOne, resp.ID)
	require.NoError(t, err)

	resp, err = f.service.Reject(ctx, approverAt(2), resp.ID, "budget exhausted for this quarter")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, resp.Status)
	assert.Equal(t, "budget exhausted for this quarter", resp.RejectionReason)

	stored := f.requestRepo.requests[uuid.MustParse(resp.ID)]
	require.NotNil(t, stored.Level1ApproverID)
	assert.Equal(t, levelOne.ID, *stored.Level1ApproverID)

	updates := f.eventsOfType(model.EventTypeRequestUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "budget exhausted for this quarter", updates[0].(event.RequestUpdate).Reason)
}

func TestItemRequestCompleteRequiresOperator(t *testing.T) {
	f := newItemRequestFixture(t, 1)
	ctx := context.Background()

	resp := f.createRequest(t, 2)
	_, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)

	_, err = f.service.Complete(ctx, f.requester, resp.ID, CompleteRequestDTO{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestItemRequestCompleteInsufficientStock(t *testing.T) {
	f := newItemRequestFixture(t, 1)
	ctx := context.Background()
	f.item.Quantity = 3

	resp := f.createRequest(t, 5)
	_, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)

	operator := Actor{ID: uuid.New(), Role: model.RoleOperator}
	_, err = f.service.Complete(ctx, operator, resp.ID, CompleteRequestDTO{})
	assert.ErrorContains(t, err, "insufficient stock")
	assert.Equal(t, 3, f.item.Quantity)
}

func TestItemRequestCompleteEmitsReorderAlert(t *testing.T) {
	f := newItemRequestFixture(t, 1)
	ctx := context.Background()

	resp := f.createRequest(t, 6)
	_, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)

	operator := Actor{ID: uuid.New(), Role: model.RoleOperator}
	_, err = f.service.Complete(ctx, operator, resp.ID, CompleteRequestDTO{})
	require.NoError(t, err)

	alerts := f.eventsOfType(model.EventTypeReorderAlert)
	require.Len(t, alerts, 1)
	alert := alerts[0].(event.ReorderPointAlert)
	assert.Equal(t, 4, alert.Quantity)
	assert.Equal(t, 5, alert.Threshold)
	assert.Equal(t, model.StockKindItem, alert.EntityKind)
}

func TestItemRequestPartialFulfillment(t *testing.T) {
	f := newItemRequestFixture(t, 1)
	ctx := context.Background()

	resp := f.createRequest(t, 4)
	resp, err := f.service.Approve(ctx, approverAt(1), resp.ID)
	require.NoError(t, err)

	stored := f.requestRepo.requests[uuid.MustParse(resp.ID)]
	lineID := stored.Lines[0].ID.String()

	operator := Actor{ID: uuid.New(), Role: model.RoleOperator}
	resp, err = f.service.Complete(ctx, operator, resp.ID, CompleteRequestDTO{
		Lines: []FulfillLineInput{{LineID: lineID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, resp.Status)
	assert.Equal(t, 2, stored.Lines[0].QuantityFulfilled)
	assert.Equal(t, 8, f.item.Quantity)
}
