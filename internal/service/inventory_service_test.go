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

func TestReorderCheck(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		oldQty    int
		newQty    int
		threshold int
		wantAlert bool
	}{
		{"unchanged quantity never fires", 5, 5, 10, false},
		{"drop below threshold fires", 12, 4, 5, true},
		{"drop exactly to threshold fires", 12, 5, 5, true},
		{"drop that stays above threshold is silent", 12, 8, 5, false},
		{"change while already below re-fires", 4, 3, 5, true},
		{"increase that stays below still fires", 2, 3, 5, true},
		{"increase above threshold is silent", 4, 9, 5, false},
		{"unchanged while below threshold is silent", 3, 3, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := reorderCheck(model.StockKindItem, id, "Printer Paper", "box", tt.oldQty, tt.newQty, tt.threshold)
			if !tt.wantAlert {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.newQty, alert.Quantity)
			assert.Equal(t, tt.threshold, alert.Threshold)
			assert.Equal(t, id, alert.EntityID)
		})
	}
}

type inventoryFixture struct {
	service   InventoryService
	itemRepo  *fakeItemRepo
	movements *fakeMovementRepo
	events    func() []event.Event
	item      *model.Item
	actor     Actor
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()

	itemRepo := newFakeItemRepo()
	bus := event.NewBus()
	events := captureEvents(bus)
	movements := &fakeMovementRepo{}

	item := &model.Item{
		ID:               uuid.New(),
		Code:             "PAPER-A4",
		Name:             "A4 Paper",
		Unit:             "ream",
		Quantity:         20,
		ReorderThreshold: 10,
	}
	require.NoError(t, itemRepo.Create(context.Background(), item))

	return &inventoryFixture{
		service:   NewInventoryService(itemRepo, newFakeSupplyRepo(), movements, &fakeAuditRepo{}, fakeTxManager{}, bus),
		itemRepo:  itemRepo,
		movements: movements,
		events:    events,
		item:      item,
		actor:     Actor{ID: uuid.New(), Role: model.RoleOperator},
	}
}

func TestAdjustItemStockEmitsAlertOnThresholdCross(t *testing.T) {
	f := newInventoryFixture(t)

	resp, err := f.service.AdjustItemStock(context.Background(), f.actor, f.item.ID.String(), AdjustStockRequest{
		Change: -12,
		Note:   "issued to archive room",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.Quantity)
	assert.True(t, resp.BelowThreshold)

	require.Len(t, f.events(), 1)
	alert, ok := f.events()[0].(event.ReorderPointAlert)
	require.True(t, ok)
	assert.Equal(t, 8, alert.Quantity)
	assert.Equal(t, 10, alert.Threshold)
	assert.Equal(t, "A4 Paper", alert.Name)

	require.Len(t, f.movements.movements, 1)
	movement := f.movements.movements[0]
	assert.Equal(t, model.MovementOut, movement.MovementType)
	assert.Equal(t, -12, movement.QuantityChanged)
	assert.Equal(t, 8, movement.QuantityAfter)
}

func TestAdjustItemStockSilentAboveThreshold(t *testing.T) {
	f := newInventoryFixture(t)

	resp, err := f.service.AdjustItemStock(context.Background(), f.actor, f.item.ID.String(), AdjustStockRequest{Change: -5})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.Quantity)
	assert.False(t, resp.BelowThreshold)
	assert.Empty(t, f.events())
}

func TestAdjustItemStockReEmitsWhileBelow(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	_, err := f.service.AdjustItemStock(ctx, f.actor, f.item.ID.String(), AdjustStockRequest{Change: -12})
	require.NoError(t, err)

	// Stock stays below the threshold, so a second mutation alerts again
	_, err = f.service.AdjustItemStock(ctx, f.actor, f.item.ID.String(), AdjustStockRequest{Change: -2})
	require.NoError(t, err)

	assert.Len(t, f.events(), 2)
}

func TestAdjustItemStockRejectsNegativeResult(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := f.service.AdjustItemStock(context.Background(), f.actor, f.item.ID.String(), AdjustStockRequest{Change: -25})
	assert.ErrorContains(t, err, "stock cannot go negative")
	assert.Equal(t, 20, f.item.Quantity)
	assert.Empty(t, f.movements.movements)
}

func TestCreateItemRecordsInitialMovement(t *testing.T) {
	f := newInventoryFixture(t)

	resp, err := f.service.CreateItem(context.Background(), f.actor, CreateStockEntityRequest{
		Code:             "DESK-02",
		Name:             "Standing Desk",
		Unit:             "pcs",
		Quantity:         6,
		ReorderThreshold: 2,
		UnitValue:        "4500000",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Quantity)

	require.Len(t, f.movements.movements, 1)
	assert.Equal(t, model.MovementIn, f.movements.movements[0].MovementType)
	assert.Equal(t, 6, f.movements.movements[0].QuantityChanged)
}

func TestUpdateItemDoesNotTouchQuantity(t *testing.T) {
	f := newInventoryFixture(t)

	resp, err := f.service.UpdateItem(context.Background(), f.actor, f.item.ID.String(), UpdateStockEntityRequest{
		Code:             "PAPER-A4",
		Name:             "A4 Paper 80gsm",
		Unit:             "ream",
		ReorderThreshold: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "A4 Paper 80gsm", resp.Name)
	assert.Equal(t, 20, resp.Quantity)
	// Metadata edits never touch stock, so no alert can fire
	assert.Empty(t, f.events())
}
