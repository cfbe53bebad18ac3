package service

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/event"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateStockEntityRequest struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Unit             string `json:"unit" binding:"required"`
	Quantity         int    `json:"quantity" binding:"gte=0"`
	ReorderThreshold int    `json:"reorder_threshold" binding:"gte=0"`
	UnitValue        string `json:"unit_value"`
}

type UpdateStockEntityRequest struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Unit             string `json:"unit" binding:"required"`
	ReorderThreshold int    `json:"reorder_threshold" binding:"gte=0"`
	UnitValue        string `json:"unit_value"`
}

type AdjustStockRequest struct {
	Change int    `json:"change" binding:"required"` // signed delta, never zero
	Note   string `json:"note"`
}

type StockEntityResponse struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	Quantity         int    `json:"quantity"`
	ReorderThreshold int    `json:"reorder_threshold"`
	UnitValue        string `json:"unit_value"`
	BelowThreshold   bool   `json:"below_threshold"`
}

// --- Interface ---

type InventoryService interface {
	// Items
	ListItems(ctx context.Context, page, limit int, search string) ([]StockEntityResponse, int64, error)
	CreateItem(ctx context.Context, actor Actor, req CreateStockEntityRequest) (*StockEntityResponse, error)
	UpdateItem(ctx context.Context, actor Actor, id string, req UpdateStockEntityRequest) (*StockEntityResponse, error)
	DeleteItem(ctx context.Context, actor Actor, id string) error
	AdjustItemStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (*StockEntityResponse, error)

	// Office supplies
	ListSupplies(ctx context.Context, page, limit int, search string) ([]StockEntityResponse, int64, error)
	CreateSupply(ctx context.Context, actor Actor, req CreateStockEntityRequest) (*StockEntityResponse, error)
	UpdateSupply(ctx context.Context, actor Actor, id string, req UpdateStockEntityRequest) (*StockEntityResponse, error)
	DeleteSupply(ctx context.Context, actor Actor, id string) error
	AdjustSupplyStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (*StockEntityResponse, error)

	ListMovements(ctx context.Context, kind, entityID string, page, limit int) ([]model.StockMovement, int64, error)
}

type inventoryService struct {
	itemRepo     repository.ItemRepository
	supplyRepo   repository.SupplyRepository
	movementRepo repository.MovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	bus          *event.Bus
}

func NewInventoryService(
	itemRepo repository.ItemRepository,
	supplyRepo repository.SupplyRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	bus *event.Bus,
) InventoryService {
	return &inventoryService{
		itemRepo:     itemRepo,
		supplyRepo:   supplyRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		bus:          bus,
	}
}

// --- Items ---

func (s *inventoryService) ListItems(ctx context.Context, page, limit int, search string) ([]StockEntityResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	items, total, err := s.itemRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StockEntityResponse, 0, len(items))
	for i := range items {
		res = append(res, itemResponse(&items[i]))
	}
	return res, total, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, actor Actor, req CreateStockEntityRequest) (*StockEntityResponse, error) {
	unitValue, err := parseUnitValue(req.UnitValue)
	if err != nil {
		return nil, err
	}

	item := model.Item{
		Code:             req.Code,
		Name:             req.Name,
		Unit:             req.Unit,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		UnitValue:        unitValue,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.itemRepo.Create(txCtx, &item); createErr != nil {
			return fmt.Errorf("failed to create item: %w", createErr)
		}
		if item.Quantity != 0 {
			movement := model.StockMovement{
				EntityKind:      model.StockKindItem,
				EntityID:        item.ID,
				MovementType:    model.MovementIn,
				QuantityChanged: item.Quantity,
				QuantityAfter:   item.Quantity,
				Note:            "initial stock",
			}
			if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
				return fmt.Errorf("failed to record stock movement: %w", moveErr)
			}
		}
		return s.auditEntity(txCtx, actor, model.ActionCreateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := itemResponse(&item)
	return &resp, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, actor Actor, id string, req UpdateStockEntityRequest) (*StockEntityResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id: %w", err)
	}
	unitValue, err := parseUnitValue(req.UnitValue)
	if err != nil {
		return nil, err
	}

	var item *model.Item
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		item, findErr = s.itemRepo.FindByID(txCtx, itemID)
		if findErr != nil {
			return fmt.Errorf("item not found: %w", findErr)
		}

		// Quantity is deliberately untouched here; it only moves through
		// stock adjustments and request fulfillment.
		item.Code = req.Code
		item.Name = req.Name
		item.Unit = req.Unit
		item.ReorderThreshold = req.ReorderThreshold
		item.UnitValue = unitValue

		if saveErr := s.itemRepo.Update(txCtx, item); saveErr != nil {
			return fmt.Errorf("failed to update item: %w", saveErr)
		}
		return s.auditEntity(txCtx, actor, model.ActionUpdateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := itemResponse(item)
	return &resp, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, actor Actor, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid item id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, findErr := s.itemRepo.FindByID(txCtx, itemID)
		if findErr != nil {
			return fmt.Errorf("item not found: %w", findErr)
		}
		if delErr := s.itemRepo.Delete(txCtx, itemID); delErr != nil {
			return fmt.Errorf("failed to delete item: %w", delErr)
		}
		return s.auditEntity(txCtx, actor, model.ActionDeleteItem, item.ID.String(), item.Name, nil)
	})
}

// AdjustItemStock applies a signed quantity change under a row lock and runs
// the reorder-point check on the result.
func (s *inventoryService) AdjustItemStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (*StockEntityResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id: %w", err)
	}

	var item *model.Item
	var alert *event.ReorderPointAlert
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		item, findErr = s.itemRepo.FindByIDForUpdate(txCtx, itemID)
		if findErr != nil {
			return fmt.Errorf("item not found: %w", findErr)
		}

		oldQty := item.Quantity
		newQty := oldQty + req.Change
		if newQty < 0 {
			return fmt.Errorf("stock cannot go negative for item %s (current: %d, change: %d)",
				item.Name, oldQty, req.Change)
		}

		if updateErr := s.itemRepo.UpdateQuantity(txCtx, item.ID, newQty); updateErr != nil {
			return fmt.Errorf("failed to update stock for item %s: %w", item.Name, updateErr)
		}

		movementType := model.MovementIn
		if req.Change < 0 {
			movementType = model.MovementOut
		}
		movement := model.StockMovement{
			EntityKind:      model.StockKindItem,
			EntityID:        item.ID,
			MovementType:    movementType,
			QuantityChanged: req.Change,
			QuantityAfter:   newQty,
			Note:            req.Note,
		}
		if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
			return fmt.Errorf("failed to record stock movement: %w", moveErr)
		}

		alert = reorderCheck(model.StockKindItem, item.ID, item.Name, item.Unit, oldQty, newQty, item.ReorderThreshold)
		item.Quantity = newQty

		return s.auditEntity(txCtx, actor, model.ActionAdjustStock, item.ID.String(), item.Name, map[string]interface{}{
			"change":    req.Change,
			"after":     newQty,
			"note":      req.Note,
			"item_kind": model.StockKindItem,
		})
	})
	if err != nil {
		return nil, err
	}

	if alert != nil {
		s.bus.Publish(ctx, *alert)
	}

	resp := itemResponse(item)
	return &resp, nil
}

// --- Office supplies ---

func (s *inventoryService) ListSupplies(ctx context.Context, page, limit int, search string) ([]StockEntityResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	supplies, total, err := s.supplyRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StockEntityResponse, 0, len(supplies))
	for i := range supplies {
		res = append(res, supplyResponse(&supplies[i]))
	}
	return res, total, nil
}

func (s *inventoryService) CreateSupply(ctx context.Context, actor Actor, req CreateStockEntityRequest) (*StockEntityResponse, error) {
	unitValue, err := parseUnitValue(req.UnitValue)
	if err != nil {
		return nil, err
	}

	supply := model.OfficeSupply{
		Code:             req.Code,
		Name:             req.Name,
		Unit:             req.Unit,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		UnitValue:        unitValue,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.supplyRepo.Create(txCtx, &supply); createErr != nil {
			return fmt.Errorf("failed to create supply: %w", createErr)
		}
		if supply.Quantity != 0 {
			movement := model.StockMovement{
				EntityKind:      model.StockKindSupply,
				EntityID:        supply.ID,
				MovementType:    model.MovementIn,
				QuantityChanged: supply.Quantity,
				QuantityAfter:   supply.Quantity,
				Note:            "initial stock",
			}
			if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
				return fmt.Errorf("failed to record stock movement: %w", moveErr)
			}
		}
		return s.auditEntity(txCtx, actor, model.ActionCreateSupply, supply.ID.String(), supply.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := supplyResponse(&supply)
	return &resp, nil
}

func (s *inventoryService) UpdateSupply(ctx context.Context, actor Actor, id string, req UpdateStockEntityRequest) (*StockEntityResponse, error) {
	supplyID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid supply id: %w", err)
	}
	unitValue, err := parseUnitValue(req.UnitValue)
	if err != nil {
		return nil, err
	}

	var supply *model.OfficeSupply
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		supply, findErr = s.supplyRepo.FindByID(txCtx, supplyID)
		if findErr != nil {
			return fmt.Errorf("supply not found: %w", findErr)
		}

		supply.Code = req.Code
		supply.Name = req.Name
		supply.Unit = req.Unit
		supply.ReorderThreshold = req.ReorderThreshold
		supply.UnitValue = unitValue

		if saveErr := s.supplyRepo.Update(txCtx, supply); saveErr != nil {
			return fmt.Errorf("failed to update supply: %w", saveErr)
		}
		return s.auditEntity(txCtx, actor, model.ActionUpdateSupply, supply.ID.String(), supply.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := supplyResponse(supply)
	return &resp, nil
}

func (s *inventoryService) DeleteSupply(ctx context.Context, actor Actor, id string) error {
	supplyID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid supply id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		supply, findErr := s.supplyRepo.FindByID(txCtx, supplyID)
		if findErr != nil {
			return fmt.Errorf("supply not found: %w", findErr)
		}
		if delErr := s.supplyRepo.Delete(txCtx, supplyID); delErr != nil {
			return fmt.Errorf("failed to delete supply: %w", delErr)
		}
		return s.auditEntity(txCtx, actor, model.ActionDeleteSupply, supply.ID.String(), supply.Name, nil)
	})
}

func (s *inventoryService) AdjustSupplyStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (*StockEntityResponse, error) {
	supplyID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid supply id: %w", err)
	}

	var supply *model.OfficeSupply
	var alert *event.ReorderPointAlert
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		supply, findErr = s.supplyRepo.FindByIDForUpdate(txCtx, supplyID)
		if findErr != nil {
			return fmt.Errorf("supply not found: %w", findErr)
		}

		oldQty := supply.Quantity
		newQty := oldQty + req.Change
		if newQty < 0 {
			return fmt.Errorf("stock cannot go negative for supply %s (current: %d, change: %d)",
				supply.Name, oldQty, req.Change)
		}

		if updateErr := s.supplyRepo.UpdateQuantity(txCtx, supply.ID, newQty); updateErr != nil {
			return fmt.Errorf("failed to update stock for supply %s: %w", supply.Name, updateErr)
		}

		movementType := model.MovementIn
		if req.Change < 0 {
			movementType = model.MovementOut
		}
		movement := model.StockMovement{
			EntityKind:      model.StockKindSupply,
			EntityID:        supply.ID,
			MovementType:    movementType,
			QuantityChanged: req.Change,
			QuantityAfter:   newQty,
			Note:            req.Note,
		}
		if moveErr := s.movementRepo.Create(txCtx, &movement); moveErr != nil {
			return fmt.Errorf("failed to record stock movement: %w", moveErr)
		}

		alert = reorderCheck(model.StockKindSupply, supply.ID, supply.Name, supply.Unit, oldQty, newQty, supply.ReorderThreshold)
		supply.Quantity = newQty

		return s.auditEntity(txCtx, actor, model.ActionAdjustStock, supply.ID.String(), supply.Name, map[string]interface{}{
			"change":    req.Change,
			"after":     newQty,
			"note":      req.Note,
			"item_kind": model.StockKindSupply,
		})
	})
	if err != nil {
		return nil, err
	}

	if alert != nil {
		s.bus.Publish(ctx, *alert)
	}

	resp := supplyResponse(supply)
	return &resp, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, kind, entityID string, page, limit int) ([]model.StockMovement, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if kind != model.StockKindItem && kind != model.StockKindSupply {
		return nil, 0, fmt.Errorf("invalid entity kind: %s", kind)
	}
	id, err := uuid.Parse(entityID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid entity id: %w", err)
	}
	return s.movementRepo.ListByEntity(ctx, kind, id, page, limit)
}

// --- Helpers ---

func (s *inventoryService) auditEntity(ctx context.Context, actor Actor, action, entityID, entityName string, details interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func parseUnitValue(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid unit value %q: %w", raw, err)
	}
	return value, nil
}

func itemResponse(item *model.Item) StockEntityResponse {
	return StockEntityResponse{
		ID:               item.ID.String(),
		Code:             item.Code,
		Name:             item.Name,
		Unit:             item.Unit,
		Quantity:         item.Quantity,
		ReorderThreshold: item.ReorderThreshold,
		UnitValue:        item.UnitValue.StringFixed(2),
		BelowThreshold:   item.Quantity <= item.ReorderThreshold,
	}
}

func supplyResponse(supply *model.OfficeSupply) StockEntityResponse {
	return StockEntityResponse{
		ID:               supply.ID.String(),
		Code:             supply.Code,
		Name:             supply.Name,
		Unit:             supply.Unit,
		Quantity:         supply.Quantity,
		ReorderThreshold: supply.ReorderThreshold,
		UnitValue:        supply.UnitValue.StringFixed(2),
		BelowThreshold:   supply.Quantity <= supply.ReorderThreshold,
	}
}
