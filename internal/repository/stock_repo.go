package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Item, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Item, int64, error)
	ListBelowThreshold(ctx context.Context) ([]model.Item, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Item{}).Error
}

func (r *itemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, page, limit int, search string) ([]model.Item, int64, error) {
	var items []model.Item
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Item{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *itemRepository) ListBelowThreshold(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := GetDB(ctx, r.db).
		Where("quantity <= reorder_threshold").
		Order("name asc").
		Find(&items).Error
	return items, err
}

func (r *itemRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.Item{}).Where("id = ?", id).Update("quantity", quantity).Error
}

type SupplyRepository interface {
	Create(ctx context.Context, supply *model.OfficeSupply) error
	Update(ctx context.Context, supply *model.OfficeSupply) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.OfficeSupply, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.OfficeSupply, error)
	List(ctx context.Context, page, limit int, search string) ([]model.OfficeSupply, int64, error)
	ListBelowThreshold(ctx context.Context) ([]model.OfficeSupply, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
}

type supplyRepository struct {
	db *gorm.DB
}

func NewSupplyRepository(db *gorm.DB) SupplyRepository {
	return &supplyRepository{db: db}
}

func (r *supplyRepository) Create(ctx context.Context, supply *model.OfficeSupply) error {
	return GetDB(ctx, r.db).Create(supply).Error
}

func (r *supplyRepository) Update(ctx context.Context, supply *model.OfficeSupply) error {
	return GetDB(ctx, r.db).Save(supply).Error
}

func (r *supplyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.OfficeSupply{}).Error
}

func (r *supplyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.OfficeSupply, error) {
	var supply model.OfficeSupply
	if err := GetDB(ctx, r.db).First(&supply, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supply, nil
}

func (r *supplyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.OfficeSupply, error) {
	var supply model.OfficeSupply
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&supply).Error; err != nil {
		return nil, err
	}
	return &supply, nil
}

func (r *supplyRepository) List(ctx context.Context, page, limit int, search string) ([]model.OfficeSupply, int64, error) {
	var supplies []model.OfficeSupply
	var total int64

	db := GetDB(ctx, r.db).Model(&model.OfficeSupply{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&supplies).Error; err != nil {
		return nil, 0, err
	}

	return supplies, total, nil
}

func (r *supplyRepository) ListBelowThreshold(ctx context.Context) ([]model.OfficeSupply, error) {
	var supplies []model.OfficeSupply
	err := GetDB(ctx, r.db).
		Where("quantity <= reorder_threshold").
		Order("name asc").
		Find(&supplies).Error
	return supplies, err
}

func (r *supplyRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.OfficeSupply{}).Where("id = ?", id).Update("quantity", quantity).Error
}

type MovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByEntity(ctx context.Context, kind string, entityID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *movementRepository) ListByEntity(ctx context.Context, kind string, entityID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Where("entity_kind = ? AND entity_id = ?", kind, entityID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}
