package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRequestRepository interface {
	Create(ctx context.Context, req *model.ItemRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error)
	// FindByIDForUpdate loads the request row under FOR UPDATE so concurrent
	// approval attempts serialize on it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error)
	List(ctx context.Context, status string, requesterID *uuid.UUID, page, limit int) ([]model.ItemRequest, int64, error)
	Update(ctx context.Context, req *model.ItemRequest) error
	UpdateLine(ctx context.Context, line *model.ItemRequestLine) error
	NextRequestNumber(ctx context.Context) (string, error)
}

type itemRequestRepository struct {
	db *gorm.DB
}

func NewItemRequestRepository(db *gorm.DB) ItemRequestRepository {
	return &itemRequestRepository{db: db}
}

func (r *itemRequestRepository) Create(ctx context.Context, req *model.ItemRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *itemRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	var req model.ItemRequest
	if err := GetDB(ctx, r.db).Preload("Lines").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *itemRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	var req model.ItemRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	// Lines are loaded separately; FOR UPDATE cannot be combined with Preload joins
	if err := GetDB(ctx, r.db).Where("request_id = ?", id).Find(&req.Lines).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *itemRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ItemRequest, error) {
	var req model.ItemRequest
	err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("Lines.Item").
		Preload("Requester").
		Preload("Level1Approver").
		Preload("Level2Approver").
		Preload("Level3Approver").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *itemRequestRepository) List(ctx context.Context, status string, requesterID *uuid.UUID, page, limit int) ([]model.ItemRequest, int64, error) {
	var requests []model.ItemRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ItemRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if requesterID != nil {
		query = query.Where("requester_id = ?", *requesterID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Lines").Preload("Lines.Item").Preload("Requester")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if requesterID != nil {
		fetchQuery = fetchQuery.Where("requester_id = ?", *requesterID)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *itemRequestRepository) Update(ctx context.Context, req *model.ItemRequest) error {
	return GetDB(ctx, r.db).Omit("Lines").Save(req).Error
}

func (r *itemRequestRepository) UpdateLine(ctx context.Context, line *model.ItemRequestLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

// NextRequestNumber issues "REQ-YYYYMMDD-00001" style numbers under a
// per-day advisory lock so concurrent submissions never collide.
func (r *itemRequestRepository) NextRequestNumber(ctx context.Context) (string, error) {
	return nextNumber(GetDB(ctx, r.db), &model.ItemRequest{}, "REQ")
}

type SupplyRequestRepository interface {
	Create(ctx context.Context, req *model.SupplyRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error)
	List(ctx context.Context, status string, requesterID *uuid.UUID, page, limit int) ([]model.SupplyRequest, int64, error)
	Update(ctx context.Context, req *model.SupplyRequest) error
	UpdateLine(ctx context.Context, line *model.SupplyRequestLine) error
	NextRequestNumber(ctx context.Context) (string, error)
}

type supplyRequestRepository struct {
	db *gorm.DB
}

func NewSupplyRequestRepository(db *gorm.DB) SupplyRequestRepository {
	return &supplyRequestRepository{db: db}
}

func (r *supplyRequestRepository) Create(ctx context.Context, req *model.SupplyRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *supplyRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	var req model.SupplyRequest
	if err := GetDB(ctx, r.db).Preload("Lines").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supplyRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	var req model.SupplyRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("request_id = ?", id).Find(&req.Lines).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supplyRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.SupplyRequest, error) {
	var req model.SupplyRequest
	err := GetDB(ctx, r.db).
		Preload("Lines").
		Preload("Lines.Supply").
		Preload("Requester").
		Preload("ApprovedBy").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supplyRequestRepository) List(ctx context.Context, status string, requesterID *uuid.UUID, page, limit int) ([]model.SupplyRequest, int64, error) {
	var requests []model.SupplyRequest
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.SupplyRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if requesterID != nil {
		query = query.Where("requester_id = ?", *requesterID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Lines").Preload("Lines.Supply").Preload("Requester")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if requesterID != nil {
		fetchQuery = fetchQuery.Where("requester_id = ?", *requesterID)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *supplyRequestRepository) Update(ctx context.Context, req *model.SupplyRequest) error {
	return GetDB(ctx, r.db).Omit("Lines").Save(req).Error
}

func (r *supplyRequestRepository) UpdateLine(ctx context.Context, line *model.SupplyRequestLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *supplyRequestRepository) NextRequestNumber(ctx context.Context) (string, error) {
	return nextNumber(GetDB(ctx, r.db), &model.SupplyRequest{}, "SUP")
}

func nextNumber(db *gorm.DB, modelPtr interface{}, prefix string) (string, error) {
	today := time.Now().Format("20060102")
	full := prefix + "-" + today + "-"

	// Advisory lock prevents concurrent duplicate request numbers
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", full).Error; err != nil {
		return "", fmt.Errorf("failed to acquire request number lock: %w", err)
	}

	var count int64
	if err := db.Model(modelPtr).
		Where("request_number LIKE ?", full+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", full, count+1), nil
}
