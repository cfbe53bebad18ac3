package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PreferenceRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	// GetOrCreate returns the user's preference record, lazily creating one
	// with the permissive defaults when none exists. Idempotent.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	Update(ctx context.Context, pref *model.NotificationPreference) error
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	var pref model.NotificationPreference
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	pref, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := model.DefaultPreference(userID)
	// ON CONFLICT-safe against a concurrent lazy creation for the same user
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).FirstOrCreate(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *preferenceRepository) Update(ctx context.Context, pref *model.NotificationPreference) error {
	return GetDB(ctx, r.db).Save(pref).Error
}

type NotificationLogRepository interface {
	Create(ctx context.Context, entry *model.NotificationLog) error
	List(ctx context.Context, status string, page, limit int) ([]model.NotificationLog, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.NotificationLog, int64, error)
}

type notificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *model.NotificationLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *notificationLogRepository) List(ctx context.Context, status string, page, limit int) ([]model.NotificationLog, int64, error) {
	var entries []model.NotificationLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.NotificationLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("User")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *notificationLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.NotificationLog, int64, error) {
	var entries []model.NotificationLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.NotificationLog{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
