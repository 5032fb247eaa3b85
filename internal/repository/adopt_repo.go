package repository

import (
	"context"
	"errors"

	"petadopt/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdoptRepository struct {
	db *gorm.DB
}

func NewAdoptRepository(db *gorm.DB) *AdoptRepository {
	return &AdoptRepository{db: db}
}

// Upsert 获取或创建用户的领养会话
//
// 【关键点】INSERT ... ON CONFLICT(user_id) DO NOTHING 之后再读回，
// 并发创建时只会有一条落库，依赖 uk_adopt_user 唯一索引而不是先查后写
func (r *AdoptRepository) Upsert(ctx context.Context, tx *gorm.DB, userID int64) (*model.Adopt, error) {
	if tx == nil {
		tx = r.db
	}

	adopt := &model.Adopt{
		ID:     uuid.New(),
		UserID: userID,
	}

	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(adopt).Error
	if err != nil {
		return nil, err
	}

	return r.GetByUserID(ctx, tx, userID)
}

func (r *AdoptRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Adopt, error) {
	if tx == nil {
		tx = r.db
	}

	var adopt model.Adopt
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&adopt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdoptNotFound
		}
		return nil, err
	}
	return &adopt, nil
}

func (r *AdoptRepository) HistoryExists(ctx context.Context, tx *gorm.DB, adoptID uuid.UUID, petID int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	var count int64
	err := tx.WithContext(ctx).
		Model(&model.AdoptionHistory{}).
		Where("adopt_id = ? AND pet_id = ?", adoptID, petID).
		Count(&count).Error
	return count > 0, err
}

// CreateHistory 写入领养记录，(adopt_id, pet_id) 冲突时返回 ErrDuplicateHistory
func (r *AdoptRepository) CreateHistory(ctx context.Context, tx *gorm.DB, history *model.AdoptionHistory) error {
	if tx == nil {
		tx = r.db
	}

	err := tx.WithContext(ctx).Omit(clause.Associations).Create(history).Error
	if IsDuplicateKey(err) {
		return ErrDuplicateHistory
	}
	return err
}

// GetHistoryByID 查询领养记录，同时带出所属会话与宠物
func (r *AdoptRepository) GetHistoryByID(ctx context.Context, historyID int64) (*model.AdoptionHistory, error) {
	var history model.AdoptionHistory
	err := r.db.WithContext(ctx).
		Preload("Adopt").
		Preload("Pet").
		Preload("Pet.Category").
		Where("id = ?", historyID).
		First(&history).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}
	return &history, nil
}

func (r *AdoptRepository) ListHistoryByUserID(ctx context.Context, userID int64) ([]*model.AdoptionHistory, error) {
	var histories []*model.AdoptionHistory
	err := r.db.WithContext(ctx).
		Preload("Adopt").
		Preload("Pet").
		Preload("Pet.Category").
		Joins("JOIN adopt ON adopt.id = adoption_history.adopt_id").
		Where("adopt.user_id = ?", userID).
		Order("adoption_history.created_at DESC").
		Order("adoption_history.id DESC").
		Find(&histories).Error
	return histories, err
}

func (r *AdoptRepository) UserHasAdoptedPet(ctx context.Context, userID, petID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AdoptionHistory{}).
		Joins("JOIN adopt ON adopt.id = adoption_history.adopt_id").
		Where("adopt.user_id = ? AND adoption_history.pet_id = ?", userID, petID).
		Count(&count).Error
	return count > 0, err
}
