package repository

import (
	"context"
	"errors"

	"petadopt/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PetRepository struct {
	db *gorm.DB
}

func NewPetRepository(db *gorm.DB) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, petID int64) (*model.Pet, error) {
	var pet model.Pet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", petID).
		First(&pet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	return &pet, nil
}

func (r *PetRepository) SetAvailability(ctx context.Context, tx *gorm.DB, petID int64, available bool) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Pet{}).
		Where("id = ?", petID).
		Update("availability", available)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPetNotFound
	}

	return nil
}
