package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"vetclinic-server/internal/models"
)

// PetStore is the gorm-backed implementation of scheduling.PetRegistry.
type PetStore struct {
	db *gorm.DB
}

func NewPetStore(db *gorm.DB) *PetStore {
	return &PetStore{db: db}
}

func (s *PetStore) GetByID(ctx context.Context, id string) (*models.Pet, error) {
	var pet models.Pet
	err := s.db.WithContext(ctx).First(&pet, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pet, nil
}
