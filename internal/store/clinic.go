package store

import (
	"context"

	"gorm.io/gorm"

	"vetclinic-server/internal/models"
)

// clinicStatusID is the key of the single status row.
const clinicStatusID = 1

// ClinicStore reads and writes the single clinic status row. It implements
// scheduling.ClinicStatusProvider.
type ClinicStore struct {
	db *gorm.DB
}

func NewClinicStore(db *gorm.DB) *ClinicStore {
	return &ClinicStore{db: db}
}

// Current returns the clinic's operational status, creating the row with the
// default "open" state if it does not exist yet.
func (s *ClinicStore) Current(ctx context.Context) (models.ClinicStatusValue, error) {
	row, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	return row.Status, nil
}

// Get returns the full status row, including when it last changed.
func (s *ClinicStore) Get(ctx context.Context) (*models.ClinicStatus, error) {
	return s.get(ctx)
}

// Set updates the clinic's operational status.
func (s *ClinicStore) Set(ctx context.Context, status models.ClinicStatusValue) (*models.ClinicStatus, error) {
	row, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(row).Update("status", status).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (s *ClinicStore) get(ctx context.Context) (*models.ClinicStatus, error) {
	row := models.ClinicStatus{ID: clinicStatusID, Status: models.ClinicOpen}
	err := s.db.WithContext(ctx).FirstOrCreate(&row, models.ClinicStatus{ID: clinicStatusID}).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
