package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vetclinic-server/internal/models"
	"vetclinic-server/internal/scheduling"
)

// AppointmentStore is the gorm-backed implementation of
// scheduling.AppointmentStore.
type AppointmentStore struct {
	db *gorm.DB
}

func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentStore) List(ctx context.Context, f scheduling.ListFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := s.db.WithContext(ctx).Order("start_time asc")
	err := applyFilter(q, f).Find(&appts).Error
	return appts, err
}

func (s *AppointmentStore) ListByOwner(ctx context.Context, ownerID string, f scheduling.ListFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := s.db.WithContext(ctx).
		Joins("JOIN pets ON pets.id = appointments.pet_id").
		Where("pets.owner_id = ?", ownerID).
		Order("appointments.start_time asc")
	err := applyFilter(q, f).Find(&appts).Error
	return appts, err
}

func (s *AppointmentStore) ActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("status IN ? AND start_time < ? AND end_time > ?", models.ActiveStatuses, to, from).
		Order("start_time asc").
		Find(&appts).Error
	return appts, err
}

func (s *AppointmentStore) HasActiveOverlap(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	n, err := countOverlapping(s.db.WithContext(ctx), start, end, excludeID, false)
	return n > 0, err
}

// Insert re-checks the overlap and writes the row inside one transaction,
// locking the competing rows, so two concurrent bookings cannot both pass
// the check. Returns an error wrapping scheduling.ErrConflict if the slot
// was taken in the meantime.
func (s *AppointmentStore) Insert(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countOverlapping(tx, appt.StartTime, appt.EndTime, "", true)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("time slot was taken concurrently: %w", scheduling.ErrConflict)
		}
		return tx.Create(appt).Error
	})
}

// UpdateTimes moves an appointment under the same transactional overlap
// guard as Insert, excluding the appointment's own row from the check.
func (s *AppointmentStore) UpdateTimes(ctx context.Context, id string, start, end time.Time) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countOverlapping(tx, start, end, id, true)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("time slot was taken concurrently: %w", scheduling.ErrConflict)
		}
		if err := tx.First(&appt, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&appt).Updates(map[string]interface{}{
			"start_time": start,
			"end_time":   end,
		}).Error; err != nil {
			return err
		}
		return tx.First(&appt, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentStore) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&appt).Update("status", status).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id).Error
}

func applyFilter(q *gorm.DB, f scheduling.ListFilter) *gorm.DB {
	if f.Status != nil {
		q = q.Where("appointments.status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("appointments.start_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("appointments.start_time <= ?", *f.To)
	}
	return q
}

// countOverlapping counts active appointments intersecting the half-open
// range [start, end). With lock set, the matching rows are locked FOR UPDATE
// so the count stays valid until the surrounding transaction commits.
func countOverlapping(q *gorm.DB, start, end time.Time, excludeID string, lock bool) (int64, error) {
	stmt := q.Model(&models.Appointment{}).
		Where("status IN ? AND start_time < ? AND end_time > ?", models.ActiveStatuses, end, start)
	if excludeID != "" {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	if lock {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var n int64
	err := stmt.Count(&n).Error
	return n, err
}
