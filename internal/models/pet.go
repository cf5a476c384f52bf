package models

import (
	"time"
)

// VaccinationStatus is derived from the pet's last vaccination date.
type VaccinationStatus string

const (
	VaccinationValid   VaccinationStatus = "valid"
	VaccinationExpired VaccinationStatus = "expired"
	VaccinationUnknown VaccinationStatus = "unknown"
)

// Pet represents an animal registered in the system.
type Pet struct {
	BaseModel
	Name            string     `gorm:"size:100;not null" json:"name"`
	Species         string     `gorm:"size:50;not null" json:"species"`
	Breed           string     `gorm:"size:100" json:"breed,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	LastVaccination *time.Time `json:"lastVaccination,omitempty"`
	Notes           string     `gorm:"type:text" json:"notes,omitempty"`
	OwnerID         string     `gorm:"size:36;index" json:"ownerId"`

	// Relations
	Owner        User          `gorm:"foreignKey:OwnerID" json:"-"`
	Appointments []Appointment `gorm:"foreignKey:PetID" json:"-"`
}

// VaccinationStatusAt computes the vaccination status relative to now.
// A vaccination older than 365 days is expired; no record means unknown.
func (p *Pet) VaccinationStatusAt(now time.Time) VaccinationStatus {
	if p.LastVaccination == nil {
		return VaccinationUnknown
	}
	if p.LastVaccination.Before(now.AddDate(0, 0, -365)) {
		return VaccinationExpired
	}
	return VaccinationValid
}
