package models

import (
	"time"
)

// ClinicStatusValue is the operational state of the clinic.
type ClinicStatusValue string

const (
	ClinicOpen        ClinicStatusValue = "open"
	ClinicClose       ClinicStatusValue = "close"
	ClinicClosingSoon ClinicStatusValue = "closing_soon"
)

// ClinicStatus is a single-row table (id is always 1) holding the current
// operational status of the clinic. Only "close" blocks new bookings.
type ClinicStatus struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Status    ClinicStatusValue `gorm:"size:20;default:'open'" json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
