package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Active reports whether the appointment occupies the calendar.
// Cancelled and completed appointments never block a time slot.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further status transitions are permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ActiveStatuses is the set of statuses that occupy the calendar,
// in the form range queries expect.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

// Appointment represents a booked clinic visit for a pet.
// StartTime and EndTime are wall-clock times in the clinic's timezone;
// EndTime is derived from the service type, never chosen by the caller
// except during reschedule.
type Appointment struct {
	BaseModel
	PetID       string            `gorm:"size:36;index" json:"petId"`
	UserID      string            `gorm:"size:36;index" json:"userId"`
	StartTime   time.Time         `gorm:"index" json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	ServiceType string            `gorm:"size:30" json:"serviceType"`
	Status      AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Notes       string            `gorm:"type:text" json:"notes"`

	// Relations
	Pet  Pet  `gorm:"foreignKey:PetID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}
