package scheduling

import (
	"context"
	"fmt"
	"time"

	"vetclinic-server/internal/models"
)

// Actor is the already-authenticated identity a request acts as. The API
// layer resolves it from the token; the engine never derives it.
type Actor struct {
	ID   string
	Role models.Role
}

// ListFilter narrows appointment listings. Nil fields are ignored.
type ListFilter struct {
	Status *models.AppointmentStatus
	From   *time.Time
	To     *time.Time
}

// AppointmentStore is the persistence collaborator the engine treats as the
// single source of truth for what is booked. Lookups return (nil, nil) when
// no row exists. Insert and UpdateTimes must re-run the overlap check and
// the write as one atomic unit so concurrent bookings cannot both land;
// they return an error wrapping ErrConflict when the slot was taken.
type AppointmentStore interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, f ListFilter) ([]models.Appointment, error)
	ListByOwner(ctx context.Context, ownerID string, f ListFilter) ([]models.Appointment, error)
	ActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	HasActiveOverlap(ctx context.Context, start, end time.Time, excludeID string) (bool, error)
	Insert(ctx context.Context, appt *models.Appointment) error
	UpdateTimes(ctx context.Context, id string, start, end time.Time) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// PetRegistry resolves a pet to its owner. Returns (nil, nil) when the pet
// does not exist.
type PetRegistry interface {
	GetByID(ctx context.Context, id string) (*models.Pet, error)
}

// ClinicStatusProvider reads the current open/close state of the clinic.
// The engine fetches it on every call and never caches it.
type ClinicStatusProvider interface {
	Current(ctx context.Context) (models.ClinicStatusValue, error)
}

// OperatingHours is the daily bookable window and the slot stride. The same
// values drive booking validation and slot enumeration, so a slot the
// enumerator offers always passes validation.
type OperatingHours struct {
	OpenHour  int
	CloseHour int
	Stride    time.Duration
	Location  *time.Location
}

// Engine decides whether a proposed time range is legal and free, generates
// the free slots for a day, and drives the appointment status state machine.
// It is stateless between calls: all calendar state is re-read from the
// store at the start of each operation.
type Engine struct {
	store  AppointmentStore
	pets   PetRegistry
	clinic ClinicStatusProvider
	hours  OperatingHours
	now    func() time.Time
}

// NewEngine builds an Engine. Zero stride defaults to 30 minutes and a nil
// location to the process-local timezone.
func NewEngine(store AppointmentStore, pets PetRegistry, clinic ClinicStatusProvider, hours OperatingHours) *Engine {
	if hours.Stride <= 0 {
		hours.Stride = 30 * time.Minute
	}
	if hours.Location == nil {
		hours.Location = time.Local
	}
	loc := hours.Location
	return &Engine{
		store:  store,
		pets:   pets,
		clinic: clinic,
		hours:  hours,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

// BookRequest describes a proposed booking. End time is always derived from
// the service type.
type BookRequest struct {
	PetID       string
	Start       time.Time
	ServiceType ServiceType
	Notes       string
}

// Book validates a proposed booking and creates it with status pending.
func (e *Engine) Book(ctx context.Context, req BookRequest, actor Actor) (*models.Appointment, error) {
	pet, err := e.pets.GetByID(ctx, req.PetID)
	if err != nil {
		return nil, fmt.Errorf("look up pet: %w", err)
	}
	if pet == nil {
		return nil, fmt.Errorf("pet %s: %w", req.PetID, ErrNotFound)
	}
	if !actor.Role.Elevated() && pet.OwnerID != actor.ID {
		return nil, fmt.Errorf("you can only book for your own pets: %w", ErrForbidden)
	}

	start := req.Start.In(e.hours.Location)
	if !start.After(e.now()) {
		return nil, fmt.Errorf("appointment time must be in the future: %w", ErrInvalid)
	}

	end := EndTime(start, req.ServiceType)
	if err := e.checkOperatingWindow(start, end); err != nil {
		return nil, err
	}

	if err := e.checkClinicOpen(ctx); err != nil {
		return nil, err
	}

	busy, err := e.store.HasActiveOverlap(ctx, start, end, "")
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if busy {
		return nil, ErrConflict
	}

	appt := &models.Appointment{
		PetID:       req.PetID,
		UserID:      actor.ID,
		StartTime:   start,
		EndTime:     end,
		ServiceType: string(req.ServiceType),
		Status:      models.StatusPending,
		Notes:       req.Notes,
	}
	if err := e.store.Insert(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// List returns appointments visible to the actor: everything for elevated
// callers, otherwise only appointments whose pet the actor owns.
func (e *Engine) List(ctx context.Context, actor Actor, f ListFilter) ([]models.Appointment, error) {
	if actor.Role.Elevated() {
		return e.store.List(ctx, f)
	}
	return e.store.ListByOwner(ctx, actor.ID, f)
}

// GetByID fetches a single appointment the actor is allowed to see.
func (e *Engine) GetByID(ctx context.Context, id string, actor Actor) (*models.Appointment, error) {
	appt, err := e.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Elevated() && appt.UserID != actor.ID {
		if err := e.requireOwnership(ctx, appt, actor); err != nil {
			return nil, err
		}
	}
	return appt, nil
}

// ChangeStatus drives the appointment status state machine:
// pending -> confirmed|cancelled, confirmed -> completed|cancelled.
// Completed and cancelled are terminal.
func (e *Engine) ChangeStatus(ctx context.Context, id string, newStatus models.AppointmentStatus, actor Actor) (*models.Appointment, error) {
	appt, err := e.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("cannot change status of %s appointment: %w", appt.Status, ErrInvalid)
	}
	if !validTransition(appt.Status, newStatus) {
		return nil, fmt.Errorf("cannot move a %s appointment to %s: %w", appt.Status, newStatus, ErrInvalid)
	}

	switch newStatus {
	case models.StatusConfirmed, models.StatusCompleted:
		if !actor.Role.Elevated() {
			return nil, fmt.Errorf("only clinic staff can confirm or complete appointments: %w", ErrForbidden)
		}
	case models.StatusCancelled:
		if !actor.Role.Elevated() {
			if err := e.requireOwnership(ctx, appt, actor); err != nil {
				return nil, err
			}
		}
	}

	updated, err := e.store.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}

// Cancel removes an appointment entirely. It follows the same ownership rule
// as the cancelled transition, and a completed appointment cannot be removed.
func (e *Engine) Cancel(ctx context.Context, id string, actor Actor) error {
	appt, err := e.getAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Role.Elevated() {
		if err := e.requireOwnership(ctx, appt, actor); err != nil {
			return err
		}
	}
	if appt.Status == models.StatusCompleted {
		return fmt.Errorf("cannot cancel completed appointment: %w", ErrInvalid)
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

// Reschedule moves an active appointment to a new time range. Only the times
// change; status and ownership stay as they are.
func (e *Engine) Reschedule(ctx context.Context, id string, actor Actor, newStart, newEnd time.Time) (*models.Appointment, error) {
	if !newEnd.After(newStart) {
		return nil, fmt.Errorf("end time must be after start time: %w", ErrInvalid)
	}

	appt, err := e.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Elevated() {
		if err := e.requireOwnership(ctx, appt, actor); err != nil {
			return nil, err
		}
	}
	if !appt.Status.Active() {
		return nil, fmt.Errorf("cannot reschedule a %s appointment: %w", appt.Status, ErrInvalid)
	}

	if err := e.checkClinicOpen(ctx); err != nil {
		return nil, err
	}

	newStart = newStart.In(e.hours.Location)
	newEnd = newEnd.In(e.hours.Location)
	busy, err := e.store.HasActiveOverlap(ctx, newStart, newEnd, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if busy {
		return nil, fmt.Errorf("the requested time slot is not available: %w", ErrConflict)
	}

	updated, err := e.store.UpdateTimes(ctx, id, newStart, newEnd)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validTransition(from, to models.AppointmentStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusConfirmed || to == models.StatusCancelled
	case models.StatusConfirmed:
		return to == models.StatusCompleted || to == models.StatusCancelled
	default:
		return false
	}
}

func (e *Engine) getAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("look up appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return appt, nil
}

// requireOwnership verifies the actor owns the pet tied to the appointment.
func (e *Engine) requireOwnership(ctx context.Context, appt *models.Appointment, actor Actor) error {
	pet, err := e.pets.GetByID(ctx, appt.PetID)
	if err != nil {
		return fmt.Errorf("look up pet: %w", err)
	}
	if pet == nil {
		return fmt.Errorf("pet %s: %w", appt.PetID, ErrNotFound)
	}
	if pet.OwnerID != actor.ID {
		return fmt.Errorf("you can only manage appointments for your own pets: %w", ErrForbidden)
	}
	return nil
}

func (e *Engine) checkClinicOpen(ctx context.Context) error {
	status, err := e.clinic.Current(ctx)
	if err != nil {
		return fmt.Errorf("read clinic status: %w", err)
	}
	if status == models.ClinicClose {
		return fmt.Errorf("clinic is closed: %w", ErrInvalid)
	}
	return nil
}

// dayWindow returns the operating window boundaries for the day t falls on.
func (e *Engine) dayWindow(t time.Time) (open, closed time.Time) {
	t = t.In(e.hours.Location)
	y, m, d := t.Date()
	open = time.Date(y, m, d, e.hours.OpenHour, 0, 0, 0, e.hours.Location)
	closed = time.Date(y, m, d, e.hours.CloseHour, 0, 0, 0, e.hours.Location)
	return open, closed
}

func (e *Engine) checkOperatingWindow(start, end time.Time) error {
	open, closed := e.dayWindow(start)
	if start.Before(open) || !start.Before(closed) || end.After(closed) {
		return fmt.Errorf("appointments must fall between %02d:00 and %02d:00: %w",
			e.hours.OpenHour, e.hours.CloseHour, ErrInvalid)
	}
	return nil
}
