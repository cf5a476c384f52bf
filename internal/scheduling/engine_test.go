package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"vetclinic-server/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory fakes for the engine's collaborators
// ---------------------------------------------------------------------------

type fakePets struct {
	pets map[string]*models.Pet
}

func (f *fakePets) GetByID(_ context.Context, id string) (*models.Pet, error) {
	if p, ok := f.pets[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

type fakeClinic struct {
	status models.ClinicStatusValue
}

func (f *fakeClinic) Current(_ context.Context) (models.ClinicStatusValue, error) {
	return f.status, nil
}

type fakeStore struct {
	appts  map[string]*models.Appointment
	pets   *fakePets
	nextID int
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) List(_ context.Context, filter ListFilter) ([]models.Appointment, error) {
	return f.collect(filter, ""), nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID string, filter ListFilter) ([]models.Appointment, error) {
	return f.collect(filter, ownerID), nil
}

func (f *fakeStore) collect(filter ListFilter, ownerID string) []models.Appointment {
	var out []models.Appointment
	for _, a := range f.appts {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.From != nil && a.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.StartTime.After(*filter.To) {
			continue
		}
		if ownerID != "" {
			pet, ok := f.pets.pets[a.PetID]
			if !ok || pet.OwnerID != ownerID {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (f *fakeStore) ActiveBetween(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if a.Status.Active() && a.StartTime.Before(to) && a.EndTime.After(from) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) HasActiveOverlap(_ context.Context, start, end time.Time, excludeID string) (bool, error) {
	return f.overlaps(start, end, excludeID), nil
}

func (f *fakeStore) overlaps(start, end time.Time, excludeID string) bool {
	for _, a := range f.appts {
		if a.ID == excludeID || !a.Status.Active() {
			continue
		}
		if start.Before(a.EndTime) && a.StartTime.Before(end) {
			return true
		}
	}
	return false
}

func (f *fakeStore) Insert(_ context.Context, appt *models.Appointment) error {
	// Mirror the real store's transactional re-check.
	if f.overlaps(appt.StartTime, appt.EndTime, "") {
		return fmt.Errorf("time slot was taken concurrently: %w", ErrConflict)
	}
	if appt.ID == "" {
		f.nextID++
		appt.ID = fmt.Sprintf("appt-%d", f.nextID)
	}
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateTimes(_ context.Context, id string, start, end time.Time) (*models.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, errors.New("no such appointment")
	}
	if f.overlaps(start, end, id) {
		return nil, fmt.Errorf("time slot was taken concurrently: %w", ErrConflict)
	}
	a.StartTime = start
	a.EndTime = end
	a.UpdatedAt = a.UpdatedAt.Add(time.Second)
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, errors.New("no such appointment")
	}
	a.Status = status
	a.UpdatedAt = a.UpdatedAt.Add(time.Second)
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.appts, id)
	return nil
}

// ---------------------------------------------------------------------------
// Test environment
// ---------------------------------------------------------------------------

var (
	owner = Actor{ID: "user-owner", Role: models.RolePetOwner}
	other = Actor{ID: "user-other", Role: models.RolePetOwner}
	admin = Actor{ID: "user-admin", Role: models.RoleAdmin}
)

type env struct {
	store  *fakeStore
	pets   *fakePets
	clinic *fakeClinic
	eng    *Engine
	now    time.Time
}

// newEnv builds an engine over empty fakes. The clock is pinned to
// 2025-03-09 10:00 so "tomorrow" is the spec's example date 2025-03-10.
func newEnv() *env {
	pets := &fakePets{pets: map[string]*models.Pet{
		"pet-1": {BaseModel: models.BaseModel{ID: "pet-1"}, Name: "Fluffy", Species: "dog", OwnerID: owner.ID},
		"pet-2": {BaseModel: models.BaseModel{ID: "pet-2"}, Name: "Milo", Species: "cat", OwnerID: other.ID},
	}}
	st := &fakeStore{appts: map[string]*models.Appointment{}, pets: pets}
	clinic := &fakeClinic{status: models.ClinicOpen}
	eng := NewEngine(st, pets, clinic, OperatingHours{
		OpenHour:  8,
		CloseHour: 20,
		Stride:    30 * time.Minute,
		Location:  time.UTC,
	})
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return now }
	return &env{store: st, pets: pets, clinic: clinic, eng: eng, now: now}
}

// at builds a time on the spec's example date 2025-03-10.
func at(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func (e *env) book(t *testing.T, actor Actor, petID string, start time.Time, service ServiceType) *models.Appointment {
	t.Helper()
	appt, err := e.eng.Book(context.Background(), BookRequest{PetID: petID, Start: start, ServiceType: service}, actor)
	if err != nil {
		t.Fatalf("book %s at %s: %v", service, start.Format("15:04"), err)
	}
	return appt
}

// ---------------------------------------------------------------------------
// Book
// ---------------------------------------------------------------------------

func TestBook_CreatesPendingWithDerivedEnd(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	if appt.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}
	if !appt.EndTime.Equal(at(9, 45)) {
		t.Errorf("end = %s, want 09:45", appt.EndTime.Format("15:04"))
	}
	if appt.UserID != owner.ID {
		t.Errorf("requester = %s, want %s", appt.UserID, owner.ID)
	}
}

func TestBook_UnknownPet(t *testing.T) {
	e := newEnv()
	_, err := e.eng.Book(context.Background(), BookRequest{PetID: "pet-nope", Start: at(9, 0), ServiceType: ServiceRoutine}, owner)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBook_OwnershipRule(t *testing.T) {
	e := newEnv()

	_, err := e.eng.Book(context.Background(), BookRequest{PetID: "pet-2", Start: at(9, 0), ServiceType: ServiceRoutine}, owner)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("booking another owner's pet: err = %v, want ErrForbidden", err)
	}

	// Admin may book for any pet.
	e.book(t, admin, "pet-2", at(9, 0), ServiceRoutine)
}

func TestBook_PastStart(t *testing.T) {
	e := newEnv()
	_, err := e.eng.Book(context.Background(), BookRequest{
		PetID: "pet-1", Start: e.now.Add(-time.Hour), ServiceType: ServiceRoutine,
	}, owner)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestBook_OperatingWindow(t *testing.T) {
	cases := []struct {
		name    string
		start   time.Time
		service ServiceType
		wantErr bool
	}{
		{"before open", at(7, 30), ServiceRoutine, true},
		{"at open", at(8, 0), ServiceRoutine, false},
		{"end overruns close", at(19, 30), ServiceSurgery, true},
		{"end exactly at close", at(19, 45), ServiceEmergency, false},
		{"at close", at(20, 0), ServiceEmergency, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			_, err := e.eng.Book(context.Background(), BookRequest{
				PetID: "pet-1", Start: tc.start, ServiceType: tc.service,
			}, owner)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("err = %v, want ErrInvalid", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestBook_ClinicClosed(t *testing.T) {
	e := newEnv()
	e.clinic.status = models.ClinicClose
	_, err := e.eng.Book(context.Background(), BookRequest{PetID: "pet-1", Start: at(9, 0), ServiceType: ServiceRoutine}, owner)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}

	// closing_soon still accepts bookings.
	e.clinic.status = models.ClinicClosingSoon
	e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
}

func TestBook_OverlapConflict(t *testing.T) {
	e := newEnv()
	e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine) // 09:00-09:45

	_, err := e.eng.Book(context.Background(), BookRequest{PetID: "pet-1", Start: at(9, 30), ServiceType: ServiceVaccination}, owner)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestBook_BackToBackIsNotOverlap(t *testing.T) {
	e := newEnv()
	e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)        // 09:00-09:45
	e.book(t, owner, "pet-1", at(9, 45), ServiceVaccination)   // 09:45-10:15
}

func TestBook_CancelledDoesNotBlock(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCancelled, owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
}

// ---------------------------------------------------------------------------
// Status state machine
// ---------------------------------------------------------------------------

func TestChangeStatus_AdminConfirmsAndCompletes(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	confirmed, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusConfirmed, admin)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.Status)
	}

	completed, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCompleted, admin)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
}

func TestChangeStatus_OwnerCannotConfirm(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	_, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusConfirmed, owner)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestChangeStatus_CompletingPendingIsIllegal(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	_, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCompleted, admin)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestChangeStatus_OwnerCancelsOwn(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	cancelled, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCancelled, owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestChangeStatus_OtherOwnerCannotCancel(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	_, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCancelled, other)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestChangeStatus_TerminalIsImmutable(t *testing.T) {
	e := newEnv()

	for _, terminal := range []models.AppointmentStatus{models.StatusCancelled, models.StatusCompleted} {
		appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
		if terminal == models.StatusCompleted {
			if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusConfirmed, admin); err != nil {
				t.Fatalf("confirm: %v", err)
			}
		}
		if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, terminal, admin); err != nil {
			t.Fatalf("move to %s: %v", terminal, err)
		}

		for _, next := range []models.AppointmentStatus{models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled} {
			if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, next, admin); !errors.Is(err, ErrInvalid) {
				t.Errorf("%s -> %s: err = %v, want ErrInvalid", terminal, next, err)
			}
		}
	}
}

func TestChangeStatus_UnknownAppointment(t *testing.T) {
	e := newEnv()
	_, err := e.eng.ChangeStatus(context.Background(), "appt-nope", models.StatusConfirmed, admin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Cancel (hard delete)
// ---------------------------------------------------------------------------

func TestCancel_OwnerRemovesOwn(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	if err := e.eng.Cancel(context.Background(), appt.ID, owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := e.store.appts[appt.ID]; ok {
		t.Fatal("appointment still present after cancel")
	}
}

func TestCancel_ForbiddenForOtherOwner(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	if err := e.eng.Cancel(context.Background(), appt.ID, other); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// Admin may remove any appointment.
	if err := e.eng.Cancel(context.Background(), appt.ID, admin); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCancel_CompletedCannotBeRemoved(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusConfirmed, admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCompleted, admin); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := e.eng.Cancel(context.Background(), appt.ID, admin); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

// ---------------------------------------------------------------------------
// Reschedule
// ---------------------------------------------------------------------------

func TestReschedule_MovesTimesOnly(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	moved, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(14, 0), at(14, 45))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.StartTime.Equal(at(14, 0)) || !moved.EndTime.Equal(at(14, 45)) {
		t.Errorf("times = %s-%s, want 14:00-14:45", moved.StartTime.Format("15:04"), moved.EndTime.Format("15:04"))
	}
	if moved.Status != models.StatusPending {
		t.Errorf("status changed to %s on reschedule", moved.Status)
	}
	if !moved.UpdatedAt.After(appt.UpdatedAt) {
		t.Error("UpdatedAt not refreshed")
	}
}

func TestReschedule_EndBeforeStart(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	_, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(14, 0), at(13, 0))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestReschedule_ForbiddenForOtherOwner(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	_, err := e.eng.Reschedule(context.Background(), appt.ID, other, at(14, 0), at(14, 45))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestReschedule_TerminalStatus(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	if _, err := e.eng.ChangeStatus(context.Background(), appt.ID, models.StatusCancelled, owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(14, 0), at(14, 45))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestReschedule_ConflictWithOtherBooking(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	e.book(t, admin, "pet-2", at(14, 0), ServiceRoutine) // 14:00-14:45

	_, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(14, 30), at(15, 15))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestReschedule_OwnWindowIsNotAConflict(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	// Rescheduling to its own current range must succeed: the appointment
	// never conflicts with itself.
	if _, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(9, 0), at(9, 45)); err != nil {
		t.Fatalf("reschedule to own window: %v", err)
	}
}

func TestReschedule_ClinicClosed(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	e.clinic.status = models.ClinicClose

	_, err := e.eng.Reschedule(context.Background(), appt.ID, owner, at(14, 0), at(14, 45))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

// ---------------------------------------------------------------------------
// List / GetByID
// ---------------------------------------------------------------------------

func TestList_VisibilityByRole(t *testing.T) {
	e := newEnv()
	e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	e.book(t, admin, "pet-2", at(11, 0), ServiceRoutine)

	all, err := e.eng.List(context.Background(), admin, ListFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d appointments, want 2", len(all))
	}

	mine, err := e.eng.List(context.Background(), owner, ListFilter{})
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(mine) != 1 || mine[0].PetID != "pet-1" {
		t.Fatalf("owner sees %d appointments, want only their own", len(mine))
	}
}

func TestList_StatusFilter(t *testing.T) {
	e := newEnv()
	a := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)
	e.book(t, owner, "pet-1", at(11, 0), ServiceRoutine)
	if _, err := e.eng.ChangeStatus(context.Background(), a.ID, models.StatusConfirmed, admin); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	status := models.StatusConfirmed
	got, err := e.eng.List(context.Background(), admin, ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("filter returned %d rows, want the confirmed one", len(got))
	}
}

func TestGetByID_Authorization(t *testing.T) {
	e := newEnv()
	appt := e.book(t, owner, "pet-1", at(9, 0), ServiceRoutine)

	if _, err := e.eng.GetByID(context.Background(), appt.ID, owner); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := e.eng.GetByID(context.Background(), appt.ID, admin); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if _, err := e.eng.GetByID(context.Background(), appt.ID, other); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other get: err = %v, want ErrForbidden", err)
	}
}
