package scheduling

import (
	"context"
	"fmt"
	"time"

	"vetclinic-server/internal/models"
)

// Slot is a candidate bookable interval.
type Slot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// AvailableSlots returns the ordered free slots for a calendar date and
// service type. Candidate starts walk the operating window at the fixed
// stride regardless of the service's duration; each candidate is the
// service's duration long. A closed clinic or a past date is a validation
// failure; a fully booked day is an empty list, not an error.
//
// Existing bookings are fetched with a single range query over the day's
// window and checked in memory, never per candidate.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time, service ServiceType) ([]Slot, error) {
	if err := e.checkClinicOpen(ctx); err != nil {
		return nil, err
	}

	now := e.now()
	// The date parameter is a calendar date; its own location is irrelevant.
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, e.hours.Location)
	today := midnight(now, e.hours.Location)
	if day.Before(today) {
		return nil, fmt.Errorf("cannot list slots for a past date: %w", ErrInvalid)
	}

	open, closed := e.dayWindow(day)
	active, err := e.store.ActiveBetween(ctx, open, closed)
	if err != nil {
		return nil, fmt.Errorf("fetch appointments for day: %w", err)
	}

	duration := Duration(service)
	slots := make([]Slot, 0)
	for t := open; !t.Add(duration).After(closed); t = t.Add(e.hours.Stride) {
		if day.Equal(today) && !t.After(now) {
			continue
		}
		if overlapsAny(t, t.Add(duration), active) {
			continue
		}
		slots = append(slots, Slot{Start: t, End: t.Add(duration)})
	}
	return slots, nil
}

// overlapsAny reports whether [start, end) intersects any active appointment.
// Half-open intervals: [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1,
// so back-to-back bookings do not collide.
func overlapsAny(start, end time.Time, appts []models.Appointment) bool {
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		if start.Before(a.EndTime) && a.StartTime.Before(end) {
			return true
		}
	}
	return false
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
