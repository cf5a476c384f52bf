package scheduling

import "time"

// ServiceType identifies a clinic service with a fixed visit duration.
type ServiceType string

const (
	ServiceVaccination ServiceType = "vaccination"
	ServiceRoutine     ServiceType = "routine"
	ServiceSurgery     ServiceType = "surgery"
	ServiceEmergency   ServiceType = "emergency"
)

// DefaultDuration applies to unrecognized service types.
const DefaultDuration = 30 * time.Minute

var serviceDurations = map[ServiceType]time.Duration{
	ServiceVaccination: 30 * time.Minute,
	ServiceRoutine:     45 * time.Minute,
	ServiceSurgery:     120 * time.Minute,
	ServiceEmergency:   15 * time.Minute,
}

// Known reports whether the service type is part of the catalog.
func (s ServiceType) Known() bool {
	_, ok := serviceDurations[s]
	return ok
}

// Duration returns the visit length for a service type.
func Duration(s ServiceType) time.Duration {
	if d, ok := serviceDurations[s]; ok {
		return d
	}
	return DefaultDuration
}

// EndTime derives an appointment's end from its start and service type.
func EndTime(start time.Time, s ServiceType) time.Time {
	return start.Add(Duration(s))
}
