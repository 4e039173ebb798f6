package domain

// RiderID identifies a simulated person.
type RiderID string

// EventKind classifies an inbound transport event.
type EventKind string

const (
	EventTransitLeave EventKind = "transit_leave"
	EventTransitEnter EventKind = "transit_enter"
	EventVehicleEnter EventKind = "vehicle_enter"
	EventVehicleLeave EventKind = "vehicle_leave"

	// Raw kinds are resolved against the fleet before dispatch.
	EventPersonEntersVehicle EventKind = "person_enters_vehicle"
	EventPersonLeavesVehicle EventKind = "person_leaves_vehicle"
)

// Valid reports whether k is one of the known kinds, raw or resolved.
func (k EventKind) Valid() bool {
	switch k {
	case EventTransitLeave, EventTransitEnter, EventVehicleEnter, EventVehicleLeave,
		EventPersonEntersVehicle, EventPersonLeavesVehicle:
		return true
	}
	return false
}

// Event is a single timestamped transport event. Time is simulation seconds.
type Event struct {
	ID        string
	RiderID   RiderID
	Time      float64
	VehicleID string
	Kind      EventKind
}

// Outcome describes what the settlement core did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
	OutcomeDropped Outcome = "dropped"
)
