package domain

// Fleet holds the static vehicle membership for a run.
type Fleet struct {
	transit map[string]struct{}
	shared  map[string]struct{}
}

// NewFleet builds a Fleet from transit and shared vehicle id lists.
func NewFleet(transit, shared []string) *Fleet {
	f := &Fleet{
		transit: make(map[string]struct{}, len(transit)),
		shared:  make(map[string]struct{}, len(shared)),
	}
	for _, id := range transit {
		f.transit[id] = struct{}{}
	}
	for _, id := range shared {
		f.shared[id] = struct{}{}
	}
	return f
}

// IsTransit reports whether the vehicle belongs to the transit fleet.
func (f *Fleet) IsTransit(vehicleID string) bool {
	_, ok := f.transit[vehicleID]
	return ok
}

// IsShared reports whether the vehicle belongs to the shared-mobility fleet.
func (f *Fleet) IsShared(vehicleID string) bool {
	_, ok := f.shared[vehicleID]
	return ok
}

// Size returns the number of transit and shared vehicles.
func (f *Fleet) Size() (transit, shared int) {
	return len(f.transit), len(f.shared)
}

// Resolve maps a raw enter/leave kind to its fleet-specific kind.
// Already-resolved kinds are returned unchanged. ok is false when the
// vehicle belongs to neither fleet.
func (f *Fleet) Resolve(kind EventKind, vehicleID string) (EventKind, bool) {
	switch kind {
	case EventPersonEntersVehicle:
		switch {
		case f.IsTransit(vehicleID):
			return EventTransitEnter, true
		case f.IsShared(vehicleID):
			return EventVehicleEnter, true
		}
		return kind, false
	case EventPersonLeavesVehicle:
		switch {
		case f.IsTransit(vehicleID):
			return EventTransitLeave, true
		case f.IsShared(vehicleID):
			return EventVehicleLeave, true
		}
		return kind, false
	}
	return kind, true
}
