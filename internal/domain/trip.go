package domain

// Session is an active micromobility rental.
type Session struct {
	RiderID             RiderID
	VehicleID           string
	PickupTime          float64
	FreeSecondsAllotted float64
}

// BikeTrip is the most recent completed micromobility trip for a rider,
// kept for possible first-mile refund.
type BikeTrip struct {
	StartTime   float64
	EndTime     float64
	RideSeconds float64
	FareCharged float64
	Refunded    bool
}
