package handler

import (
	"github.com/google/uuid"

	"farebridge/internal/domain"
)

// EventRequest is the HTTP body of a single transport event.
type EventRequest struct {
	ID        string  `json:"id,omitempty"`
	RiderID   string  `json:"rider_id"`
	Time      float64 `json:"time"`
	VehicleID string  `json:"vehicle_id"`
	Kind      string  `json:"kind"`
}

func (r EventRequest) toDomain() domain.Event {
	id := r.ID
	if id == "" {
		id = uuid.New().String()
	}
	return domain.Event{
		ID:        id,
		RiderID:   domain.RiderID(r.RiderID),
		Time:      r.Time,
		VehicleID: r.VehicleID,
		Kind:      domain.EventKind(r.Kind),
	}
}

// EventResponse reports what happened to one event.
type EventResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

// BatchRequest is the HTTP body of an ordered list of events.
type BatchRequest struct {
	Events []EventRequest `json:"events"`
}

// BatchResponse reports per-event outcomes in request order.
type BatchResponse struct {
	Results []EventResponse `json:"results"`
	Applied int             `json:"applied"`
	Ignored int             `json:"ignored"`
	Dropped int             `json:"dropped"`
}

// IterationRequest starts a new simulation iteration.
type IterationRequest struct {
	Iteration *int `json:"iteration"`
}

// IterationResponse confirms the active iteration.
type IterationResponse struct {
	Iteration int `json:"iteration"`
}

// RecordResponse is a settlement record as served over HTTP.
type RecordResponse struct {
	ID            string  `json:"id"`
	Iteration     int     `json:"iteration"`
	Time          float64 `json:"time"`
	RiderID       string  `json:"rider_id"`
	Amount        float64 `json:"amount"`
	AmountRounded float64 `json:"amount_rounded"`
	Tag           string  `json:"tag"`
	Source        string  `json:"source"`
	TripType      string  `json:"trip_type"`
}

func toRecordResponses(recs []domain.MoneyRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecordResponse{
			ID:            rec.ID,
			Iteration:     rec.Iteration,
			Time:          rec.Time,
			RiderID:       string(rec.RiderID),
			Amount:        rec.Amount,
			AmountRounded: domain.RoundCents(rec.Amount),
			Tag:           string(rec.Tag),
			Source:        rec.Source,
			TripType:      string(rec.TripType),
		})
	}
	return out
}

// CreditResponse is one transit credit.
type CreditResponse struct {
	GrantedAt float64 `json:"granted_at"`
	ExpiresAt float64 `json:"expires_at"`
	Consumed  bool    `json:"consumed"`
}

// SessionResponse is an active bike rental.
type SessionResponse struct {
	VehicleID           string  `json:"vehicle_id"`
	PickupTime          float64 `json:"pickup_time"`
	FreeSecondsAllotted float64 `json:"free_seconds_allotted"`
}

// TripResponse is the rider's last bike trip.
type TripResponse struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	RideSeconds float64 `json:"ride_seconds"`
	FareCharged float64 `json:"fare_charged"`
	Refunded    bool    `json:"refunded"`
}

// EligibilityResponse is the inspection view of a rider.
type EligibilityResponse struct {
	RiderID  string           `json:"rider_id"`
	Time     float64          `json:"time"`
	Eligible bool             `json:"eligible"`
	Credits  []CreditResponse `json:"credits"`
	Session  *SessionResponse `json:"session,omitempty"`
	LastTrip *TripResponse    `json:"last_trip,omitempty"`
}
