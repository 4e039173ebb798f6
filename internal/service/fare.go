package service

import (
	"sync/atomic"

	"go.uber.org/zap"

	"farebridge/internal/domain"
	"farebridge/internal/keyed"
)

// CreditConsumer is the part of the credit ledger the fare engine may use.
type CreditConsumer interface {
	ConsumeEligibility(riderID domain.RiderID, now float64) bool
	FreeSecondsPerEligibleRide() float64
}

// AuditMarker records pickup eligibility for downstream classification.
type AuditMarker interface {
	Mark(riderID domain.RiderID, eligible bool)
}

// TripRecorder receives completed trips for later refund reconciliation.
type TripRecorder interface {
	RecordTrip(riderID domain.RiderID, startTime, endTime, rideSeconds, fareCharged float64)
}

// FareEngine runs the per-rider Idle -> Riding -> Idle rental state machine
// and emits a fare record for every completed rental.
type FareEngine struct {
	policy   FarePolicy
	credits  CreditConsumer
	audit    AuditMarker
	trips    TripRecorder
	emitter  Emitter
	observer Observer
	logger   *zap.Logger

	sessions   *keyed.Map[domain.RiderID, domain.Session]
	overwrites atomic.Int64
	strays     atomic.Int64
}

// FareEngineDeps contains the collaborators of a FareEngine.
type FareEngineDeps struct {
	Policy   FarePolicy
	Credits  CreditConsumer
	Audit    AuditMarker
	Trips    TripRecorder
	Emitter  Emitter
	Observer Observer
	Logger   *zap.Logger
}

// NewFareEngine creates a FareEngine.
func NewFareEngine(deps FareEngineDeps) *FareEngine {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &FareEngine{
		policy:   deps.Policy,
		credits:  deps.Credits,
		audit:    deps.Audit,
		trips:    deps.Trips,
		emitter:  deps.Emitter,
		observer: deps.Observer,
		logger:   deps.Logger,
		sessions: keyed.New[domain.RiderID, domain.Session](),
	}
}

// OnVehicleEnter starts a rental. A transit credit, if any, is spent here.
// A second enter while a rental is active replaces it and is counted as an
// anomaly.
func (e *FareEngine) OnVehicleEnter(riderID domain.RiderID, vehicleID string, now float64) {
	eligible := e.credits.ConsumeEligibility(riderID, now)
	free := 0.0
	if eligible {
		free = e.credits.FreeSecondsPerEligibleRide()
	}

	var prev domain.Session
	overwritten := false
	e.sessions.Update(riderID, func(cur domain.Session, ok bool) (domain.Session, bool) {
		if ok {
			prev, overwritten = cur, true
		}
		return domain.Session{
			RiderID:             riderID,
			VehicleID:           vehicleID,
			PickupTime:          now,
			FreeSecondsAllotted: free,
		}, true
	})

	if overwritten {
		e.overwrites.Add(1)
		e.observer.Anomaly(AnomalySessionOverwrite, riderID)
		e.logger.Warn("active rental replaced by new pickup",
			zap.String("rider_id", string(riderID)),
			zap.String("previous_vehicle_id", prev.VehicleID),
			zap.Float64("previous_pickup_time", prev.PickupTime),
			zap.String("vehicle_id", vehicleID),
			zap.Float64("time", now),
		)
	}

	if e.audit != nil {
		e.audit.Mark(riderID, eligible)
	}
}

// OnVehicleLeave ends the rental on vehicleID, emits the fare and hands the
// trip to the refund engine. Leaves that do not match the active rental are
// ignored and counted. Returns whether a fare was settled.
func (e *FareEngine) OnVehicleLeave(riderID domain.RiderID, vehicleID string, now float64) bool {
	var sess domain.Session
	matched := false
	e.sessions.Update(riderID, func(cur domain.Session, ok bool) (domain.Session, bool) {
		if !ok || cur.VehicleID != vehicleID {
			return cur, ok
		}
		sess, matched = cur, true
		return domain.Session{}, false
	})

	if !matched {
		e.strays.Add(1)
		e.observer.Anomaly(AnomalyStrayLeave, riderID)
		e.logger.Warn("drop-off without matching rental",
			zap.String("rider_id", string(riderID)),
			zap.String("vehicle_id", vehicleID),
			zap.Float64("time", now),
		)
		return false
	}

	rideSeconds := now - sess.PickupTime
	if rideSeconds < 0 {
		rideSeconds = 0
	}
	fare := e.policy.Fare(rideSeconds, sess.FreeSecondsAllotted)

	// Zero fares are emitted too so downstream sees every trip.
	e.emitter.Emit(domain.MoneyRecord{
		Time:    now,
		RiderID: riderID,
		Amount:  -fare,
		Tag:     domain.TagFare,
		Source:  e.policy.SourceLabel,
	})

	if e.trips != nil {
		e.trips.RecordTrip(riderID, sess.PickupTime, now, rideSeconds, fare)
	}

	e.logger.Debug("fare settled",
		zap.String("rider_id", string(riderID)),
		zap.String("vehicle_id", vehicleID),
		zap.Float64("ride_seconds", rideSeconds),
		zap.Float64("free_seconds", sess.FreeSecondsAllotted),
		zap.Float64("fare", fare),
	)
	return true
}

// Session returns a copy of the rider's active rental.
func (e *FareEngine) Session(riderID domain.RiderID) (domain.Session, bool) {
	var (
		out   domain.Session
		found bool
	)
	e.sessions.View(riderID, func(cur domain.Session, ok bool) {
		out, found = cur, ok
	})
	return out, found
}

// Overwrites returns how many active rentals were replaced by a second pickup.
func (e *FareEngine) Overwrites() int64 {
	return e.overwrites.Load()
}

// StrayLeaves returns how many drop-offs had no matching rental.
func (e *FareEngine) StrayLeaves() int64 {
	return e.strays.Load()
}

// Reset clears all active rentals.
func (e *FareEngine) Reset() {
	e.sessions.Reset()
}
