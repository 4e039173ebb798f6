package service

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"farebridge/internal/domain"
)

// Flusher drains buffered downstream writers.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Anomalies is a snapshot of the counters kept by the settlement core.
type Anomalies struct {
	Dropped           int64 `json:"dropped"`
	Malformed         int64 `json:"malformed"`
	UnknownVehicle    int64 `json:"unknown_vehicle"`
	FleetMismatch     int64 `json:"fleet_mismatch"`
	StrayLeaves       int64 `json:"stray_leaves"`
	SessionOverwrites int64 `json:"session_overwrites"`
}

// RiderState is the inspection view of a single rider.
type RiderState struct {
	RiderID  domain.RiderID
	Eligible bool
	Credits  []domain.Credit
	Session  *domain.Session
	LastTrip *domain.BikeTrip
}

// SettlementDeps contains what a Settlement needs to be built.
type SettlementDeps struct {
	Fleet  *domain.Fleet
	Policy FarePolicy
	// Audit is shared with the record classifier downstream of Emitter.
	Audit    *TransferAudit
	Emitter  Emitter
	Sinks    Flusher
	Observer Observer
	Logger   *zap.Logger
}

// Settlement routes transport events to the credit ledger, the fare engine
// and the refund engine.
type Settlement struct {
	fleet    *domain.Fleet
	policy   FarePolicy
	ledger   *CreditLedger
	fares    *FareEngine
	refunds  *RefundEngine
	audit    *TransferAudit
	stamper  *RecordStamper
	sinks    Flusher
	observer Observer
	logger   *zap.Logger

	malformed      atomic.Int64
	unknownVehicle atomic.Int64
	fleetMismatch  atomic.Int64
}

// NewSettlement wires the ledger and both engines around deps.
func NewSettlement(deps SettlementDeps) *Settlement {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = NewTransferAudit()
	}
	if deps.Fleet == nil {
		deps.Fleet = domain.NewFleet(nil, nil)
	}

	stamper := NewRecordStamper(deps.Emitter, deps.Policy.SourceLabel, deps.Observer)
	ledger := NewCreditLedger(deps.Policy)
	refunds := NewRefundEngine(deps.Policy, stamper, deps.Logger)
	fares := NewFareEngine(FareEngineDeps{
		Policy:   deps.Policy,
		Credits:  ledger,
		Audit:    deps.Audit,
		Trips:    refunds,
		Emitter:  stamper,
		Observer: deps.Observer,
		Logger:   deps.Logger,
	})

	return &Settlement{
		fleet:    deps.Fleet,
		policy:   deps.Policy,
		ledger:   ledger,
		fares:    fares,
		refunds:  refunds,
		audit:    deps.Audit,
		stamper:  stamper,
		sinks:    deps.Sinks,
		observer: deps.Observer,
		logger:   deps.Logger,
	}
}

// Ledger exposes the credit ledger.
func (s *Settlement) Ledger() *CreditLedger { return s.ledger }

// Fares exposes the fare engine.
func (s *Settlement) Fares() *FareEngine { return s.fares }

// Refunds exposes the refund engine.
func (s *Settlement) Refunds() *RefundEngine { return s.refunds }

// Iteration returns the iteration stamped on new records.
func (s *Settlement) Iteration() int { return s.stamper.Iteration() }

// ValidateEvent checks the fields every event must carry.
func ValidateEvent(ev domain.Event) error {
	if ev.RiderID == "" {
		return ErrInvalidRiderID
	}
	if !ev.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, ev.Kind)
	}
	if ev.VehicleID == "" {
		return ErrInvalidVehicleID
	}
	if math.IsNaN(ev.Time) || math.IsInf(ev.Time, 0) || ev.Time < 0 {
		return ErrInvalidEventTime
	}
	return nil
}

// Handle applies a single event. Malformed or unroutable events are dropped
// and counted; they never produce an error.
func (s *Settlement) Handle(_ context.Context, ev domain.Event) domain.Outcome {
	outcome := s.handle(ev)
	s.observer.EventHandled(ev.Kind, outcome)
	return outcome
}

func (s *Settlement) handle(ev domain.Event) domain.Outcome {
	if err := ValidateEvent(ev); err != nil {
		s.malformed.Add(1)
		s.observer.Anomaly(AnomalyMalformedEvent, ev.RiderID)
		s.logger.Warn("dropping malformed event",
			zap.String("event_id", ev.ID),
			zap.String("rider_id", string(ev.RiderID)),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		return domain.OutcomeDropped
	}

	kind, ok := s.fleet.Resolve(ev.Kind, ev.VehicleID)
	if !ok {
		return s.dropUnknownVehicle(ev)
	}

	switch kind {
	case domain.EventTransitLeave, domain.EventTransitEnter:
		if !s.fleet.IsTransit(ev.VehicleID) {
			return s.dropMismatch(ev, kind)
		}
	case domain.EventVehicleEnter, domain.EventVehicleLeave:
		if !s.fleet.IsShared(ev.VehicleID) {
			return s.dropMismatch(ev, kind)
		}
	}

	switch kind {
	case domain.EventTransitLeave:
		if !s.ledger.Grant(ev.RiderID, ev.Time) {
			return domain.OutcomeIgnored
		}
	case domain.EventTransitEnter:
		if !s.policy.FirstMileEnabled {
			return domain.OutcomeIgnored
		}
		if _, issued := s.refunds.OnTransitBoarding(ev.RiderID, ev.Time); !issued {
			return domain.OutcomeIgnored
		}
	case domain.EventVehicleEnter:
		s.fares.OnVehicleEnter(ev.RiderID, ev.VehicleID, ev.Time)
	case domain.EventVehicleLeave:
		if !s.fares.OnVehicleLeave(ev.RiderID, ev.VehicleID, ev.Time) {
			return domain.OutcomeIgnored
		}
	}
	return domain.OutcomeApplied
}

func (s *Settlement) dropUnknownVehicle(ev domain.Event) domain.Outcome {
	s.unknownVehicle.Add(1)
	s.observer.Anomaly(AnomalyUnknownVehicle, ev.RiderID)
	s.logger.Warn("dropping event for vehicle outside the fleet",
		zap.String("event_id", ev.ID),
		zap.String("rider_id", string(ev.RiderID)),
		zap.String("vehicle_id", ev.VehicleID),
		zap.String("kind", string(ev.Kind)),
	)
	return domain.OutcomeDropped
}

func (s *Settlement) dropMismatch(ev domain.Event, kind domain.EventKind) domain.Outcome {
	if !s.fleet.IsTransit(ev.VehicleID) && !s.fleet.IsShared(ev.VehicleID) {
		return s.dropUnknownVehicle(ev)
	}
	s.fleetMismatch.Add(1)
	s.observer.Anomaly(AnomalyFleetMismatch, ev.RiderID)
	s.logger.Warn("dropping event whose kind does not match the vehicle fleet",
		zap.String("event_id", ev.ID),
		zap.String("rider_id", string(ev.RiderID)),
		zap.String("vehicle_id", ev.VehicleID),
		zap.String("kind", string(kind)),
	)
	return domain.OutcomeDropped
}

// HandleBatch applies events, keeping the order of each rider's events.
// Different riders are processed concurrently, at most concurrency at a time.
// The returned outcomes line up with events.
func (s *Settlement) HandleBatch(ctx context.Context, events []domain.Event, concurrency int) ([]domain.Outcome, error) {
	if len(events) == 0 {
		return nil, ErrEmptyBatch
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	groups := make(map[domain.RiderID][]int)
	order := make([]domain.RiderID, 0)
	for i, ev := range events {
		if _, seen := groups[ev.RiderID]; !seen {
			order = append(order, ev.RiderID)
		}
		groups[ev.RiderID] = append(groups[ev.RiderID], i)
	}

	outcomes := make([]domain.Outcome, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rider := range order {
		idx := groups[rider]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = s.Handle(gctx, events[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("handle batch: %w", err)
	}
	return outcomes, nil
}

// OnIterationStart clears all per-rider state and stamps iteration on
// records emitted from now on.
func (s *Settlement) OnIterationStart(iteration int) error {
	if iteration < 0 {
		return ErrInvalidIteration
	}
	s.ledger.Reset()
	s.fares.Reset()
	s.refunds.Reset()
	s.audit.Reset()
	s.stamper.SetIteration(iteration)
	s.logger.Info("iteration started", zap.Int("iteration", iteration))
	return nil
}

// OnShutdown flushes downstream writers.
func (s *Settlement) OnShutdown(ctx context.Context) error {
	if s.sinks == nil {
		return nil
	}
	if err := s.sinks.Flush(ctx); err != nil {
		return fmt.Errorf("flush sinks: %w", err)
	}
	return nil
}

// Anomalies returns the current counters.
func (s *Settlement) Anomalies() Anomalies {
	a := Anomalies{
		Malformed:         s.malformed.Load(),
		UnknownVehicle:    s.unknownVehicle.Load(),
		FleetMismatch:     s.fleetMismatch.Load(),
		StrayLeaves:       s.fares.StrayLeaves(),
		SessionOverwrites: s.fares.Overwrites(),
	}
	a.Dropped = a.Malformed + a.UnknownVehicle + a.FleetMismatch
	return a
}

// Inspect reports the rider's credits, eligibility at now, active rental and
// last bike trip.
func (s *Settlement) Inspect(riderID domain.RiderID, now float64) RiderState {
	st := RiderState{
		RiderID:  riderID,
		Eligible: s.ledger.IsEligible(riderID, now),
		Credits:  s.ledger.Credits(riderID),
	}
	if sess, ok := s.fares.Session(riderID); ok {
		st.Session = &sess
	}
	if trip, ok := s.refunds.Trip(riderID); ok {
		st.LastTrip = &trip
	}
	return st
}
