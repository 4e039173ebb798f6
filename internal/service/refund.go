package service

import (
	"go.uber.org/zap"

	"farebridge/internal/domain"
	"farebridge/internal/keyed"
)

// RefundEngine grants first-mile refunds: a rider who boards transit soon
// after a bike drop-off gets back what the bike leg would have cost less
// under a transfer.
type RefundEngine struct {
	policy  FarePolicy
	emitter Emitter
	logger  *zap.Logger
	trips   *keyed.Map[domain.RiderID, domain.BikeTrip]
}

// NewRefundEngine creates a RefundEngine.
func NewRefundEngine(policy FarePolicy, emitter Emitter, logger *zap.Logger) *RefundEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundEngine{
		policy:  policy,
		emitter: emitter,
		logger:  logger,
		trips:   keyed.New[domain.RiderID, domain.BikeTrip](),
	}
}

// RecordTrip replaces the rider's last bike trip.
func (r *RefundEngine) RecordTrip(riderID domain.RiderID, startTime, endTime, rideSeconds, fareCharged float64) {
	trip := domain.BikeTrip{
		StartTime:   startTime,
		EndTime:     endTime,
		RideSeconds: rideSeconds,
		FareCharged: fareCharged,
	}
	r.trips.Update(riderID, func(domain.BikeTrip, bool) (domain.BikeTrip, bool) {
		return trip, true
	})
}

// OnTransitBoarding refunds the rider's last bike trip if the boarding falls
// inside the transfer window. A trip is refunded at most once. Returns the
// refunded amount and whether a refund was issued.
func (r *RefundEngine) OnTransitBoarding(riderID domain.RiderID, now float64) (float64, bool) {
	if !r.policy.FirstMileEnabled {
		return 0, false
	}

	var refund float64
	issued := false
	r.trips.Update(riderID, func(trip domain.BikeTrip, ok bool) (domain.BikeTrip, bool) {
		if !ok || trip.Refunded {
			return trip, ok
		}
		if now-trip.EndTime > r.policy.TransferWindowSec {
			return trip, true
		}
		amount := r.policy.Refund(trip.RideSeconds, trip.FareCharged)
		if amount <= 0 {
			return trip, true
		}
		trip.Refunded = true
		refund, issued = amount, true
		return trip, true
	})

	if !issued {
		return 0, false
	}

	r.emitter.Emit(domain.MoneyRecord{
		Time:    now,
		RiderID: riderID,
		Amount:  refund,
		Tag:     domain.TagRefund,
		Source:  r.policy.SourceLabel,
	})
	r.logger.Debug("first-mile refund issued",
		zap.String("rider_id", string(riderID)),
		zap.Float64("refund", refund),
		zap.Float64("time", now),
	)
	return refund, true
}

// Trip returns a copy of the rider's last bike trip.
func (r *RefundEngine) Trip(riderID domain.RiderID) (domain.BikeTrip, bool) {
	var (
		out   domain.BikeTrip
		found bool
	)
	r.trips.View(riderID, func(cur domain.BikeTrip, ok bool) {
		out, found = cur, ok
	})
	return out, found
}

// Reset clears all stored trips.
func (r *RefundEngine) Reset() {
	r.trips.Reset()
}
