package service

import "math"

// FarePolicy holds the fare and refund dials shared by the fare and refund engines.
type FarePolicy struct {
	TransferWindowSec        float64
	FreeBikeSeconds          float64
	OveragePerMinute         float64
	UnlockFee                float64
	WaiveUnlockWhenEligible  bool
	UseDiscountInsteadOfFree bool
	DiscountRatePerMinute    float64
	FirstMileEnabled         bool
	SourceLabel              string
	TransitDriverPrefix      string
}

// DefaultFarePolicy returns the stock policy: 30 minute window, 15 free minutes,
// $1.00 unlock and $0.29 per minute.
func DefaultFarePolicy() FarePolicy {
	return FarePolicy{
		TransferWindowSec:       1800,
		FreeBikeSeconds:         900,
		OveragePerMinute:        0.29,
		UnlockFee:               1.00,
		WaiveUnlockWhenEligible: true,
		FirstMileEnabled:        true,
		SourceLabel:             "shared-mobility",
		TransitDriverPrefix:     "pt_",
	}
}

// Fare computes the charge for a ride of rideSeconds with freeAllotted free
// seconds. Amounts are unrounded; the result is never negative.
func (p FarePolicy) Fare(rideSeconds, freeAllotted float64) float64 {
	ride := math.Max(0, rideSeconds)
	free := math.Min(math.Max(0, freeAllotted), ride)

	unlock := p.UnlockFee
	if free > 0 && p.WaiveUnlockWhenEligible {
		unlock = 0
	}

	if free > 0 && p.UseDiscountInsteadOfFree {
		discounted := free / 60.0 * p.DiscountRatePerMinute
		overage := math.Max(0, ride-free) / 60.0 * p.OveragePerMinute
		return math.Max(0, unlock+discounted+overage)
	}

	billableMin := math.Max(0, ride-free) / 60.0
	return math.Max(0, unlock+p.OveragePerMinute*billableMin)
}

// Refund computes the first-mile refund for a ride of rideSeconds that was
// charged fareCharged. The result is capped at fareCharged and may be zero.
func (p FarePolicy) Refund(rideSeconds, fareCharged float64) float64 {
	free := math.Min(p.FreeBikeSeconds, math.Max(0, rideSeconds))

	var refundable float64
	if p.UseDiscountInsteadOfFree {
		refundable = free / 60.0 * (p.OveragePerMinute - p.DiscountRatePerMinute)
	} else {
		refundable = free / 60.0 * p.OveragePerMinute
	}
	if p.WaiveUnlockWhenEligible {
		refundable += p.UnlockFee
	}

	return math.Min(refundable, fareCharged)
}
