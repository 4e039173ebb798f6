package service

import "testing"

func TestFarePolicy_Fare(t *testing.T) {
	t.Parallel()

	discount := DefaultFarePolicy()
	discount.UseDiscountInsteadOfFree = true
	discount.DiscountRatePerMinute = 0.10

	noWaive := DefaultFarePolicy()
	noWaive.WaiveUnlockWhenEligible = false

	tests := []struct {
		name   string
		policy FarePolicy
		ride   float64
		free   float64
		want   float64
	}{
		{"no credit, 10 minutes", DefaultFarePolicy(), 600, 0, 1 + 0.29*10},
		{"no credit, zero ride", DefaultFarePolicy(), 0, 0, 1},
		{"negative ride clamps to zero", DefaultFarePolicy(), -50, 0, 1},
		{"credit covers ride, unlock waived", DefaultFarePolicy(), 400, 900, 0},
		{"credit partially covers ride", DefaultFarePolicy(), 1200, 900, 0.29 * 5},
		{"credit covers ride, waiver off", noWaive, 400, 900, 1},
		{"discount mode inside allowance", discount, 600, 900, 0.10 * 10},
		{"discount mode past allowance", discount, 1200, 900, 0.10*15 + 0.29*5},
		{"discount mode without credit", discount, 600, 0, 1 + 0.29*10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.policy.Fare(tt.ride, tt.free)
			if !almostEqual(got, tt.want) {
				t.Errorf("Fare(%v, %v) = %v, want %v", tt.ride, tt.free, got, tt.want)
			}
			if got < 0 {
				t.Errorf("Fare(%v, %v) = %v, want >= 0", tt.ride, tt.free, got)
			}
		})
	}
}

func TestFarePolicy_Refund(t *testing.T) {
	t.Parallel()

	discount := DefaultFarePolicy()
	discount.UseDiscountInsteadOfFree = true
	discount.DiscountRatePerMinute = 0.10

	noWaive := DefaultFarePolicy()
	noWaive.WaiveUnlockWhenEligible = false

	tests := []struct {
		name   string
		policy FarePolicy
		ride   float64
		fare   float64
		want   float64
	}{
		{"full allowance refunded", DefaultFarePolicy(), 1000, 1 + 0.29*1000/60, 0.29*15 + 1},
		{"capped at fare charged", DefaultFarePolicy(), 300, 2, 2},
		{"zero fare gives zero refund", DefaultFarePolicy(), 400, 0, 0},
		{"waiver off excludes unlock", noWaive, 1000, 10, 0.29 * 15},
		{"discount mode refunds difference", discount, 1000, 10, (0.29-0.10)*15 + 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.policy.Refund(tt.ride, tt.fare)
			if !almostEqual(got, tt.want) {
				t.Errorf("Refund(%v, %v) = %v, want %v", tt.ride, tt.fare, got, tt.want)
			}
			if got > tt.fare {
				t.Errorf("Refund(%v, %v) = %v exceeds fare", tt.ride, tt.fare, got)
			}
		})
	}
}
