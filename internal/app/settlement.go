package app

import (
	"farebridge/internal/config"
	"farebridge/internal/domain"
	"farebridge/internal/service"
)

// FarePolicy converts the fare configuration into a service.FarePolicy.
func FarePolicy(cfg config.FareConfig) service.FarePolicy {
	return service.FarePolicy{
		TransferWindowSec:        cfg.TransferWindowSec,
		FreeBikeSeconds:          cfg.FreeBikeSeconds,
		OveragePerMinute:         cfg.OveragePerMinute,
		UnlockFee:                cfg.UnlockFee,
		WaiveUnlockWhenEligible:  cfg.WaiveUnlockWhenEligible,
		UseDiscountInsteadOfFree: cfg.UseDiscountInsteadOfFree,
		DiscountRatePerMinute:    cfg.DiscountRatePerMinute,
		FirstMileEnabled:         cfg.FirstMileEnabled,
		SourceLabel:              cfg.SourceLabel,
		TransitDriverPrefix:      cfg.TransitDriverPrefix,
	}
}

// Fleet converts the fleet configuration into a domain.Fleet.
func Fleet(cfg config.FleetConfig) *domain.Fleet {
	return domain.NewFleet(cfg.Transit, cfg.Shared)
}
