package service

import "farebridge/internal/domain"

// AnomalyKind names a recoverable condition the core counted instead of failing.
type AnomalyKind string

const (
	AnomalySessionOverwrite AnomalyKind = "session_overwrite"
	AnomalyStrayLeave       AnomalyKind = "stray_leave"
	AnomalyUnknownVehicle   AnomalyKind = "unknown_vehicle"
	AnomalyFleetMismatch    AnomalyKind = "fleet_mismatch"
	AnomalyMalformedEvent   AnomalyKind = "malformed_event"
)

// Observer receives settlement telemetry. Implementations must not block.
type Observer interface {
	EventHandled(kind domain.EventKind, outcome domain.Outcome)
	RecordEmitted(rec domain.MoneyRecord)
	Anomaly(kind AnomalyKind, riderID domain.RiderID)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) EventHandled(domain.EventKind, domain.Outcome) {}
func (NopObserver) RecordEmitted(domain.MoneyRecord)              {}
func (NopObserver) Anomaly(AnomalyKind, domain.RiderID)           {}

// Observers fans out to several observers.
type Observers []Observer

func (o Observers) EventHandled(kind domain.EventKind, outcome domain.Outcome) {
	for _, obs := range o {
		obs.EventHandled(kind, outcome)
	}
}

func (o Observers) RecordEmitted(rec domain.MoneyRecord) {
	for _, obs := range o {
		obs.RecordEmitted(rec)
	}
}

func (o Observers) Anomaly(kind AnomalyKind, riderID domain.RiderID) {
	for _, obs := range o {
		obs.Anomaly(kind, riderID)
	}
}
