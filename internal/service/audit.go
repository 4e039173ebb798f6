package service

import (
	"farebridge/internal/domain"
	"farebridge/internal/keyed"
)

// TransferAudit records whether a rider's latest pickup consumed a transit
// credit. The flag is written at pickup and taken once by the reporting side.
type TransferAudit struct {
	flags *keyed.Map[domain.RiderID, bool]
}

// NewTransferAudit creates an empty audit register.
func NewTransferAudit() *TransferAudit {
	return &TransferAudit{flags: keyed.New[domain.RiderID, bool]()}
}

// Mark stores the eligibility outcome of a pickup.
func (a *TransferAudit) Mark(riderID domain.RiderID, eligible bool) {
	a.flags.Update(riderID, func(bool, bool) (bool, bool) { return eligible, true })
}

// Take returns and clears the flag. A missing flag reads as false.
func (a *TransferAudit) Take(riderID domain.RiderID) bool {
	v, _ := a.flags.Delete(riderID)
	return v
}

// Reset clears all flags.
func (a *TransferAudit) Reset() {
	a.flags.Reset()
}
