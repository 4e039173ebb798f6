package service

import (
	"strings"

	"farebridge/internal/domain"
	"farebridge/internal/keyed"
)

// CreditLedger issues transit credits and spends them on micromobility
// pickups. Expired credits are pruned lazily when a rider is touched; there
// are no background timers.
type CreditLedger struct {
	window       float64
	freeSeconds  float64
	driverPrefix string
	credits      *keyed.Map[domain.RiderID, []domain.Credit]
}

// NewCreditLedger creates a ledger using the window, free seconds and
// transit-driver prefix from policy.
func NewCreditLedger(policy FarePolicy) *CreditLedger {
	return &CreditLedger{
		window:       policy.TransferWindowSec,
		freeSeconds:  policy.FreeBikeSeconds,
		driverPrefix: policy.TransitDriverPrefix,
		credits:      keyed.New[domain.RiderID, []domain.Credit](),
	}
}

// FreeSecondsPerEligibleRide is the free allowance granted by one credit.
func (l *CreditLedger) FreeSecondsPerEligibleRide() float64 {
	return l.freeSeconds
}

// Grant appends a credit for a completed transit leg. Transit drivers are
// ignored. Returns whether a credit was issued.
func (l *CreditLedger) Grant(riderID domain.RiderID, now float64) bool {
	if l.driverPrefix != "" && strings.HasPrefix(string(riderID), l.driverPrefix) {
		return false
	}
	l.credits.Update(riderID, func(q []domain.Credit, _ bool) ([]domain.Credit, bool) {
		return append(q, domain.NewCredit(now, l.window)), true
	})
	return true
}

// ConsumeEligibility prunes expired credits and spends the oldest usable one.
// The check and the spend are a single atomic step for the rider.
func (l *CreditLedger) ConsumeEligibility(riderID domain.RiderID, now float64) bool {
	consumed := false
	l.credits.Update(riderID, func(q []domain.Credit, ok bool) ([]domain.Credit, bool) {
		if !ok {
			return nil, false
		}
		q = pruneCredits(q, now)
		for i := range q {
			if q[i].Usable(now) {
				q[i].Consumed = true
				consumed = true
				break
			}
		}
		return q, len(q) > 0
	})
	return consumed
}

// IsEligible reports whether the rider holds a usable credit at now.
// It never mutates state and must not gate a benefit; use ConsumeEligibility.
func (l *CreditLedger) IsEligible(riderID domain.RiderID, now float64) bool {
	eligible := false
	l.credits.View(riderID, func(q []domain.Credit, _ bool) {
		for _, c := range q {
			if c.Usable(now) {
				eligible = true
				return
			}
		}
	})
	return eligible
}

// PruneExpired removes credits that expired before now. The rider entry is
// dropped once its queue is empty.
func (l *CreditLedger) PruneExpired(riderID domain.RiderID, now float64) {
	l.credits.Update(riderID, func(q []domain.Credit, ok bool) ([]domain.Credit, bool) {
		if !ok {
			return nil, false
		}
		q = pruneCredits(q, now)
		return q, len(q) > 0
	})
}

// Credits returns a copy of the rider's credit queue in arrival order.
func (l *CreditLedger) Credits(riderID domain.RiderID) []domain.Credit {
	var out []domain.Credit
	l.credits.View(riderID, func(q []domain.Credit, _ bool) {
		out = append(out, q...)
	})
	return out
}

// Riders returns the number of riders holding at least one credit.
func (l *CreditLedger) Riders() int {
	return l.credits.Len()
}

// Reset drops every credit. Called at the start of each iteration.
func (l *CreditLedger) Reset() {
	l.credits.Reset()
}

// pruneCredits filters q in place, keeping arrival order.
func pruneCredits(q []domain.Credit, now float64) []domain.Credit {
	kept := q[:0]
	for _, c := range q {
		if !c.Expired(now) {
			kept = append(kept, c)
		}
	}
	return kept
}
