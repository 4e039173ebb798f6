package domain

// Credit is a time-boxed free-ride entitlement earned by a transit leg.
type Credit struct {
	GrantedAt float64
	ExpiresAt float64
	Consumed  bool
}

// NewCredit creates a credit granted at t0 that expires after window seconds.
func NewCredit(t0, window float64) Credit {
	return Credit{GrantedAt: t0, ExpiresAt: t0 + window}
}

// Expired reports whether the credit can no longer be used at now.
func (c Credit) Expired(now float64) bool {
	return c.ExpiresAt < now
}

// Usable reports whether the credit can be spent at now.
func (c Credit) Usable(now float64) bool {
	return !c.Consumed && !c.Expired(now)
}
