package sink

import "farebridge/internal/domain"

// AuditTaker hands out the pickup eligibility flag once per trip.
type AuditTaker interface {
	Take(riderID domain.RiderID) bool
}

// Classifier sets TripType on records before passing them on. Fares take the
// rider's audit flag; refunds are always first-mile refunds.
type Classifier struct {
	audit AuditTaker
	next  Sink
}

// NewClassifier creates a Classifier that forwards to next.
func NewClassifier(audit AuditTaker, next Sink) *Classifier {
	return &Classifier{audit: audit, next: next}
}

func (c *Classifier) Emit(rec domain.MoneyRecord) {
	switch rec.Tag {
	case domain.TagFare:
		if c.audit.Take(rec.RiderID) {
			rec.TripType = domain.TripTypeTransfer
		} else {
			rec.TripType = domain.TripTypeStandard
		}
	case domain.TagRefund:
		rec.TripType = domain.TripTypeFirstMile
	}
	c.next.Emit(rec)
}
