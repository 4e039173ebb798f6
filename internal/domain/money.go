package domain

import "math"

// MoneyTag marks the purpose of a monetary record.
type MoneyTag string

const (
	TagFare   MoneyTag = "fare"
	TagRefund MoneyTag = "refund"
)

// TripType is the downstream classification of a record.
type TripType string

const (
	TripTypeStandard  TripType = "Standard"
	TripTypeTransfer  TripType = "Transit_Transfer"
	TripTypeFirstMile TripType = "FirstMile_Refund"
)

// MoneyRecord is a signed settlement entry. Fares are negative, refunds positive.
type MoneyRecord struct {
	ID        string
	Iteration int
	Time      float64
	RiderID   RiderID
	Amount    float64
	Tag       MoneyTag
	Source    string
	TripType  TripType
}

// RoundCents rounds a currency amount to two decimals. Only used at reporting points.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
