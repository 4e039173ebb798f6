package service

import "errors"

var (
	// ErrInvalidRiderID is returned when an event has no rider id.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidEventKind is returned when an event kind is not recognised.
	ErrInvalidEventKind = errors.New("invalid event kind")

	// ErrInvalidVehicleID is returned when an event has no vehicle id.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidEventTime is returned when an event time is negative or not finite.
	ErrInvalidEventTime = errors.New("invalid event time")

	// ErrInvalidIteration is returned when an iteration number is negative.
	ErrInvalidIteration = errors.New("invalid iteration")

	// ErrEmptyBatch is returned when a batch contains no events.
	ErrEmptyBatch = errors.New("empty event batch")

	// ErrBatchTooLarge is returned when a batch exceeds the accepted size.
	ErrBatchTooLarge = errors.New("event batch too large")
)
